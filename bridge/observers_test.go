package bridge

import (
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rfbridge/bulkio"
)

func TestConnectionHash(t *testing.T) {
	h := fnv.New32a()
	h.Write([]byte("stream-1"))
	want := int(h.Sum32() % 1000000)

	assert.Equal(t, want, ConnectionHash("stream-1"))
	assert.Equal(t, ConnectionHash("stream-1"), ConnectionHash("stream-1"))
	for _, id := range []string{"", "a", "stream-2", strings.Repeat("x", 512)} {
		got := ConnectionHash(id)
		assert.GreaterOrEqual(t, got, 0)
		assert.Less(t, got, 1000000)
	}
}

func TestConnectionRegistry(t *testing.T) {
	var r connectionRegistry

	added, removed := r.observe("a", false)
	assert.True(t, added)
	assert.False(t, removed)

	for i := 0; i < 3; i++ {
		added, removed = r.observe("a", false)
		assert.False(t, added)
		assert.False(t, removed)
	}

	added, removed = r.observe("a", true)
	assert.False(t, added)
	assert.True(t, removed)
	assert.Equal(t, 0, r.len())

	added, removed = r.observe("once", true)
	assert.True(t, added)
	assert.True(t, removed)
	assert.Equal(t, 0, r.len())
}

func TestObservers(t *testing.T) {
	var o Observers
	var got []EventKind
	o.On(EventIncomingAdded, func(ev Event) { got = append(got, ev.Kind) })
	o.On(EventIncomingAdded, func(ev Event) { got = append(got, ev.Kind) })
	o.On(EventIncomingRemoved, func(ev Event) { got = append(got, ev.Kind) })

	o.notify(Event{Kind: EventIncomingAdded})
	o.notify(Event{Kind: EventOutgoingAdded})

	assert.Equal(t, []EventKind{EventIncomingAdded, EventIncomingAdded}, got)
	assert.Equal(t, "incoming_added", EventIncomingAdded.String())
	assert.Equal(t, "event(42)", EventKind(42).String())
}

func TestWatchOutPort(t *testing.T) {
	h := initialized(t)
	port := bulkio.NewOutPort("psd_dataShort_out")
	h.c.WatchOutPort(port)

	var events []Event
	h.c.Observers().On(EventOutgoingAdded, func(ev Event) { events = append(events, ev) })
	h.c.Observers().On(EventOutgoingRemoved, func(ev Event) { events = append(events, ev) })

	require.NoError(t, port.Connect("conn_1", &recorder{}))
	require.NoError(t, port.Disconnect("conn_1"))

	require.Len(t, events, 2)
	assert.Equal(t, EventOutgoingAdded, events[0].Kind)
	assert.Equal(t, EventOutgoingRemoved, events[1].Kind)
	assert.Equal(t, "conn_1", events[0].StreamID)
	assert.Equal(t, ConnectionHash("conn_1"), events[0].Hash)
	assert.Equal(t, "test", events[0].InstanceID)
}

func TestNewInstanceID(t *testing.T) {
	a, b := NewInstanceID(), NewInstanceID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
	assert.NotContains(t, a, "_")
}
