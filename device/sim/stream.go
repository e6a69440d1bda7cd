package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/sample"
)

type chunk struct {
	data  []sample.SC16
	ticks int64
	eob   bool
}

// pipeline is the loopback FIFO shared by every stream of a device.
type pipeline struct {
	mu        sync.Mutex
	rate      float64
	chunks    []chunk
	ticks     int64
	streaming bool
	notify    chan struct{}
}

func newPipeline(rate float64) *pipeline {
	return &pipeline{rate: rate, notify: make(chan struct{}, 1)}
}

func (p *pipeline) push(samples []sample.SC16, eob bool) {
	p.mu.Lock()
	if len(samples) == 0 {
		// a bare end-of-burst closes the burst already queued
		if eob && len(p.chunks) > 0 {
			p.chunks[len(p.chunks)-1].eob = true
		}
		p.mu.Unlock()
		return
	}
	data := append([]sample.SC16(nil), samples...)
	p.chunks = append(p.chunks, chunk{data: data, ticks: p.ticks, eob: eob})
	p.ticks += int64(len(data))
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// pop moves up to len(buf) samples of the head burst into buf.
func (p *pipeline) pop(buf []sample.SC16) (int, device.RxMetadata, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.chunks) == 0 {
		return 0, device.RxMetadata{}, false
	}
	head := &p.chunks[0]
	n := copy(buf, head.data)
	md := device.RxMetadata{
		HasTimeSpec: true,
		TimeSpec:    device.TimeSpecFromTicks(head.ticks, p.rate),
	}
	head.data = head.data[n:]
	head.ticks += int64(n)
	if len(head.data) == 0 {
		md.EndOfBurst = head.eob
		p.chunks = p.chunks[1:]
	}
	return n, md, true
}

func (p *pipeline) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, c := range p.chunks {
		total += len(c.data)
	}
	return total
}

func (p *pipeline) setStreaming(on bool) {
	p.mu.Lock()
	p.streaming = on
	p.mu.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *pipeline) isStreaming() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streaming
}

// RxStream receives from the loopback pipeline.
type RxStream struct {
	dev    *Device
	args   device.StreamArgs
	closed atomic.Bool
}

// Args returns the arguments the stream was opened with.
func (s *RxStream) Args() device.StreamArgs { return s.args }

// Recv implements device.RxStream. With streaming stopped it returns whatever
// is still queued and then zero samples without waiting.
func (s *RxStream) Recv(buf []sample.SC16, timeout time.Duration) (int, device.RxMetadata, error) {
	if s.closed.Load() {
		return 0, device.RxMetadata{}, errors.Wrap(errors.ErrStreamInvalid, "rx stream closed")
	}

	if f, ok := s.dev.popRecvFault(); ok {
		if f.Err != nil {
			return 0, device.RxMetadata{}, f.Err
		}
		if !f.Deliver {
			return 0, device.RxMetadata{ErrorCode: f.Code}, nil
		}
		n, md, _ := s.dev.pipe.pop(buf)
		md.ErrorCode = f.Code
		return n, md, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		if n, md, ok := s.dev.pipe.pop(buf); ok {
			return n, md, nil
		}
		if !s.dev.pipe.isStreaming() {
			return 0, device.RxMetadata{}, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, device.RxMetadata{ErrorCode: device.RxErrorTimeout}, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-s.dev.pipe.notify:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// IssueStreamCommand implements device.RxStream.
func (s *RxStream) IssueStreamCommand(cmd device.StreamCommand) error {
	if s.closed.Load() {
		return errors.Wrap(errors.ErrStreamInvalid, "rx stream closed")
	}
	s.dev.mu.Lock()
	s.dev.commands = append(s.dev.commands, cmd)
	s.dev.mu.Unlock()

	switch cmd.Mode {
	case device.StreamModeStartContinuous:
		s.dev.pipe.setStreaming(true)
	case device.StreamModeStopContinuous:
		s.dev.pipe.setStreaming(false)
	default:
		return errors.Wrapf(errors.ErrInvalidRequest, "stream mode %s not simulated", cmd.Mode)
	}
	return nil
}

// Close implements device.RxStream. Closing an RX stream stops streaming.
func (s *RxStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.dev.pipe.setStreaming(false)
	s.dev.mu.Lock()
	s.dev.rxCloses++
	s.dev.mu.Unlock()
	return nil
}

// TxStream sends into the loopback pipeline.
type TxStream struct {
	dev    *Device
	args   device.StreamArgs
	closed atomic.Bool
}

// Args returns the arguments the stream was opened with.
func (s *TxStream) Args() device.StreamArgs { return s.args }

// Send implements device.TxStream. End-of-burst is only recorded when the
// whole buffer was accepted.
func (s *TxStream) Send(buf []sample.SC16, md device.TxMetadata, timeout time.Duration) (int, error) {
	if s.closed.Load() {
		return 0, errors.Wrap(errors.ErrStreamInvalid, "tx stream closed")
	}

	n := len(buf)
	if f, ok := s.dev.popSendFault(); ok {
		if f.Err != nil {
			return 0, f.Err
		}
		if f.Limit < n {
			n = f.Limit
		}
	}
	if limit := s.dev.cfg.MaxSendChunk; limit > 0 && limit < n {
		n = limit
	}
	if n == 0 && len(buf) > 0 {
		return 0, nil
	}

	s.dev.pipe.push(buf[:n], md.EndOfBurst && n == len(buf))
	return n, nil
}

// Close implements device.TxStream.
func (s *TxStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.dev.mu.Lock()
	s.dev.txCloses++
	s.dev.mu.Unlock()
	return nil
}
