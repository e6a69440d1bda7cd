package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestTagAndShort(t *testing.T) {
	dev := Info{Version: "dev", CommitHash: "0123456789abcdef"}
	assert.Equal(t, "0123456", dev.Short())
	assert.Equal(t, "dev-0123456", dev.Tag())
	assert.Equal(t, "rfbridge dev (commit 0123456, built )", dev.String())

	tagged := Info{Version: "v1.2.0", CommitHash: "abc"}
	assert.Equal(t, "abc", tagged.Short())
	assert.Equal(t, "v1.2.0", tagged.Tag())
}
