package testutil

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"babelchat/internal/pkg/logx"
)

// LogBuffer is a goroutine-safe log sink.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CaptureLogs routes the global logger into a buffer for the duration of the test.
func CaptureLogs(t testing.TB) *LogBuffer {
	t.Helper()

	buf := &LogBuffer{}
	logx.SetOutput(buf)
	t.Cleanup(func() { logx.SetOutput(io.Discard) })
	return buf
}
