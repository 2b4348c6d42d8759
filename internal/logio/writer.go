package logio

import (
	"bytes"
	"sync"
)

// Writer passes each line written to it through Logf, as when dumping a
// machine into t.Logf. Prefix, if any, starts every line.
type Writer struct {
	Logf   func(mess string, args ...interface{})
	Prefix string

	mu      sync.Mutex
	partial []byte
}

// Write logs every line that p completes, holding back any trailing partial
// line for a later Write or Close.
func (lw *Writer) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.partial = append(lw.partial, p...)
	for {
		i := bytes.IndexByte(lw.partial, '\n')
		if i < 0 {
			break
		}
		lw.logLine(lw.partial[:i])
		lw.partial = lw.partial[i+1:]
	}
	return len(p), nil
}

// Close logs any final partial line.
func (lw *Writer) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.partial) > 0 {
		lw.logLine(lw.partial)
	}
	lw.partial = nil
	return nil
}

func (lw *Writer) logLine(line []byte) {
	lw.Logf("%s%s", lw.Prefix, line)
}
