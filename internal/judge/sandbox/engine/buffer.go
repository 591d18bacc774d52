package engine

import (
	"bytes"
	"sync"
)

// cappedBuffer keeps at most limit bytes and fires onOverflow once when more arrive.
// Writes never fail so the child does not see EPIPE before it is killed.
type cappedBuffer struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	limit      int64
	overflowed bool
	onOverflow func()
}

func newCappedBuffer(limit int64, onOverflow func()) *cappedBuffer {
	return &cappedBuffer{limit: limit, onOverflow: onOverflow}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	remaining := b.limit - int64(b.buf.Len())
	fire := false
	if int64(len(p)) > remaining {
		if remaining > 0 {
			b.buf.Write(p[:remaining])
		}
		if !b.overflowed {
			b.overflowed = true
			fire = true
		}
	} else {
		b.buf.Write(p)
	}
	b.mu.Unlock()

	if fire && b.onOverflow != nil {
		b.onOverflow()
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
