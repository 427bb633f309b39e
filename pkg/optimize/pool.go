package optimize

import (
	"bytes"
	"sync"
)

// BufferPool recycles byte buffers for hot paths that build one payload
// per frame. Buffers that grew beyond maxRetained are not returned to the
// pool so a single oversized frame cannot pin memory.
type BufferPool struct {
	pool        sync.Pool
	maxRetained int
}

// NewBufferPool creates a buffer pool. Buffers start at initialSize and
// are discarded on Put once their capacity exceeds maxRetained.
func NewBufferPool(initialSize, maxRetained int) *BufferPool {
	return &BufferPool{
		maxRetained: maxRetained,
		pool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, initialSize))
			},
		},
	}
}

// Get gets an empty buffer from the pool
func (p *BufferPool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > p.maxRetained {
		return
	}
	p.pool.Put(buf)
}
