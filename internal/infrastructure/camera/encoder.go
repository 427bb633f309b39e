package camera

import (
	"fmt"
	"image"
	"image/jpeg"

	"petwatch/internal/core/domain"
	"petwatch/pkg/optimize"
)

const (
	encodeBufferSize = 256 << 10
	encodeBufferMax  = 8 << 20
)

// JPEGEncoder compresses raw frames to JPEG. Stateless apart from an
// internal buffer pool; safe to call from the acquisition loop without
// synchronization.
type JPEGEncoder struct {
	buffers *optimize.BufferPool
}

func NewJPEGEncoder() *JPEGEncoder {
	return &JPEGEncoder{
		buffers: optimize.NewBufferPool(encodeBufferSize, encodeBufferMax),
	}
}

func (e *JPEGEncoder) Encode(frame image.Image, quality int) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", domain.ErrEncodingFailed)
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("%w: quality %d out of range", domain.ErrEncodingFailed, quality)
	}

	buf := e.buffers.Get()
	defer e.buffers.Put(buf)

	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncodingFailed, err)
	}

	// The returned frame outlives the pooled buffer, so copy out.
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
