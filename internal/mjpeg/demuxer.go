package mjpeg

import (
	"bytes"
	"time"
)

var (
	soiMarker = []byte{0xFF, 0xD8}
	eoiMarker = []byte{0xFF, 0xD9}
)

// Frame is one complete JPEG image cut out of the stream, SOI through EOI inclusive.
type Frame struct {
	Data []byte
	At   time.Time
}

// Len returns the frame size in bytes.
func (f Frame) Len() int { return len(f.Data) }

// Demuxer accumulates stream bytes and emits complete frames in arrival order.
// A Demuxer is not safe for concurrent use; each stream session owns its own.
type Demuxer struct {
	// NewBuffer allocates the backing storage for an emitted frame. The returned
	// slice must have length n. Nil means make([]byte, n).
	NewBuffer func(n int) []byte

	buf []byte
	// eoiFrom is the offset (relative to the SOI at buf[0]) where the next EOI
	// search resumes, so an incomplete frame is not rescanned on every chunk.
	eoiFrom int
}

// NewDemuxer returns an empty demuxer.
func NewDemuxer() *Demuxer {
	return &Demuxer{}
}

// Write appends chunk to the accumulation buffer and returns every frame it
// completes. All returned frames are stamped with now.
func (d *Demuxer) Write(chunk []byte, now time.Time) []Frame {
	if len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for len(d.buf) > 1 {
		if d.eoiFrom == 0 {
			soi := bytes.Index(d.buf, soiMarker)
			if soi < 0 {
				// Last byte may be the first half of a split marker.
				d.buf = append(d.buf[:0], d.buf[len(d.buf)-1])
				break
			}
			if soi > 0 {
				d.buf = d.buf[soi:]
			}
			d.eoiFrom = len(soiMarker)
		}

		eoi := bytes.Index(d.buf[d.eoiFrom:], eoiMarker)
		if eoi < 0 {
			// Frame still incomplete; resume on the byte that could start a split EOI.
			d.eoiFrom = max(len(soiMarker), len(d.buf)-1)
			break
		}

		end := d.eoiFrom + eoi + len(eoiMarker)
		frames = append(frames, Frame{Data: d.copyFrame(d.buf[:end]), At: now})
		d.buf = d.buf[end:]
		d.eoiFrom = 0
	}

	return frames
}

// Buffered returns the number of bytes retained while waiting for more input.
func (d *Demuxer) Buffered() int {
	return len(d.buf)
}

// Reset drops all buffered bytes.
func (d *Demuxer) Reset() {
	d.buf = nil
	d.eoiFrom = 0
}

func (d *Demuxer) copyFrame(src []byte) []byte {
	var dst []byte
	if d.NewBuffer != nil {
		dst = d.NewBuffer(len(src))[:len(src)]
	} else {
		dst = make([]byte, len(src))
	}
	copy(dst, src)
	return dst
}
