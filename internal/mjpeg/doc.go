// Package mjpeg splits a continuous MJPEG byte stream into discrete JPEG frames.
//
// The camera daemon serves its live view as a never-ending HTTP body made of
// concatenated JPEG images. Multipart boundary headers are not trusted; frames are
// located only by the JPEG start-of-image (FF D8) and end-of-image (FF D9) markers.
//
// Usage:
//
//	d := mjpeg.NewDemuxer()
//	for {
//		n, err := body.Read(buf)
//		for _, f := range d.Write(buf[:n], time.Now()) {
//			handle(f)
//		}
//		...
//	}
//
// The demuxer never returns errors. Bytes that do not form a frame are dropped,
// and a marker split across two reads is handled by retaining the last byte of a
// chunk that contained no start marker.
//
// Known limitation: the payload is not validated. A byte pair inside image data that
// happens to equal FF D9 ends the frame early. JPEG byte stuffing makes this rare
// in entropy-coded data, but embedded thumbnails (EXIF) can trigger it.
package mjpeg
