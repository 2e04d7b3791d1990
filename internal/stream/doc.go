// Package stream runs live MJPEG stream sessions for cameras.
//
// A Session is one connection attempt identified by a session key: it opens the
// camera stream, splits it into frames, measures the delivered frame rate and
// keeps the newest frame as the current Handle. A Viewer owns the sessions of
// one camera and replaces them when the connection fails or the camera is
// restarted. A Pool manages the viewers of every configured camera.
//
// State machine of a session:
//
//	idle -> connecting -> streaming -> error | closed
//
// Closed is terminal for a key and only reached through cancellation, which is
// never reported as an error.
package stream
