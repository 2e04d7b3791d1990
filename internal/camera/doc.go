// Package camera talks to the camera daemon's HTTP interface: it opens the
// multipart MJPEG stream of one camera and supplies the bearer token the
// daemon expects on the query string.
package camera
