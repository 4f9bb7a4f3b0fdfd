// Package raster is the shared file-reading capability consumed by the
// raw imagery, calibration, DEM, navigation and view-vector readers.
// It implements the ENVI-style BIL/BSQ container with its key/value
// .hdr sidecar.
package raster

// Stream caters for a generic reader/writer so the same capability can
// sit on top of an in-memory buffer, a local file, or (in principle) an
// object-store handle.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// Tell reports the current position within an opened stream.
func Tell(s Stream) (int64, error) {
	return s.Seek(0, 1)
}
