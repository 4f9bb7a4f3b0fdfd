package raster

import "errors"

var ErrMissingKey = errors.New("required header key is missing")
var ErrUnsupportedInterleave = errors.New("unsupported interleave, want bil or bsq")
var ErrUnsupportedDataType = errors.New("unsupported data type code")
var ErrBadIndex = errors.New("band/line/sample index out of range")
var ErrShortRead = errors.New("short read from underlying stream")
