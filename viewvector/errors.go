package viewvector

import "errors"

var ErrBandCount = errors.New("view vector file must contain exactly 3 bands: rotations about X, Y and Z")
var ErrInvalidBinning = errors.New("spatial binning must be a positive integer")
var ErrSampleMismatch = errors.New("binned view vector table does not match the level-1 sample count")
