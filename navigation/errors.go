package navigation

import "errors"

var ErrUnexpectedShape = errors.New("navigation file must have 1 sample and 7 bands per scan")
var ErrScanOutOfRange = errors.New("scan number is larger than the total number of scans in file")
var ErrBadRange = errors.New("upper scan bound must be greater than lower scan bound")
var ErrNonMonotonicTime = errors.New("navigation scan times are not monotonically increasing")
