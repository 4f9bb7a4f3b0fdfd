package geocorrection

import "errors"

var ErrNoNavigationRecord = errors.New("navigation record required to geolocate a scan line")
var ErrViewVectorCountMismatch = errors.New("view-vector table sample count does not match the scan's pixel count")
var ErrDEMNotCovered = errors.New("dem does not cover the entire flight line")
