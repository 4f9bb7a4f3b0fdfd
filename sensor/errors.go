package sensor

import "errors"

var ErrUnknownSensorID = errors.New("sensor id not recognised")
var ErrBinningRatio = errors.New("binning ratio is not an integer >= 1")
var ErrMissingHeaderKey = errors.New("required header key is missing")
var ErrFenixSubRange = errors.New("fenix sub-sensor band range is invalid")
