package darkframe

import "errors"

var ErrNoDarkFrames = errors.New("no dark frames available and dark subtraction was not disabled")
var ErrDarkStartAmbiguous = errors.New("autodarkstartline is ambiguous: no frame counter jump between light and dark frames")
var ErrTimeScalarNotUnity = errors.New("external dark file integration time scalar is not 1, pairing rejected")
var ErrDimensionMismatch = errors.New("external dark file dimensions do not match the raw file")
