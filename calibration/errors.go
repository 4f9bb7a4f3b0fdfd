package calibration

import "errors"

var ErrNoCalibrationFile = errors.New("calibration file is not set")
var ErrCalBinningTooCoarse = errors.New("calibration file binning is coarser than the raw data, calibration file is unsuitable")
var ErrBinningRatioNotInteger = errors.New("ratio of raw to calibration binning is not an integer")
var ErrCalLinesNotOne = errors.New("calibration file should have exactly one line of data")
var ErrSampleCountMismatch = errors.New("binned calibration samples do not match raw image samples")
var ErrWavelengthDisagreement = errors.New("raw file bands disagree with calibration file wavelengths")
var ErrUnrecognisedSensorForBinning = errors.New("unrecognised sensor kind for gain binning divisor")
var ErrZeroIntegrationTime = errors.New("integration time is 0, cannot apply gains")
var ErrDarkNotInitialised = errors.New("average dark frame array has not been initialised")
var ErrDarkExceedsRawMax = errors.New("average dark value exceeds the raw maximum")
var ErrMissingBadPixelFile = errors.New("bad pixels array not declared for a sensor that requires a bad pixel file")
var ErrFodisNotInitialised = errors.New("fodis array has not been initialised")
var ErrFrameCounterJump = errors.New("frame counter change is neither a forward jump nor a wraparound")
