package dem

import "errors"

var ErrNotSupported = errors.New("dem file is not a supported 1-band Geographic Lat/Lon WGS-84 BIL")
var ErrBadVertex = errors.New("aoi lower-left must be south-west of upper-right")
var ErrOutOfDEMBounds = errors.New("requested area exceeds the dem file bounds")
var ErrNegativeIndex = errors.New("negative row/col computed for dem area")
var ErrMinGreaterThanMax = errors.New("min row/col is greater than max row/col")
var ErrDataNotLoaded = errors.New("dem aoi data has not been loaded; call FillArray first")
var ErrNullValue = errors.New("dem cell holds the file's data-ignore value")
var ErrSpiralExhausted = errors.New("grid-walk spiral search exceeded its iteration cap without finding an intersecting facet")
