package badpixel

import "errors"

var ErrEmptyStream = errors.New("bad pixel file is empty")
var ErrIDSequence = errors.New("bad pixel file: id does not increase by 1")
var ErrExpectedGON = errors.New("bad pixel file: expected GON sentinel as the sixth field")
var ErrMissingHeaderLines = errors.New("bad pixel file: cannot parse headerlines= count")
var ErrTooManyMethodLines = errors.New("bad pixel file: more method descriptor lines than declared")
var ErrUnknownMethod = errors.New("bad pixel file: unrecognised detection method letter")
