package spdreader

import (
	"errors"
	"fmt"
)

// ErrInvalidImage is returned for images that break the length/validity invariants.
var ErrInvalidImage = errors.New("invalid SPD image")

func invalidImagef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidImage, fmt.Sprintf(format, args...))
}
