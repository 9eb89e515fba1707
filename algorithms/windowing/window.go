package windowing

import (
	"fmt"
	"strings"
)

// Window names accepted by New
const (
	TypeRectangular    = "rectangular"
	TypeHann           = "hann"
	TypeHamming        = "hamming"
	TypeBlackman       = "blackman"
	TypeBlackmanHarris = "blackman_harris"
	TypeBartlett       = "bartlett"
	TypeWelch          = "welch"
)

var aliases = map[string]string{
	"":                TypeRectangular,
	"boxcar":          TypeRectangular,
	"none":            TypeRectangular,
	"hanning":         TypeHann,
	"blackman-harris": TypeBlackmanHarris,
	"triangular":      TypeBartlett,
}

// Window is a tapering function applied to each analysis frame
type Window interface {
	ApplyInPlace(signal []float64) error
	GetSize() int
	GetType() string
}

// New returns a periodic window of the named type. An empty name selects
// the rectangular window, which leaves frames untouched.
func New(name string, size int) (Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive: %d", size)
	}

	windowType := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[windowType]; ok {
		windowType = alias
	}

	if windowType == TypeRectangular {
		return NewRectangular(size), nil
	}
	return NewTapered(windowType, size, false)
}
