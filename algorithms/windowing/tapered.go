package windowing

import (
	"fmt"
	"math"
)

// coefficientFunc returns the weight of sample i given the period denominator
type coefficientFunc func(i int, denominator float64) float64

func cosineSum(terms ...float64) coefficientFunc {
	return func(i int, denominator float64) float64 {
		x := 2 * math.Pi * float64(i) / denominator
		sum, sign := 0.0, 1.0
		for k, a := range terms {
			sum += sign * a * math.Cos(float64(k)*x)
			sign = -sign
		}
		return sum
	}
}

func bartlett(i int, denominator float64) float64 {
	return 1.0 - math.Abs(2.0*float64(i)/denominator-1.0)
}

func welch(i int, denominator float64) float64 {
	arg := 2.0*float64(i)/denominator - 1.0
	return 1.0 - arg*arg
}

var generators = map[string]coefficientFunc{
	TypeHann:           cosineSum(0.5, 0.5),
	TypeHamming:        cosineSum(0.54, 0.46),
	TypeBlackman:       cosineSum(0.42, 0.5, 0.08),
	TypeBlackmanHarris: cosineSum(0.35875, 0.48829, 0.14128, 0.01168),
	TypeBartlett:       bartlett,
	TypeWelch:          welch,
}

// Tapered is a fixed-shape window whose coefficients are computed once.
// Periodic windows (symmetric=false) divide by size rather than size-1,
// which is the variant suited to overlapping STFT frames.
type Tapered struct {
	windowType   string
	size         int
	symmetric    bool
	coefficients []float64
}

// NewTapered builds a tapered window of a known type
func NewTapered(windowType string, size int, symmetric bool) (*Tapered, error) {
	gen, ok := generators[windowType]
	if !ok {
		return nil, fmt.Errorf("unknown window type %q", windowType)
	}

	t := &Tapered{
		windowType:   windowType,
		size:         size,
		symmetric:    symmetric,
		coefficients: make([]float64, size),
	}

	denominator := float64(size)
	if symmetric {
		denominator = float64(size - 1)
	}
	for i := range size {
		if denominator <= 0 {
			t.coefficients[i] = 1.0
			continue
		}
		t.coefficients[i] = gen(i, denominator)
	}
	return t, nil
}

// ApplyInPlace applies the window to a signal in-place
func (t *Tapered) ApplyInPlace(signal []float64) error {
	if len(signal) != t.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), t.size)
	}

	for i := range t.size {
		signal[i] *= t.coefficients[i]
	}
	return nil
}

// GetSize returns the window size
func (t *Tapered) GetSize() int {
	return t.size
}

// GetType returns the window type
func (t *Tapered) GetType() string {
	return t.windowType
}
