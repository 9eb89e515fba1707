package spectral

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-tempo/algorithms/windowing"
)

// FrameFunc receives the magnitude spectrum of one analysis frame.
// The slice is reused between calls; copy it to retain it.
type FrameFunc func(frameIdx int, magnitude []float64) error

// STFT provides Short-Time Fourier Transform functionality.
//
// Frames are processed strictly left to right on the calling goroutine so
// that consumers observe them in time order.
type STFT struct {
	fft *FFT
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// FrameCount returns how many complete frames fit in a signal.
// Signals shorter than one window have no frames.
func FrameCount(signalLen, windowSize, hopSize int) int {
	if windowSize <= 0 || hopSize <= 0 || signalLen < windowSize {
		return 0
	}
	return (signalLen-windowSize)/hopSize + 1
}

// Frames walks the signal frame by frame and hands each magnitude spectrum
// to fn. The context is checked between frames; a cancelled context stops
// the walk and its error is returned. An error from fn also stops the walk.
func (s *STFT) Frames(ctx context.Context, signal []float64, windowSize, hopSize int, window windowing.Window, fn FrameFunc) error {
	if windowSize <= 0 {
		return fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return fmt.Errorf("hop size must be positive")
	}

	if window != nil && window.GetSize() != windowSize {
		return fmt.Errorf("window length (%d) doesn't match window size (%d)", window.GetSize(), windowSize)
	}

	numFrames := FrameCount(len(signal), windowSize, hopSize)

	frameBuffer := make([]float64, windowSize)
	magnitude := make([]float64, windowSize/2)

	for frameIdx := range numFrames {
		if err := ctx.Err(); err != nil {
			return err
		}

		startIdx := frameIdx * hopSize
		copy(frameBuffer, signal[startIdx:startIdx+windowSize])

		if window != nil {
			if err := window.ApplyInPlace(frameBuffer); err != nil {
				return fmt.Errorf("frame %d: %w", frameIdx, err)
			}
		}

		magnitude = s.fft.MagnitudeSpectrumInto(magnitude, frameBuffer)

		if err := fn(frameIdx, magnitude); err != nil {
			return err
		}
	}

	return nil
}
