//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// RealReader reads the power rails using the Linux GPIO character device.
type RealReader struct {
	chip      *gpiocdev.Chip
	ampPin    *gpiocdev.Line
	sourcePin *gpiocdev.Line
}

// NewRealReader requests both sense lines as pulled-up inputs.
func NewRealReader(chipName string, pins Pins) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	ampLine, err := chip.RequestLine(pins.Amp, inputOptions(pins.AmpActiveLow)...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request amp pin %d: %w", pins.Amp, err)
	}

	sourceLine, err := chip.RequestLine(pins.Source, inputOptions(pins.SourceActiveLow)...)
	if err != nil {
		ampLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request source pin %d: %w", pins.Source, err)
	}

	return &RealReader{
		chip:      chip,
		ampPin:    ampLine,
		sourcePin: sourceLine,
	}, nil
}

func inputOptions(activeLow bool) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	return opts
}

// Read returns the logical levels. Polarity is applied by the kernel.
func (r *RealReader) Read() (bool, bool, error) {
	amp, err := r.ampPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read amp pin: %w", err)
	}

	source, err := r.sourcePin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read source pin: %w", err)
	}

	return amp == 1, source == 1, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var err error
	if r.ampPin != nil {
		err = multierr.Append(err, wrap("close amp pin", r.ampPin.Close()))
	}
	if r.sourcePin != nil {
		err = multierr.Append(err, wrap("close source pin", r.sourcePin.Close()))
	}
	if r.chip != nil {
		err = multierr.Append(err, wrap("close chip", r.chip.Close()))
	}
	return err
}

// RealOutput drives one output line, initially low.
type RealOutput struct {
	line *gpiocdev.Line
}

// NewRealOutput requests pin on chipName as an output driven low.
func NewRealOutput(chipName string, pin int) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chipName, pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	return &RealOutput{line: line}, nil
}

// SetValue drives the line.
func (o *RealOutput) SetValue(v int) error {
	return o.line.SetValue(v)
}

// Close drives the line low, returns it to an input, and releases it.
// Leaving relay or LED pins driven after exit would hold the coil or LED on.
func (o *RealOutput) Close() error {
	err := wrap("drive low", o.line.SetValue(0))
	err = multierr.Append(err, wrap("reconfigure as input", o.line.Reconfigure(gpiocdev.AsInput)))
	return multierr.Append(err, wrap("close line", o.line.Close()))
}

func wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
