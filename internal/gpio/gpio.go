// Package gpio provides power-rail sensing and output lines with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Reader reads the sensed power rails.
type Reader interface {
	// Read returns the logical levels of amplifier power and source power.
	// Returns (ampOn, sourceOn, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Output is a single digital output line.
type Output interface {
	SetValue(value int) error
	Close() error
}

// Default pin offsets (BCM numbering).
const (
	DefaultPinAmp    = 4  // amplifier power sense
	DefaultPinSource = 17 // source power sense
	DefaultPinRelay  = 27 // relay coil
	DefaultPinLED    = 22 // indicator LED
	DefaultPinIR     = 23 // IR transmit LED
)

// DefaultChip is the GPIO character device used on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// consumer labels requested lines in gpioinfo output.
const consumer = "amp-ircontrol"

// Pins selects the input offsets and their polarity.
type Pins struct {
	Amp    int
	Source int
	// ActiveLow inverts a rail: a low pin reads as ON.
	AmpActiveLow    bool
	SourceActiveLow bool
}
