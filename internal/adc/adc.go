// Package adc drives ADS1x15-family I²C analog-to-digital converters in
// single-shot mode.
package adc

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/KevinKickass/OpenMachineIO/internal/transport"
)

// Registers
const (
	RegConversion = 0x00
	RegConfig     = 0x01
	RegLoThresh   = 0x02
	RegHiThresh   = 0x03
)

// Bitfields of the high configuration byte.
const (
	configStatusMask  = 0x80
	configChannelMask = 0x70
	configGainMask    = 0x0E
	configModeMask    = 0x01

	modeSingleShot = 0x01
	gainFS2048     = 0x02 // FS = +/- 2.048V
)

// FullScale is the input range in volts selected by gainFS2048.
const FullScale = 2.048

// ConversionDelay is the default wait between triggering a conversion and
// reading its result.
const ConversionDelay = 8 * time.Millisecond

var sleep = time.Sleep

// Variant is the type denoting a specific converter chip.
type Variant string

const (
	ADS1015 Variant = "ADS1015" // 12-bit, 4 channels
	ADS1115 Variant = "ADS1115" // 16-bit, 4 channels
)

var resolutions = map[Variant]int{
	ADS1015: 12,
	ADS1115: 16,
}

// AddressRange returns the four strappable slave addresses shared by the family.
func (v Variant) AddressRange() (uint16, uint16, error) {
	if _, ok := resolutions[v]; !ok {
		return 0, 0, fmt.Errorf("%s: unsupported converter variant", string(v))
	}
	return 0x48, 0x4B, nil
}

// ADC is a converter bound to one slave address.
type ADC struct {
	regs       transport.Registers
	variant    Variant
	resolution int
	delay      time.Duration
}

type Option func(*ADC)

// WithConversionDelay overrides ConversionDelay.
func WithConversionDelay(d time.Duration) Option {
	return func(a *ADC) { a.delay = d }
}

// New configures the converter for single-shot conversions at ±2.048V full
// scale and returns it.
func New(regs transport.Registers, variant Variant, opts ...Option) (*ADC, error) {
	res, ok := resolutions[variant]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported converter variant", string(variant))
	}
	a := &ADC{
		regs:       regs,
		variant:    variant,
		resolution: res,
		delay:      ConversionDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.configure(); err != nil {
		return nil, err
	}
	return a, nil
}

// Resolution returns the effective number of result bits.
func (a *ADC) Resolution() int { return a.resolution }

func (a *ADC) String() string {
	return fmt.Sprintf("%s(%v)", a.variant, a.regs)
}

func (a *ADC) configure() error {
	config, err := a.readWord(RegConfig)
	if err != nil {
		return err
	}

	config[0] = config[0]&^configModeMask | modeSingleShot
	config[0] = config[0]&^configGainMask | gainFS2048<<1
	config[0] |= configStatusMask

	return a.regs.WriteRegisters(RegConfig, config)
}

// ReadChannel converts one input and returns the signed result. Single-ended
// reads measure channel against ground; differential reads use the
// converter's channel-pair code directly. channel is not validated here.
func (a *ADC) ReadChannel(channel int, differential bool) (int, error) {
	config, err := a.readWord(RegConfig)
	if err != nil {
		return 0, err
	}

	code := channel + 4
	if differential {
		code = channel
	}
	config[0] &^= configChannelMask
	config[0] |= byte(code<<4) & configChannelMask
	config[0] |= configStatusMask

	if err := a.regs.WriteRegisters(RegConfig, config); err != nil {
		return 0, err
	}

	sleep(a.delay)

	d, err := a.readWord(RegConversion)
	if err != nil {
		return 0, err
	}
	return Decode(binary.BigEndian.Uint16(d), a.resolution), nil
}

func (a *ADC) readWord(reg byte) ([]byte, error) {
	d, err := a.regs.ReadRegisters(reg, 2)
	if err != nil {
		return nil, err
	}
	if len(d) < 2 {
		return nil, fmt.Errorf("%s: short read of register 0x%02X: got %d bytes", a.variant, reg, len(d))
	}
	return d[:2], nil
}

// Decode aligns a raw 16-bit result register to resolution bits and
// interprets it as two's complement.
func Decode(raw uint16, resolution int) int {
	return SignExtend(uint32(raw)>>(16-resolution), resolution)
}

// SignExtend interprets the low bits of value as a two's-complement integer.
func SignExtend(value uint32, bits int) int {
	v := int(value & (1<<bits - 1))
	if v&(1<<(bits-1)) != 0 {
		v -= 1 << bits
	}
	return v
}
