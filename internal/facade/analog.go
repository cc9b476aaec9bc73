package facade

import (
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

// AIO-32/0RA-IRC properties.
const (
	AnalogChannels   = 32
	AnalogResolution = 16
	AnalogMax        = 1<<(AnalogResolution-1) - 1

	// AnalogReference is the full-scale voltage seen at the terminals: the
	// converter's 2.048V range behind a 10:49 input divider.
	AnalogReference = 2.048 / 10 * 49
)

// ExtendedReader converts one logical channel of a multiplexed converter.
type ExtendedReader interface {
	ReadExtendedChannel(channel int, differential bool) (int, error)
}

// Analog is the AIO-32/0RA-IRC board: an ADS1x15 behind two 16:1
// multiplexers addressed through a PCA9554A. Without WithResolution it
// assumes the ADS1115 the board ships with.
type Analog struct {
	reader  ExtendedReader
	adcAddr uint16
	muxAddr uint16

	count      int
	resolution int
	max        int
	vref       float64
}

type AnalogOption func(*Analog)

// WithResolution sets the converter resolution in bits. Max follows as the
// largest positive code.
func WithResolution(bits int) AnalogOption {
	return func(a *Analog) {
		a.resolution = bits
		a.max = 1<<(bits-1) - 1
	}
}

// WithReference overrides AnalogReference. Zero disables voltage reads.
func WithReference(volts float64) AnalogOption {
	return func(a *Analog) { a.vref = volts }
}

func NewAnalog(reader ExtendedReader, adcAddr, muxAddr uint16, opts ...AnalogOption) *Analog {
	a := &Analog{
		reader:     reader,
		adcAddr:    adcAddr,
		muxAddr:    muxAddr,
		count:      AnalogChannels,
		resolution: AnalogResolution,
		max:        AnalogMax,
		vref:       AnalogReference,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analog) Family() types.Family { return types.FamilyADC }
func (a *Analog) ChannelCount() int    { return a.count }
func (a *Analog) Resolution() int      { return a.resolution }
func (a *Analog) Max() int             { return a.max }
func (a *Analog) Reference() float64   { return a.vref }

func (a *Analog) String() string {
	return fmt.Sprintf("AIO-32/0RA-IRC(slaveAdc=0x%02X, slaveMux=0x%02X)", a.adcAddr, a.muxAddr)
}

// Close is a no-op; the board holds no outputs.
func (a *Analog) Close() error { return nil }

// ReadInteger returns the signed conversion result of channel.
func (a *Analog) ReadInteger(channel int, differential bool) (int, error) {
	if err := checkChannel(channel, a.count); err != nil {
		return 0, err
	}
	return a.reader.ReadExtendedChannel(channel, differential)
}

// ReadFloat returns the result scaled to Max.
func (a *Analog) ReadFloat(channel int, differential bool) (float64, error) {
	v, err := a.ReadInteger(channel, differential)
	if err != nil {
		return 0, err
	}
	return float64(v) / float64(a.max), nil
}

// ReadVolt returns the result in volts at the terminal.
func (a *Analog) ReadVolt(channel int, differential bool) (float64, error) {
	if a.vref == 0 {
		return 0, &types.UnsupportedOperationError{Op: "voltage read", Reason: "reference voltage is zero"}
	}
	f, err := a.ReadFloat(channel, differential)
	if err != nil {
		return 0, err
	}
	return f * a.vref, nil
}

// ReadPotential is ReadVolt as a physical quantity.
func (a *Analog) ReadPotential(channel int, differential bool) (physic.ElectricPotential, error) {
	v, err := a.ReadVolt(channel, differential)
	if err != nil {
		return 0, err
	}
	return physic.ElectricPotential(v * float64(physic.Volt)), nil
}

// ReadAllInteger reads every channel in ascending order. The first failing
// channel aborts the whole read.
func (a *Analog) ReadAllInteger(differential bool) (map[int]int, error) {
	values := make(map[int]int, a.count)
	for i := 0; i < a.count; i++ {
		v, err := a.ReadInteger(i, differential)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// ReadAllFloat is ReadFloat for every channel, rounded to three decimals.
func (a *Analog) ReadAllFloat(differential bool) (map[int]float64, error) {
	return a.readAll(a.ReadFloat, differential)
}

// ReadAllVolt is ReadVolt for every channel, rounded to three decimals.
func (a *Analog) ReadAllVolt(differential bool) (map[int]float64, error) {
	return a.readAll(a.ReadVolt, differential)
}

func (a *Analog) readAll(read func(int, bool) (float64, error), differential bool) (map[int]float64, error) {
	values := make(map[int]float64, a.count)
	for i := 0; i < a.count; i++ {
		v, err := read(i, differential)
		if err != nil {
			return nil, err
		}
		values[i] = round3(v)
	}
	return values, nil
}
