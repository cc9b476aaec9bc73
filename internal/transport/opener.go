package transport

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// Layout describes the register map of a chip.
type Layout int

const (
	ByteRegisters Layout = iota // 8-bit registers, auto-increment
	WordRegisters               // 16-bit registers behind a pointer byte
	OneBankPort                 // PCA95xx expander, one 8-bit bank
	TwoBankPort                 // PCA95xx expander, two 8-bit banks
)

// PortLayout returns the expander layout with the given number of banks.
func PortLayout(banks int) Layout {
	if banks > 1 {
		return TwoBankPort
	}
	return OneBankPort
}

// Banks returns the expander bank count of l, or 0 for plain register maps.
func (l Layout) Banks() int {
	switch l {
	case OneBankPort:
		return 1
	case TwoBankPort:
		return 2
	default:
		return 0
	}
}

// Opener hands out register transports for slave addresses on named buses.
type Opener interface {
	Open(bus string, addr uint16, layout Layout) (Registers, error)
	Close() error
}

// PeriphOpener opens buses through the periph.io registry. The host drivers
// must be initialised (host.Init) before the first Open.
type PeriphOpener struct {
	mu    sync.Mutex
	buses map[string]i2c.BusCloser
}

func NewPeriphOpener() *PeriphOpener {
	return &PeriphOpener{buses: make(map[string]i2c.BusCloser)}
}

// Open returns a transport for addr on bus. The layout needs no special
// handling on the wire.
func (o *PeriphOpener) Open(bus string, addr uint16, _ Layout) (Registers, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	b, ok := o.buses[bus]
	if !ok {
		var err error
		b, err = i2creg.Open(bus)
		if err != nil {
			return nil, fmt.Errorf("failed to open i2c bus %q: %w", bus, err)
		}
		o.buses[bus] = b
	}
	return NewI2C(b, addr), nil
}

// Close closes every bus opened so far.
func (o *PeriphOpener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	for name, b := range o.buses {
		if cerr := b.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close bus %q: %w", name, cerr))
		}
		delete(o.buses, name)
	}
	return err
}

// SimOpener hands out one Memory per (bus, address) pair. Register files
// start from the chips' power-on state and live as long as the opener. On
// expander ports the pins follow the output latches.
type SimOpener struct {
	mu      sync.Mutex
	devices map[string]*Memory
}

func NewSimOpener() *SimOpener {
	return &SimOpener{devices: make(map[string]*Memory)}
}

func (o *SimOpener) Open(bus string, addr uint16, layout Layout) (Registers, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := simKey(bus, addr)
	m, ok := o.devices[key]
	if !ok {
		m = newSimMemory("sim:"+bus, addr, layout)
		o.devices[key] = m
	}
	return m, nil
}

// ADS1x15 config register reset value.
var wordConfigReset = []byte{0x85, 0x83}

func newSimMemory(name string, addr uint16, layout Layout) *Memory {
	if layout == WordRegisters {
		m := NewWordMemory(name, addr)
		m.Poke(0x01, wordConfigReset...)
		return m
	}

	m := NewMemory(name, addr)
	banks := layout.Banks()
	for i := 0; i < banks; i++ {
		input, output, config := byte(i), byte(banks+i), byte(3*banks+i)
		m.Poke(input, 0xFF)
		m.Poke(output, 0xFF)
		m.Poke(config, 0xFF)
		m.Mirror(output, input)
	}
	return m
}

// Memory returns the register file behind (bus, addr), or nil if it was
// never opened.
func (o *SimOpener) Memory(bus string, addr uint16) *Memory {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.devices[simKey(bus, addr)]
}

func simKey(bus string, addr uint16) string {
	return fmt.Sprintf("%s/0x%02X", bus, addr)
}

func (o *SimOpener) Close() error { return nil }
