package transport

import (
	"fmt"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
	"periph.io/x/conn/v3/i2c"
)

// I2C implements Registers for one slave address on a periph.io bus.
type I2C struct {
	dev  *i2c.Dev
	name string
}

func NewI2C(bus i2c.Bus, addr uint16) *I2C {
	return &I2C{
		dev:  &i2c.Dev{Bus: bus, Addr: addr},
		name: bus.String(),
	}
}

// Addr returns the 7-bit slave address.
func (c *I2C) Addr() uint16 { return c.dev.Addr }

func (c *I2C) String() string {
	return fmt.Sprintf("%s(addr=0x%02X)", c.name, c.dev.Addr)
}

// ReadRegister schreibt die Registeradresse und liest ein Byte zurück
func (c *I2C) ReadRegister(reg byte) (byte, error) {
	var b [1]byte
	if err := c.dev.Tx([]byte{reg}, b[:]); err != nil {
		return 0, c.fail("read", reg, err)
	}
	return b[0], nil
}

func (c *I2C) WriteRegister(reg byte, value byte) error {
	if err := c.dev.Tx([]byte{reg, value}, nil); err != nil {
		return c.fail("write", reg, err)
	}
	return nil
}

// ReadRegisters reads count bytes in device-address order, relying on the
// chip's register auto-increment.
func (c *I2C) ReadRegisters(reg byte, count int) ([]byte, error) {
	if count <= 0 {
		return nil, c.fail("read", reg, fmt.Errorf("invalid count %d", count))
	}
	buf := make([]byte, count)
	if err := c.dev.Tx([]byte{reg}, buf); err != nil {
		return nil, c.fail("read", reg, err)
	}
	return buf, nil
}

func (c *I2C) WriteRegisters(reg byte, values []byte) error {
	w := make([]byte, 0, len(values)+1)
	w = append(w, reg)
	w = append(w, values...)
	if err := c.dev.Tx(w, nil); err != nil {
		return c.fail("write", reg, err)
	}
	return nil
}

func (c *I2C) fail(op string, reg byte, err error) error {
	return &types.TransportError{
		Op:       op,
		Bus:      c.name,
		Addr:     c.dev.Addr,
		Register: reg,
		Err:      err,
	}
}
