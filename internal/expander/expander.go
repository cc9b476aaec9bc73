// Package expander drives PCA95xx-style I²C GPIO expanders whose channels
// are spread over one or more 8-bit banks.
//
// Every bank owns four registers (input, output, polarity inversion,
// configuration). Registers of the same role are contiguous, so a
// two-bank device has its input banks at 0x00/0x01, its output banks at
// 0x02/0x03 and so on.
package expander

import (
	"fmt"

	"github.com/KevinKickass/OpenMachineIO/internal/transport"
	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

// Expander is a port expander bound to one slave address.
type Expander struct {
	regs    transport.Registers
	variant Variant
	width   int
	banks   int
}

// New wraps regs as a device of the given variant. No register is touched.
func New(regs transport.Registers, variant Variant) (*Expander, error) {
	width := variant.Width()
	if width == 0 {
		return nil, fmt.Errorf("%s: unsupported expander variant", string(variant))
	}
	return &Expander{
		regs:    regs,
		variant: variant,
		width:   width,
		banks:   variant.Banks(),
	}, nil
}

// Width returns the number of channels.
func (e *Expander) Width() int { return e.width }

func (e *Expander) String() string {
	return fmt.Sprintf("%s(%v)", e.variant, e.regs)
}

func (e *Expander) locate(role Role, channel int) (byte, byte, error) {
	if err := types.CheckRange("channel", channel, 0, e.width-1); err != nil {
		return 0, 0, err
	}
	addr, mask := Locate(role.Base(e.banks), BankSize, channel)
	return addr, mask, nil
}

// ReadChannel returns the pin level of channel from the input port.
func (e *Expander) ReadChannel(channel int) (bool, error) {
	addr, mask, err := e.locate(RoleInput, channel)
	if err != nil {
		return false, err
	}
	d, err := e.regs.ReadRegister(addr)
	if err != nil {
		return false, err
	}
	return d&mask == mask, nil
}

// WriteChannel sets or clears the output latch bit of channel, leaving the
// other bits of the bank untouched.
func (e *Expander) WriteChannel(channel int, value bool) error {
	addr, mask, err := e.locate(RoleOutput, channel)
	if err != nil {
		return err
	}
	return e.update(addr, mask, value)
}

// Function returns the direction of channel. A set configuration bit
// means input.
func (e *Expander) Function(channel int) (types.Function, error) {
	addr, mask, err := e.locate(RoleConfig, channel)
	if err != nil {
		return 0, err
	}
	d, err := e.regs.ReadRegister(addr)
	if err != nil {
		return 0, err
	}
	if d&mask == mask {
		return types.FunctionIn, nil
	}
	return types.FunctionOut, nil
}

// SetFunction changes the direction of channel.
func (e *Expander) SetFunction(channel int, fn types.Function) error {
	if !fn.Valid() {
		return &types.UnsupportedValueError{What: "function", Value: fmt.Sprint(int(fn))}
	}
	addr, mask, err := e.locate(RoleConfig, channel)
	if err != nil {
		return err
	}
	return e.update(addr, mask, fn == types.FunctionIn)
}

// ReadPort returns all input banks combined, bank 0 in the low byte.
func (e *Expander) ReadPort() (uint32, error) {
	return e.readBanks(RoleInput)
}

// WritePort writes value to the output banks, low byte to bank 0.
func (e *Expander) WritePort(value uint32) error {
	return e.writeBanks(RoleOutput, value)
}

// ReadLatch returns the output banks as last written.
func (e *Expander) ReadLatch() (uint32, error) {
	return e.readBanks(RoleOutput)
}

// SetPortFunction writes the configuration banks; a set bit makes the
// channel an input.
func (e *Expander) SetPortFunction(mask uint32) error {
	return e.writeBanks(RoleConfig, mask)
}

func (e *Expander) update(addr, mask byte, set bool) error {
	d, err := e.regs.ReadRegister(addr)
	if err != nil {
		return err
	}
	if set {
		d |= mask
	} else {
		d &^= mask
	}
	return e.regs.WriteRegister(addr, d)
}

func (e *Expander) readBanks(role Role) (uint32, error) {
	base := role.Base(e.banks)
	var value uint32
	for i := 0; i < e.banks; i++ {
		d, err := e.regs.ReadRegister(base + byte(i))
		if err != nil {
			return 0, err
		}
		value |= uint32(d) << (8 * i)
	}
	return value, nil
}

func (e *Expander) writeBanks(role Role, value uint32) error {
	base := role.Base(e.banks)
	for i := 0; i < e.banks; i++ {
		if err := e.regs.WriteRegister(base+byte(i), byte(value>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}
