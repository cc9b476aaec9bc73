package facade

import (
	"fmt"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

const (
	DigitalChannels = 16
	relayChannels   = 8
	portMask        = 1<<DigitalChannels - 1
)

// Port is the expander behind a digital board.
type Port interface {
	ReadChannel(channel int) (bool, error)
	WriteChannel(channel int, value bool) error
	Function(channel int) (types.Function, error)
	SetFunction(channel int, fn types.Function) error
	ReadPort() (uint32, error)
	WritePort(value uint32) error
}

// Digital is the DIO-8/4RD-IRC board: a PCA9535 driving eight relays on
// channels 0..7 with isolated inputs on 8..15. Every line is wired active
// low; the facade presents them active high.
type Digital struct {
	port  Port
	addr  uint16
	count int
}

// NewDigital switches the relay channels to outputs.
func NewDigital(port Port, addr uint16) (*Digital, error) {
	d := &Digital{port: port, addr: addr, count: DigitalChannels}
	for ch := 0; ch < relayChannels; ch++ {
		if err := port.SetFunction(ch, types.FunctionOut); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Digital) Family() types.Family { return types.FamilyGPIOPort }
func (d *Digital) ChannelCount() int    { return d.count }

func (d *Digital) String() string {
	return fmt.Sprintf("DIO-8/4RD-IRC(slave=0x%02X)", d.addr)
}

// Close releases every relay.
func (d *Digital) Close() error {
	_, err := d.PortWrite(0)
	return err
}

func (d *Digital) Function(channel int) (types.Function, error) {
	if err := checkChannel(channel, d.count); err != nil {
		return 0, err
	}
	return d.port.Function(channel)
}

func (d *Digital) FunctionString(channel int) (string, error) {
	fn, err := d.Function(channel)
	if err != nil {
		return "", err
	}
	return fn.String(), nil
}

// SetFunction cannot rewire the board. It validates fn and reports the
// direction the channel actually has.
func (d *Digital) SetFunction(channel int, fn types.Function) (types.Function, error) {
	if !fn.Valid() {
		return 0, &types.UnsupportedValueError{What: "function", Value: fmt.Sprint(int(fn))}
	}
	return d.Function(channel)
}

func (d *Digital) SetFunctionString(channel int, value string) (string, error) {
	fn, err := types.ParseFunction(value)
	if err != nil {
		return "", err
	}
	got, err := d.SetFunction(channel, fn)
	if err != nil {
		return "", err
	}
	return got.String(), nil
}

// DigitalRead returns 1 when the line is pulled low.
func (d *Digital) DigitalRead(channel int) (int, error) {
	if err := checkChannel(channel, d.count); err != nil {
		return 0, err
	}
	raw, err := d.port.ReadChannel(channel)
	if err != nil {
		return 0, err
	}
	if raw {
		return 0, nil
	}
	return 1, nil
}

// DigitalWrite drives channel and returns the value read back.
func (d *Digital) DigitalWrite(channel, value int) (int, error) {
	if err := checkChannel(channel, d.count); err != nil {
		return 0, err
	}
	if err := types.CheckRange("value", value, 0, 1); err != nil {
		return 0, err
	}
	if err := d.port.WriteChannel(channel, value == 0); err != nil {
		return 0, err
	}
	return d.DigitalRead(channel)
}

func (d *Digital) PortRead() (uint32, error) {
	raw, err := d.port.ReadPort()
	if err != nil {
		return 0, err
	}
	return ^raw & portMask, nil
}

// PortWrite drives all channels at once and returns the port read back.
// Bits above the port width are ignored.
func (d *Digital) PortWrite(value uint32) (uint32, error) {
	if err := d.port.WritePort(^value & portMask); err != nil {
		return 0, err
	}
	return d.PortRead()
}

// Wildcard returns direction and value of every channel. Compact output
// uses the keys "f"/"v" and single-letter directions.
func (d *Digital) Wildcard(compact bool) (map[int]map[string]any, error) {
	fKey, vKey := "function", "value"
	if compact {
		fKey, vKey = "f", "v"
	}

	values := make(map[int]map[string]any, d.count)
	for i := 0; i < d.count; i++ {
		fn, err := d.Function(i)
		if err != nil {
			return nil, err
		}
		v, err := d.DigitalRead(i)
		if err != nil {
			return nil, err
		}
		name := fn.String()
		if compact {
			name = fn.Code()
		}
		values[i] = map[string]any{fKey: name, vKey: v}
	}
	return values, nil
}
