package transport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestI2CRegisterTransactions(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x23, W: []byte{0x00}, R: []byte{0x5A}},
			{Addr: 0x23, W: []byte{0x02, 0xF0}},
			{Addr: 0x23, W: []byte{0x01}, R: []byte{0x85, 0x83}},
			{Addr: 0x23, W: []byte{0x01, 0xC5, 0x83}},
		},
		DontPanic: true,
	}
	c := NewI2C(bus, 0x23)

	v, err := c.ReadRegister(0x00)
	if err != nil {
		t.Fatalf("ReadRegister failed: %v", err)
	}
	if v != 0x5A {
		t.Errorf("Expected 0x5A, got 0x%02X", v)
	}

	if err := c.WriteRegister(0x02, 0xF0); err != nil {
		t.Fatalf("WriteRegister failed: %v", err)
	}

	b, err := c.ReadRegisters(0x01, 2)
	if err != nil {
		t.Fatalf("ReadRegisters failed: %v", err)
	}
	if !bytes.Equal(b, []byte{0x85, 0x83}) {
		t.Errorf("Expected [85 83], got % X", b)
	}

	if err := c.WriteRegisters(0x01, []byte{0xC5, 0x83}); err != nil {
		t.Fatalf("WriteRegisters failed: %v", err)
	}

	if err := bus.Close(); err != nil {
		t.Errorf("Not all transactions consumed: %v", err)
	}
}

func TestI2CErrorIsTransportError(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: 0x23, W: []byte{0x07}, R: []byte{0x00}}},
		DontPanic: true,
	}
	c := NewI2C(bus, 0x23)

	// Register 0x06 does not match the recorded transaction.
	_, err := c.ReadRegister(0x06)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var trErr *types.TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("Expected *TransportError, got %T", err)
	}
	if trErr.Addr != 0x23 || trErr.Register != 0x06 || trErr.Op != "read" {
		t.Errorf("Unexpected error fields: %+v", trErr)
	}
	if types.ErrorCode(err) != types.CodeTransport {
		t.Errorf("Expected code %s, got %s", types.CodeTransport, types.ErrorCode(err))
	}
}

func TestI2CInvalidCount(t *testing.T) {
	c := NewI2C(&i2ctest.Playback{DontPanic: true}, 0x49)
	if _, err := c.ReadRegisters(0x00, 0); err == nil {
		t.Error("Expected error for zero count")
	}
}
