package mux

import (
	"errors"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineIO/internal/expander"
	"github.com/KevinKickass/OpenMachineIO/internal/transport"
)

type conversion struct {
	channel      int
	differential bool
}

type fakeConverter struct {
	calls  []conversion
	result int
	err    error
}

func (f *fakeConverter) ReadChannel(channel int, differential bool) (int, error) {
	f.calls = append(f.calls, conversion{channel, differential})
	return f.result, f.err
}

func setupMockSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) {
		slept = append(slept, d)
	}
	t.Cleanup(func() { sleep = orig })
	return &slept
}

// PCA9554A register map: input 0x00, output 0x01, polarity 0x02, config 0x03.
func newSelector(t *testing.T, opts ...Option) (*Selector, *transport.Memory, *fakeConverter) {
	t.Helper()
	m := transport.NewMemory("test", 0x3E)
	m.Set(0x03, 0xFF)
	e, err := expander.New(m, expander.PCA9554A)
	if err != nil {
		t.Fatalf("expander.New failed: %v", err)
	}
	conv := &fakeConverter{}
	s, err := New(e, conv, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, m, conv
}

func TestNewDrivesOutputs(t *testing.T) {
	_, m, _ := newSelector(t)
	if got := m.Get(0x03); got != 0x00 {
		t.Errorf("Expected configuration 0x00, got 0x%02X", got)
	}
	if _, writes := m.Counts(); writes != 1 {
		t.Errorf("Expected a single configuration write, got %d writes", writes)
	}
}

func TestSelectBankNibbles(t *testing.T) {
	setupMockSleep(t)
	tests := []struct {
		latch   byte
		channel int
		want    byte
	}{
		{0x00, 0, 0x00},
		{0x00, 5, 0x05},
		{0xA0, 5, 0xA5},
		{0x0C, 20, 0x4C},
		{0xFF, 16, 0x0F},
		{0xFF, 31, 0xFF},
		{0x3F, 15, 0x3F},
	}
	for _, tt := range tests {
		s, m, _ := newSelector(t)
		m.Set(0x01, tt.latch)

		if err := s.SelectBank(tt.channel); err != nil {
			t.Fatalf("SelectBank(%d) failed: %v", tt.channel, err)
		}
		if got := m.Get(0x01); got != tt.want {
			t.Errorf("latch 0x%02X, SelectBank(%d): got 0x%02X, want 0x%02X", tt.latch, tt.channel, got, tt.want)
		}
	}
}

func TestSelectBankKeepsOtherNibble(t *testing.T) {
	setupMockSleep(t)
	s, m, _ := newSelector(t)

	if err := s.SelectBank(5); err != nil {
		t.Fatalf("SelectBank(5) failed: %v", err)
	}
	if err := s.SelectBank(20); err != nil {
		t.Fatalf("SelectBank(20) failed: %v", err)
	}
	latch := m.Get(0x01)
	if latch&0x0F != 5 {
		t.Errorf("Low nibble changed by high-bank selection: 0x%02X", latch)
	}
	if latch>>4 != 4 {
		t.Errorf("Expected high nibble 4, got 0x%02X", latch)
	}
}

func TestSelectBankSettles(t *testing.T) {
	slept := setupMockSleep(t)
	s, _, _ := newSelector(t, WithSettleDelay(3*time.Millisecond))

	if err := s.SelectBank(7); err != nil {
		t.Fatalf("SelectBank failed: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != 3*time.Millisecond {
		t.Errorf("Expected one 3ms wait, got %v", *slept)
	}
}

func TestReadExtendedChannel(t *testing.T) {
	slept := setupMockSleep(t)
	s, m, conv := newSelector(t)
	conv.result = 1234

	tests := []struct {
		channel      int
		differential bool
		physical     int
	}{
		{0, false, 0},
		{15, false, 0},
		{16, true, 1},
		{31, false, 1},
	}
	for _, tt := range tests {
		conv.calls = nil
		v, err := s.ReadExtendedChannel(tt.channel, tt.differential)
		if err != nil {
			t.Fatalf("ReadExtendedChannel(%d) failed: %v", tt.channel, err)
		}
		if v != 1234 {
			t.Errorf("Expected converter result, got %d", v)
		}
		want := conversion{tt.physical, tt.differential}
		if len(conv.calls) != 1 || conv.calls[0] != want {
			t.Errorf("channel %d: expected conversion %+v, got %+v", tt.channel, want, conv.calls)
		}
	}
	if got := m.Get(0x01); got != 0xFF {
		t.Errorf("Expected latch 0xFF after selecting 15 and 31, got 0x%02X", got)
	}
	if len(*slept) != 4 {
		t.Errorf("Expected a settle wait per read, got %d", len(*slept))
	}
}

func TestSelectFailureSkipsConversion(t *testing.T) {
	setupMockSleep(t)
	s, m, conv := newSelector(t)
	nack := errors.New("nack")
	m.FailOn(0x01, nack)

	if _, err := s.ReadExtendedChannel(3, false); !errors.Is(err, nack) {
		t.Fatalf("Expected nack, got %v", err)
	}
	if len(conv.calls) != 0 {
		t.Error("Converter must not run when the selection failed")
	}
}
