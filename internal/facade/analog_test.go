package facade

import (
	"errors"
	"math"
	"testing"

	"periph.io/x/conn/v3/physic"

	"github.com/KevinKickass/OpenMachineIO/internal/adc"
	"github.com/KevinKickass/OpenMachineIO/internal/expander"
	"github.com/KevinKickass/OpenMachineIO/internal/mux"
	"github.com/KevinKickass/OpenMachineIO/internal/transport"
	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

// channelReader returns a distinct value per channel and counts reads.
type channelReader struct {
	reads  []int
	failAt int
	err    error
}

func (r *channelReader) ReadExtendedChannel(channel int, differential bool) (int, error) {
	r.reads = append(r.reads, channel)
	if r.err != nil && channel == r.failAt {
		return 0, r.err
	}
	v := channel*1000 - 12345
	if differential {
		v = -v
	}
	return v, nil
}

func TestAnalogProperties(t *testing.T) {
	a := NewAnalog(&channelReader{}, 0x49, 0x3E)

	if a.Family() != types.FamilyADC {
		t.Errorf("Expected family ADC, got %s", a.Family())
	}
	if a.ChannelCount() != 32 || a.Resolution() != 16 || a.Max() != 32767 {
		t.Errorf("Unexpected properties: count=%d res=%d max=%d", a.ChannelCount(), a.Resolution(), a.Max())
	}
	if math.Abs(a.Reference()-10.0352) > 1e-9 {
		t.Errorf("Expected reference 10.0352, got %v", a.Reference())
	}
	if got := a.String(); got != "AIO-32/0RA-IRC(slaveAdc=0x49, slaveMux=0x3E)" {
		t.Errorf("Unexpected identity %q", got)
	}
}

func TestAnalogResolutionScalesMax(t *testing.T) {
	a := NewAnalog(&channelReader{}, 0x48, 0x3E, WithResolution(12))

	if a.Resolution() != 12 || a.Max() != 2047 {
		t.Fatalf("Expected 12 bits with max 2047, got %d bits with max %d", a.Resolution(), a.Max())
	}
	f, err := a.ReadFloat(14, false)
	if err != nil {
		t.Fatalf("ReadFloat failed: %v", err)
	}
	if want := 1655.0 / 2047; f != want {
		t.Errorf("Expected %v, got %v", want, f)
	}
}

func TestAnalogBounds(t *testing.T) {
	r := &channelReader{}
	a := NewAnalog(r, 0x49, 0x3E)

	for _, ch := range []int{-1, 32, 100} {
		_, err := a.ReadInteger(ch, false)
		var rangeErr *types.RangeError
		if !errors.As(err, &rangeErr) {
			t.Errorf("ReadInteger(%d): expected RangeError, got %v", ch, err)
		}
		if _, err := a.ReadVolt(ch, false); !errors.As(err, &rangeErr) {
			t.Errorf("ReadVolt(%d): expected RangeError, got %v", ch, err)
		}
	}
	if len(r.reads) != 0 {
		t.Errorf("Out-of-range reads reached the converter: %v", r.reads)
	}
}

func TestAnalogScaling(t *testing.T) {
	a := NewAnalog(&channelReader{}, 0x49, 0x3E)

	f, err := a.ReadFloat(20, false)
	if err != nil {
		t.Fatalf("ReadFloat failed: %v", err)
	}
	if want := 7655.0 / 32767; f != want {
		t.Errorf("Expected %v, got %v", want, f)
	}

	v, err := a.ReadVolt(20, false)
	if err != nil {
		t.Fatalf("ReadVolt failed: %v", err)
	}
	if want := f * AnalogReference; v != want {
		t.Errorf("Expected %v, got %v", want, v)
	}

	p, err := a.ReadPotential(20, false)
	if err != nil {
		t.Fatalf("ReadPotential failed: %v", err)
	}
	if diff := math.Abs(float64(p)/float64(physic.Volt) - v); diff > 1e-6 {
		t.Errorf("Potential %s does not match %vV", p, v)
	}
}

func TestAnalogReadAllCompleteness(t *testing.T) {
	a := NewAnalog(&channelReader{}, 0x49, 0x3E)

	ints, err := a.ReadAllInteger(false)
	if err != nil {
		t.Fatalf("ReadAllInteger failed: %v", err)
	}
	floats, err := a.ReadAllFloat(false)
	if err != nil {
		t.Fatalf("ReadAllFloat failed: %v", err)
	}
	volts, err := a.ReadAllVolt(false)
	if err != nil {
		t.Fatalf("ReadAllVolt failed: %v", err)
	}

	if len(ints) != 32 || len(floats) != 32 || len(volts) != 32 {
		t.Fatalf("Expected 32 keys, got %d/%d/%d", len(ints), len(floats), len(volts))
	}
	for k := 0; k < 32; k++ {
		i, _ := a.ReadInteger(k, false)
		f, _ := a.ReadFloat(k, false)
		v, _ := a.ReadVolt(k, false)
		if ints[k] != i {
			t.Errorf("channel %d: integer %d, want %d", k, ints[k], i)
		}
		if floats[k] != round3(f) {
			t.Errorf("channel %d: float %v, want %v", k, floats[k], round3(f))
		}
		if volts[k] != round3(v) {
			t.Errorf("channel %d: volt %v, want %v", k, volts[k], round3(v))
		}
	}
}

func TestAnalogReadAllOrder(t *testing.T) {
	r := &channelReader{}
	a := NewAnalog(r, 0x49, 0x3E)

	if _, err := a.ReadAllInteger(true); err != nil {
		t.Fatalf("ReadAllInteger failed: %v", err)
	}
	for i, ch := range r.reads {
		if ch != i {
			t.Fatalf("Channel %d read at position %d", ch, i)
		}
	}
}

func TestAnalogReadAllAbortsOnError(t *testing.T) {
	nack := errors.New("nack")
	r := &channelReader{failAt: 7, err: nack}
	a := NewAnalog(r, 0x49, 0x3E)

	values, err := a.ReadAllFloat(false)
	if !errors.Is(err, nack) {
		t.Fatalf("Expected nack, got %v", err)
	}
	if values != nil {
		t.Error("Expected no partial result")
	}
	if len(r.reads) != 8 {
		t.Errorf("Expected reads to stop at channel 7, got %d reads", len(r.reads))
	}
}

func TestAnalogZeroReference(t *testing.T) {
	r := &channelReader{}
	a := NewAnalog(r, 0x49, 0x3E, WithReference(0))

	for ch := 0; ch < a.ChannelCount(); ch++ {
		_, err := a.ReadVolt(ch, false)
		var opErr *types.UnsupportedOperationError
		if !errors.As(err, &opErr) {
			t.Fatalf("ReadVolt(%d): expected UnsupportedOperationError, got %v", ch, err)
		}
	}
	if _, err := a.ReadAllVolt(false); types.ErrorCode(err) != types.CodeUnsupportedOperation {
		t.Errorf("ReadAllVolt: expected UNSUPPORTED_OPERATION, got %v", err)
	}
	if len(r.reads) != 0 {
		t.Error("Voltage reads must fail before any conversion")
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.12345, 0.123},
		{0.1236, 0.124},
		{-0.0004, 0},
		{10.0352, 10.035},
		{1, 1},
	}
	for _, tt := range tests {
		if got := round3(tt.in); got != tt.want {
			t.Errorf("round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAnalogOverRegisters(t *testing.T) {
	adcRegs := transport.NewWordMemory("test", 0x49)
	adcRegs.Poke(adc.RegConfig, 0x85, 0x83)
	muxRegs := transport.NewMemory("test", 0x3E)

	conv, err := adc.New(adcRegs, adc.ADS1115, adc.WithConversionDelay(0))
	if err != nil {
		t.Fatalf("adc.New failed: %v", err)
	}
	exp, err := expander.New(muxRegs, expander.PCA9554A)
	if err != nil {
		t.Fatalf("expander.New failed: %v", err)
	}
	sel, err := mux.New(exp, conv, mux.WithSettleDelay(0))
	if err != nil {
		t.Fatalf("mux.New failed: %v", err)
	}
	a := NewAnalog(sel, 0x49, 0x3E)

	adcRegs.Poke(adc.RegConversion, 0x40, 0x00)
	v, err := a.ReadInteger(18, false)
	if err != nil {
		t.Fatalf("ReadInteger failed: %v", err)
	}
	if v != 0x4000 {
		t.Errorf("Expected %d, got %d", 0x4000, v)
	}
	if got := muxRegs.Get(0x01); got != 0x20 {
		t.Errorf("Expected mux latch 0x20, got 0x%02X", got)
	}
	// converter input 1, single-ended: channel code 5
	if got := (adcRegs.Get(adc.RegConfig) & 0x70) >> 4; got != 5 {
		t.Errorf("Expected channel code 5, got %d", got)
	}
}
