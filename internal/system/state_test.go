package system

import "testing"

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to SystemState
		ok       bool
	}{
		{StateInitializing, StateRunning, true},
		{StateInitializing, StateStopping, true},
		{StateRunning, StateStopping, true},
		{StateStopping, StateStopped, true},
		{StateStopped, StateInitializing, true},
		{StateError, StateStopped, true},
		{StateRunning, StateRunning, false},
		{StateRunning, StateInitializing, false},
		{StateStopped, StateRunning, false},
		{SystemState(42), StateRunning, false},
	}
	for _, tt := range tests {
		err := ValidateTransition(tt.from, tt.to)
		if (err == nil) != tt.ok {
			t.Errorf("%s -> %s: got %v, want ok=%v", tt.from, tt.to, err, tt.ok)
		}
	}
}

func TestStateText(t *testing.T) {
	b, err := StateStopping.MarshalText()
	if err != nil || string(b) != "STOPPING" {
		t.Errorf("Unexpected text %q, %v", b, err)
	}
	if SystemState(42).String() != "UNKNOWN" {
		t.Error("Expected UNKNOWN for an undefined state")
	}
}
