package types

import "strings"

// Family tags a composite device with the capability set it exposes.
type Family int

const (
	FamilyADC Family = iota
	FamilyGPIOPort
)

func (f Family) String() string {
	switch f {
	case FamilyADC:
		return "ADC"
	case FamilyGPIOPort:
		return "GPIOPort"
	default:
		return "UNKNOWN"
	}
}

// Function is the direction of a digital channel.
type Function int

const (
	FunctionIn Function = iota
	FunctionOut
)

func (f Function) String() string {
	switch f {
	case FunctionIn:
		return "IN"
	case FunctionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Code returns the single-letter form used in compact listings.
func (f Function) Code() string {
	switch f {
	case FunctionIn:
		return "I"
	case FunctionOut:
		return "O"
	default:
		return "?"
	}
}

// Valid reports whether f is IN or OUT.
func (f Function) Valid() bool {
	return f == FunctionIn || f == FunctionOut
}

// ParseFunction accepts "in"/"out" in any case.
func ParseFunction(s string) (Function, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return FunctionIn, nil
	case "OUT":
		return FunctionOut, nil
	default:
		return 0, &UnsupportedValueError{What: "function", Value: s}
	}
}

// Device Runtime Info
type DeviceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Model     string `json:"model"`
	Family    string `json:"family"`
	Ident     string `json:"ident"`
	Channels  int    `json:"channels"`
	Bus       string `json:"bus"`
	Connected bool   `json:"connected"`
}
