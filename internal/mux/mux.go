// Package mux multiplies the inputs of a small converter by routing one of
// sixteen analog lines per converter input through an analog multiplexer
// whose address lines hang off an 8-bit expander.
//
// The expander's output latch holds two nibbles: the low nibble addresses
// the multiplexer in front of converter input 0 (logical channels 0..15),
// the high nibble the one in front of input 1 (channels 16..31).
package mux

import "time"

// SettleDelay is the default wait after switching before a conversion.
const SettleDelay = time.Millisecond

var sleep = time.Sleep

// Port is the expander side of the selector.
type Port interface {
	ReadLatch() (uint32, error)
	WritePort(value uint32) error
	SetPortFunction(mask uint32) error
}

// Converter is the converter side of the selector.
type Converter interface {
	ReadChannel(channel int, differential bool) (int, error)
}

// Selector drives the address lines and reads through the converter.
type Selector struct {
	port   Port
	adc    Converter
	settle time.Duration
}

type Option func(*Selector)

// WithSettleDelay overrides SettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Selector) { s.settle = d }
}

// New drives every expander line to output and returns the selector.
func New(port Port, adc Converter, opts ...Option) (*Selector, error) {
	s := &Selector{port: port, adc: adc, settle: SettleDelay}
	for _, opt := range opts {
		opt(s)
	}
	if err := port.SetPortFunction(0x00); err != nil {
		return nil, err
	}
	return s, nil
}

// SelectBank routes channel to its converter input. The nibble belonging to
// the other converter input is preserved. The latch is read back on every
// call; no selection is cached.
func (s *Selector) SelectBank(channel int) error {
	d, err := s.port.ReadLatch()
	if err != nil {
		return err
	}
	if channel >= 16 {
		d = d&0x0F | uint32(channel&0x0F)<<4
	} else {
		d = d&0xF0 | uint32(channel&0x0F)
	}
	if err := s.port.WritePort(d & 0xFF); err != nil {
		return err
	}
	sleep(s.settle)
	return nil
}

// ReadExtendedChannel selects channel and converts it on converter input
// channel/16. channel is not validated here.
func (s *Selector) ReadExtendedChannel(channel int, differential bool) (int, error) {
	if err := s.SelectBank(channel); err != nil {
		return 0, err
	}
	return s.adc.ReadChannel(channel/16, differential)
}
