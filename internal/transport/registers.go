// Package transport provides byte-level register access to devices on an
// addressed bus.
package transport

// Registers is the register-transport capability a device driver is built
// on. All methods block until the bus transaction completes.
type Registers interface {
	ReadRegister(reg byte) (byte, error)
	WriteRegister(reg byte, value byte) error
	// ReadRegisters reads count contiguous registers starting at reg.
	ReadRegisters(reg byte, count int) ([]byte, error)
	// WriteRegisters writes values to contiguous registers starting at reg.
	WriteRegisters(reg byte, values []byte) error
}
