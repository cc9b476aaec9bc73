package expander

import "fmt"

// Variant is the type denoting a specific expander chip.
type Variant string

const (
	PCA9535  Variant = "PCA9535"  // 16-bit, two banks
	PCA9555  Variant = "PCA9555"  // 16-bit, two banks, same register map as PCA9535
	PCA9554  Variant = "PCA9554"  // 8-bit, one bank
	PCA9554A Variant = "PCA9554A" // 8-bit, one bank, alternate address block
)

// BankSize is the number of channels held by one register.
const BankSize = 8

type variant struct {
	addrStart uint16
	addrEnd   uint16
	width     int
}

var variants = map[Variant]variant{
	PCA9535:  {addrStart: 0x20, addrEnd: 0x27, width: 16},
	PCA9555:  {addrStart: 0x20, addrEnd: 0x27, width: 16},
	PCA9554:  {addrStart: 0x20, addrEnd: 0x27, width: 8},
	PCA9554A: {addrStart: 0x38, addrEnd: 0x3F, width: 8},
}

// Width returns the number of channels of v, or 0 for unknown variants.
func (v Variant) Width() int {
	return variants[v].width
}

// Banks returns the number of 8-bit banks of v.
func (v Variant) Banks() int {
	return v.Width() / BankSize
}

// AddressRange returns the slave addresses the variant can be strapped to.
func (v Variant) AddressRange() (uint16, uint16, error) {
	vv, ok := variants[v]
	if !ok {
		return 0, 0, fmt.Errorf("%s: unsupported expander variant", string(v))
	}
	return vv.addrStart, vv.addrEnd, nil
}

// Role is one of the four register functions of every bank.
type Role int

const (
	RoleInput Role = iota
	RoleOutput
	RolePolarity
	RoleConfig
)

// Base returns the register address of bank 0 for role on a device with
// bankCount banks. Registers of the same role are contiguous.
func (r Role) Base(bankCount int) byte {
	return byte(int(r) * bankCount)
}

// Locate maps channel to its bank register and bit mask for a port whose
// bank 0 sits at base.
func Locate(base byte, bankSize, channel int) (addr byte, mask byte) {
	return base + byte(channel/bankSize), 1 << (channel % bankSize)
}
