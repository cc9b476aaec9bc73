package devices

import (
	"sync"
	"time"

	"github.com/KevinKickass/OpenMachineIO/internal/facade"
	"github.com/KevinKickass/OpenMachineIO/internal/types"
	"github.com/google/uuid"
)

// Device is a composed board registered with the manager. Exactly one of
// Analog and Digital is set, as told by Family.
type Device struct {
	ID         uuid.UUID
	Name       string
	Definition *types.DeviceDefinition
	Bus        string

	family  types.Family
	facade  facade.Device
	analog  *facade.Analog
	digital *facade.Digital

	// serialises every bus sequence on this board
	opMu sync.Mutex

	mu        sync.RWMutex
	connected bool
	lastValue interface{}
	lastPoll  time.Time
}

func newAnalogDevice(def *types.DeviceDefinition, bus string, a *facade.Analog) *Device {
	d := newDevice(def, bus, a)
	d.family = types.FamilyADC
	d.analog = a
	return d
}

func newDigitalDevice(def *types.DeviceDefinition, bus string, g *facade.Digital) *Device {
	d := newDevice(def, bus, g)
	d.family = types.FamilyGPIOPort
	d.digital = g
	return d
}

func newDevice(def *types.DeviceDefinition, bus string, f facade.Device) *Device {
	return &Device{
		ID:         uuid.New(),
		Name:       def.Name,
		Definition: def,
		Bus:        bus,
		facade:     f,
		connected:  true,
	}
}

func (d *Device) Family() types.Family { return d.family }

// Analog returns the analog facade, or nil for other families.
func (d *Device) Analog() *facade.Analog { return d.analog }

// Digital returns the digital facade, or nil for other families.
func (d *Device) Digital() *facade.Digital { return d.digital }

func (d *Device) String() string { return d.facade.String() }

// Exec runs fn while holding the device lock. All access to the facades
// must go through Exec; the facades themselves are not safe for
// concurrent use.
func (d *Device) Exec(fn func() error) error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return fn()
}

// Close releases the board once. Later calls are no-ops.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	if err := d.Exec(d.facade.Close); err != nil {
		return err
	}

	d.connected = false
	return nil
}

func (d *Device) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Device) Info() types.DeviceInfo {
	return types.DeviceInfo{
		ID:        d.ID.String(),
		Name:      d.Name,
		Model:     d.Definition.Model,
		Family:    d.family.String(),
		Ident:     d.facade.String(),
		Channels:  d.facade.ChannelCount(),
		Bus:       d.Bus,
		Connected: d.Connected(),
	}
}

func (d *Device) setLastValue(v interface{}) {
	d.mu.Lock()
	d.lastValue = v
	d.lastPoll = time.Now()
	d.mu.Unlock()
}

// LastValue returns the most recent poll snapshot and when it was taken.
func (d *Device) LastValue() (interface{}, time.Time, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.lastValue, d.lastPoll, d.lastValue != nil
}
