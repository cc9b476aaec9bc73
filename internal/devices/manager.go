package devices

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Manager struct {
	loader   *DefinitionLoader
	composer *Composer
	devices  map[uuid.UUID]*Device
	pollers  map[uuid.UUID]*Poller
	mu       sync.RWMutex
	logger   *zap.Logger
}

func NewManager(searchPaths []string, composer *Composer, logger *zap.Logger) (*Manager, error) {
	loader, err := NewDefinitionLoader(searchPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to create definition loader: %w", err)
	}

	return &Manager{
		loader:   loader,
		composer: composer,
		devices:  make(map[uuid.UUID]*Device),
		pollers:  make(map[uuid.UUID]*Poller),
		logger:   logger,
	}, nil
}

// LoadDevice loads the named definition file and adds its device.
func (m *Manager) LoadDevice(definition string) (*Device, error) {
	def, err := m.loader.Load(definition)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition %s: %w", definition, err)
	}

	return m.AddDevice(def)
}

// AddDevice composes def and registers the result. Names are unique.
func (m *Manager) AddDevice(def *types.DeviceDefinition) (*Device, error) {
	if _, exists := m.GetDeviceByName(def.Name); exists {
		return nil, fmt.Errorf("device %s already loaded", def.Name)
	}

	device, err := m.composer.Compose(def)
	if err != nil {
		return nil, fmt.Errorf("failed to compose device %s: %w", def.Name, err)
	}

	m.mu.Lock()
	m.devices[device.ID] = device
	m.mu.Unlock()

	m.logger.Info("Device loaded",
		zap.String("id", device.ID.String()),
		zap.String("name", device.Name),
		zap.String("family", device.Family().String()),
		zap.String("ident", device.String()))

	return device, nil
}

// StartPoller starts poller for a device
func (m *Manager) StartPoller(deviceID uuid.UUID, interval time.Duration) error {
	m.mu.RLock()
	device, exists := m.devices[deviceID]
	_, running := m.pollers[deviceID]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("device %s: %w", deviceID, types.ErrNotFound)
	}
	if running {
		return nil
	}

	poller := NewPoller(device, interval, m.logger)
	if err := poller.Start(); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}

	m.mu.Lock()
	m.pollers[deviceID] = poller
	m.mu.Unlock()

	return nil
}

// GetDevice returns device by ID
func (m *Manager) GetDevice(deviceID uuid.UUID) (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	device, exists := m.devices[deviceID]
	return device, exists
}

// GetDeviceByName returns device by name
func (m *Manager) GetDeviceByName(name string) (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, device := range m.devices {
		if device.Name == name {
			return device, true
		}
	}

	return nil, false
}

// Lookup accepts either a device ID or a device name.
func (m *Manager) Lookup(ref string) (*Device, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if device, ok := m.GetDevice(id); ok {
			return device, nil
		}
	}
	if device, ok := m.GetDeviceByName(ref); ok {
		return device, nil
	}
	return nil, fmt.Errorf("device %s: %w", ref, types.ErrNotFound)
}

// StopAll stops all pollers and closes all devices. It keeps going past
// failures and returns them combined.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, poller := range m.pollers {
		poller.Stop()
		delete(m.pollers, id)
	}

	var errs error
	for id, device := range m.devices {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if err := device.Close(); err != nil {
			m.logger.Error("Failed to close device",
				zap.String("device", device.Name),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", device.Name, err))
		}
		delete(m.devices, id)
	}

	return errs
}

// ListDevices returns all devices ordered by name.
func (m *Manager) ListDevices() []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]*Device, 0, len(m.devices))
	for _, device := range m.devices {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })

	return devices
}
