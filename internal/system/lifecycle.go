package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/OpenMachineIO/internal/config"
	"github.com/KevinKickass/OpenMachineIO/internal/devices"
	"github.com/KevinKickass/OpenMachineIO/internal/dispatch"
	"github.com/KevinKickass/OpenMachineIO/internal/transport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type LifecycleManager struct {
	config        *config.Config
	opener        transport.Opener
	deviceManager *devices.Manager
	router        *dispatch.Router
	logger        *zap.Logger

	stateMu      sync.RWMutex
	currentState SystemState
	lastErr      error

	listenersMu     sync.RWMutex
	statusListeners []chan SystemStatus

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewLifecycleManager(
	cfg *config.Config,
	opener transport.Opener,
	logger *zap.Logger,
) (*LifecycleManager, error) {
	timing := devices.Timing{
		ConversionDelay: cfg.Timing.ADCConversionDelay,
		SettleDelay:     cfg.Timing.MuxSettleDelay,
	}
	composer := devices.NewComposer(opener, cfg.Bus.Name, timing, logger)

	deviceManager, err := devices.NewManager(cfg.Devices.SearchPaths, composer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create device manager: %w", err)
	}

	return &LifecycleManager{
		config:          cfg,
		opener:          opener,
		deviceManager:   deviceManager,
		router:          dispatch.NewRouter(deviceManager),
		logger:          logger,
		currentState:    StateInitializing,
		shutdownChan:    make(chan struct{}),
		statusListeners: make([]chan SystemStatus, 0),
	}, nil
}

// Start loads the configured devices and starts their pollers. A device
// that fails to load is logged and skipped.
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting OpenMachineIO",
		zap.String("bus_driver", lm.config.Bus.Driver),
		zap.String("bus", lm.config.Bus.Name))

	lm.broadcastStatus()

	loaded := lm.loadDevices()

	if err := lm.setState(StateRunning); err != nil {
		return err
	}

	lm.logger.Info("System started successfully",
		zap.Int("devices", loaded),
		zap.Bool("polling", lm.config.Poll.Enabled))

	return nil
}

func (lm *LifecycleManager) loadDevices() int {
	definitions := lm.config.Devices.Definitions
	lm.logger.Info("Loading devices", zap.Int("count", len(definitions)))

	loaded := 0
	for _, name := range definitions {
		device, err := lm.deviceManager.LoadDevice(name)
		if err != nil {
			lm.logger.Error("Failed to load device",
				zap.String("definition", name),
				zap.Error(err))
			continue
		}
		loaded++

		if !lm.config.Poll.Enabled {
			continue
		}
		if err := lm.deviceManager.StartPoller(device.ID, lm.config.Poll.Interval); err != nil {
			lm.logger.Error("Failed to start poller",
				zap.String("device", device.Name),
				zap.Error(err))
		}
	}
	return loaded
}

// Shutdown stops pollers, releases every device and closes the buses.
// Only the first call does any work.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		if err := lm.setState(StateStopping); err != nil {
			lm.logger.Warn("Unexpected state on shutdown", zap.Error(err))
		}

		shutdownErr = lm.gracefulShutdown(ctx)
		if shutdownErr != nil {
			lm.setError(shutdownErr)
		}

		if err := lm.setState(StateStopped); err != nil {
			lm.logger.Warn("Unexpected state on shutdown", zap.Error(err))
		}

		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs error
	if err := lm.deviceManager.StopAll(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("device manager stop failed: %w", err))
	}
	if err := lm.opener.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("bus close failed: %w", err))
	}

	if errs == nil {
		lm.logger.Info("Graceful shutdown completed")
	}
	return errs
}

// Done is closed once Shutdown has finished.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) setState(state SystemState) error {
	lm.stateMu.Lock()
	from := lm.currentState
	if err := ValidateTransition(from, state); err != nil {
		lm.stateMu.Unlock()
		return err
	}
	lm.currentState = state
	lm.stateMu.Unlock()

	lm.logger.Info("State changed",
		zap.Stringer("from", from),
		zap.Stringer("to", state))
	lm.broadcastStatus()
	return nil
}

func (lm *LifecycleManager) setError(err error) {
	lm.stateMu.Lock()
	lm.currentState = StateError
	lm.lastErr = err
	lm.stateMu.Unlock()

	lm.logger.Error("System error", zap.Error(err))
	lm.broadcastStatus()
}

// State returns the current lifecycle state.
func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns current system status
func (lm *LifecycleManager) GetCurrentStatus() SystemStatus {
	lm.stateMu.RLock()
	status := SystemStatus{
		State:     lm.currentState,
		Timestamp: time.Now().Unix(),
	}
	if lm.lastErr != nil {
		status.Error = lm.lastErr.Error()
	}
	lm.stateMu.RUnlock()

	for _, d := range lm.deviceManager.ListDevices() {
		status.DeviceCount++
		if d.Connected() {
			status.ConnectedDevices++
		}
	}
	return status
}

func (lm *LifecycleManager) broadcastStatus() {
	status := lm.GetCurrentStatus()

	lm.listenersMu.RLock()
	defer lm.listenersMu.RUnlock()

	for _, listener := range lm.statusListeners {
		select {
		case listener <- status:
		default:
			// Channel full, skip
		}
	}
}

// SubscribeStatus subscribes to status updates
func (lm *LifecycleManager) SubscribeStatus() chan SystemStatus {
	ch := make(chan SystemStatus, 10)

	lm.listenersMu.Lock()
	lm.statusListeners = append(lm.statusListeners, ch)
	lm.listenersMu.Unlock()

	return ch
}

// UnsubscribeStatus removes and closes a status channel
func (lm *LifecycleManager) UnsubscribeStatus(ch chan SystemStatus) {
	lm.listenersMu.Lock()
	defer lm.listenersMu.Unlock()

	for i, listener := range lm.statusListeners {
		if listener == ch {
			lm.statusListeners = append(lm.statusListeners[:i], lm.statusListeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// DeviceManager returns the device manager
func (lm *LifecycleManager) DeviceManager() *devices.Manager {
	return lm.deviceManager
}

// Router returns the request router over all loaded devices
func (lm *LifecycleManager) Router() *dispatch.Router {
	return lm.router
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}
