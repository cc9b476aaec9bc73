package devices

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

// Poller periodically takes a bulk snapshot of one device.
type Poller struct {
	device   *Device
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewPoller(device *Device, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		device:   device,
		interval: interval,
		logger:   logger,
	}
}

// Start startet das zyklische Polling
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.interval <= 0 {
		return fmt.Errorf("invalid poll interval %v", p.interval)
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.wg.Add(1)

	go p.pollLoop(p.stopChan)

	p.logger.Info("Poller started",
		zap.String("device", p.device.Name),
		zap.Duration("interval", p.interval))

	return nil
}

// Stop stoppt das Polling
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop := p.stopChan
	p.mu.Unlock()

	close(stop)
	p.wg.Wait()

	p.logger.Info("Poller stopped", zap.String("device", p.device.Name))
}

func (p *Poller) pollLoop(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := p.Poll(); err != nil {
				p.logger.Error("Poll failed",
					zap.String("device", p.device.Name),
					zap.String("code", types.ErrorCode(err)),
					zap.Error(err))
			}
		}
	}
}

// Poll takes one snapshot and stores it on the device.
func (p *Poller) Poll() error {
	var snapshot interface{}
	err := p.device.Exec(func() error {
		var err error
		switch p.device.Family() {
		case types.FamilyADC:
			snapshot, err = p.device.Analog().ReadAllInteger(false)
		case types.FamilyGPIOPort:
			snapshot, err = p.device.Digital().Wildcard(true)
		default:
			err = fmt.Errorf("no snapshot for family %s", p.device.Family())
		}
		return err
	})
	if err != nil {
		return err
	}

	p.device.setLastValue(snapshot)
	return nil
}

// IsRunning gibt an ob Poller läuft
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
