package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Development {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
	if cfg.Bus.Driver != DriverPeriph || cfg.Bus.Name != "" {
		t.Errorf("Unexpected bus config: %+v", cfg.Bus)
	}
	if !cfg.Poll.Enabled || cfg.Poll.Interval != time.Second {
		t.Errorf("Unexpected poll config: %+v", cfg.Poll)
	}
	if cfg.Timing.ADCConversionDelay != 8*time.Millisecond || cfg.Timing.MuxSettleDelay != time.Millisecond {
		t.Errorf("Unexpected timing: %+v", cfg.Timing)
	}
	if len(cfg.Devices.SearchPaths) != 1 || cfg.Devices.SearchPaths[0] != "configs/devices" {
		t.Errorf("Unexpected search paths: %v", cfg.Devices.SearchPaths)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
bus:
  driver: sim
  name: "1"
poll:
  interval: 250ms
timing:
  adc_conversion_delay: 10ms
devices:
  search_paths: [/etc/omio/devices]
  definitions: [relays, levels]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Bus.Driver != DriverSim || cfg.Bus.Name != "1" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Poll.Interval != 250*time.Millisecond || cfg.Timing.ADCConversionDelay != 10*time.Millisecond {
		t.Errorf("Unexpected durations: %+v %+v", cfg.Poll, cfg.Timing)
	}
	if cfg.Timing.MuxSettleDelay != time.Millisecond {
		t.Errorf("Expected default settle delay, got %v", cfg.Timing.MuxSettleDelay)
	}
	if len(cfg.Devices.Definitions) != 2 || cfg.Devices.Definitions[1] != "levels" {
		t.Errorf("Unexpected definitions: %v", cfg.Devices.Definitions)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("OMIO_BUS_DRIVER", "sim")
	t.Setenv("OMIO_POLL_INTERVAL", "2s")

	cfg, err := Load(writeConfig(t, "bus:\n  driver: periph\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Bus.Driver != DriverSim {
		t.Errorf("Expected environment to override the file, got %q", cfg.Bus.Driver)
	}
	if cfg.Poll.Interval != 2*time.Second {
		t.Errorf("Expected 2s from environment, got %v", cfg.Poll.Interval)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []string{
		"bus:\n  driver: spidev\n",
		"poll:\n  interval: 0s\n",
		"log:\n  level: loud\n",
		"timing:\n  mux_settle_delay: -1ms\n",
	}
	for _, body := range tests {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("Expected error for %q", body)
		}
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		logger, err := LogConfig{Level: "warn", Development: dev}.NewLogger()
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("Debug must be disabled at warn level")
		}
	}
}
