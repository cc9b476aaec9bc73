package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"periph.io/x/host/v3"

	"github.com/KevinKickass/OpenMachineIO/internal/config"
	"github.com/KevinKickass/OpenMachineIO/internal/system"
	"github.com/KevinKickass/OpenMachineIO/internal/transport"
)

const usageText = `usage: iobridge [flags] [command]

commands:
  run                          load devices and poll until SIGINT/SIGTERM (default)
  list                         print the loaded devices
  call <device> <METHOD> <path>
                               run one request, e.g. call relays POST 3/value/1

The sim driver keeps register state in memory only. Every invocation
starts from power-on state, so a call never sees what an earlier call wrote.

flags:
`

func main() {
	configPath := pflag.StringP("config", "c", "configs/config.yaml", "config file")
	driver := pflag.String("driver", "", "bus driver override (periph|sim)")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	cmd, args := "run", pflag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	// Config laden
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *driver != "" {
		cfg.Bus.Driver = *driver
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid driver: %v", err)
		}
	}

	// Logger initialisieren
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	opener, err := newOpener(cfg.Bus.Driver)
	if err != nil {
		logger.Fatal("Failed to initialise bus driver", zap.Error(err))
	}

	code := 0
	switch cmd {
	case "run":
		code = run(cfg, opener, logger)
	case "list", "call":
		// one-shot commands leave outputs as they are
		cfg.Poll.Enabled = false
		if cmd == "call" && cfg.Bus.Driver == config.DriverSim {
			logger.Warn("Simulated registers start from power-on state on every call")
		}
		lifecycle, err := system.NewLifecycleManager(cfg, opener, logger)
		if err != nil {
			logger.Fatal("Failed to create lifecycle manager", zap.Error(err))
		}
		if err := lifecycle.Start(); err != nil {
			logger.Fatal("Failed to start system", zap.Error(err))
		}

		if cmd == "list" {
			list(lifecycle)
		} else {
			code = call(lifecycle, args)
		}
		if err := opener.Close(); err != nil {
			logger.Error("Failed to close buses", zap.Error(err))
		}
	default:
		pflag.Usage()
		code = 2
	}

	_ = logger.Sync()
	os.Exit(code)
}

func newOpener(driver string) (transport.Opener, error) {
	switch driver {
	case config.DriverSim:
		return transport.NewSimOpener(), nil
	default:
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host init: %w", err)
		}
		return transport.NewPeriphOpener(), nil
	}
}

func run(cfg *config.Config, opener transport.Opener, logger *zap.Logger) int {
	lifecycle, err := system.NewLifecycleManager(cfg, opener, logger)
	if err != nil {
		logger.Error("Failed to create lifecycle manager", zap.Error(err))
		return 1
	}

	// System starten
	if err := lifecycle.Start(); err != nil {
		logger.Error("Failed to start system", zap.Error(err))
		return 1
	}

	logger.Info("OpenMachineIO started successfully")

	// Graceful Shutdown auf Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := lifecycle.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		return 1
	}

	logger.Info("OpenMachineIO stopped successfully")
	return 0
}

func list(lifecycle *system.LifecycleManager) {
	for _, d := range lifecycle.DeviceManager().ListDevices() {
		info := d.Info()
		fmt.Printf("%s\t%s\t%s\t%s\n", info.ID, info.Name, info.Family, info.Ident)
	}
}

func call(lifecycle *system.LifecycleManager, args []string) int {
	if len(args) != 3 {
		pflag.Usage()
		return 2
	}

	r := lifecycle.Router().Call(args[0], args[1], args[2])
	if !r.OK() {
		fmt.Fprintln(os.Stderr, r.Body)
		return 1
	}
	fmt.Println(r.Body)
	return 0
}
