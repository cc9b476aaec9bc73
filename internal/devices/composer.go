package devices

import (
	"fmt"
	"time"

	"github.com/KevinKickass/OpenMachineIO/internal/adc"
	"github.com/KevinKickass/OpenMachineIO/internal/expander"
	"github.com/KevinKickass/OpenMachineIO/internal/facade"
	"github.com/KevinKickass/OpenMachineIO/internal/mux"
	"github.com/KevinKickass/OpenMachineIO/internal/transport"
	"github.com/KevinKickass/OpenMachineIO/internal/types"
	"go.uber.org/zap"
)

// Timing holds the settle waits handed to the chip drivers.
type Timing struct {
	ConversionDelay time.Duration
	SettleDelay     time.Duration
}

// DefaultTiming matches the boards' documented worst case.
var DefaultTiming = Timing{
	ConversionDelay: adc.ConversionDelay,
	SettleDelay:     mux.SettleDelay,
}

// Model defaults, used when a definition leaves a chip unset.
var modelDefaults = map[string]types.CompositionConfig{
	types.ModelDIO84: {
		Primary: types.ChipConfig{Variant: string(expander.PCA9535), Address: 0x23},
	},
	types.ModelAIO32: {
		Primary:   types.ChipConfig{Variant: string(adc.ADS1115), Address: 0x49},
		Auxiliary: &types.ChipConfig{Variant: string(expander.PCA9554A), Address: 0x3E},
	},
}

// Composer builds facades from definitions, opening one register transport
// per chip.
type Composer struct {
	opener     transport.Opener
	defaultBus string
	timing     Timing
	logger     *zap.Logger
}

func NewComposer(opener transport.Opener, defaultBus string, timing Timing, logger *zap.Logger) *Composer {
	return &Composer{
		opener:     opener,
		defaultBus: defaultBus,
		timing:     timing,
		logger:     logger,
	}
}

// Compose resolves the chips of def against the model defaults and returns
// the board as an unregistered device.
func (c *Composer) Compose(def *types.DeviceDefinition) (*Device, error) {
	comp, err := resolve(def)
	if err != nil {
		return nil, err
	}

	bus := def.Bus
	if bus == "" {
		bus = c.defaultBus
	}

	c.logger.Info("Composing device",
		zap.String("name", def.Name),
		zap.String("model", def.Model),
		zap.String("bus", bus),
		zap.String("primary", fmt.Sprintf("%s@0x%02X", comp.Primary.Variant, comp.Primary.Address)))

	switch def.Model {
	case types.ModelDIO84:
		d, err := c.composeDigital(bus, comp)
		if err != nil {
			return nil, err
		}
		return newDigitalDevice(def, bus, d), nil
	case types.ModelAIO32:
		a, err := c.composeAnalog(bus, comp)
		if err != nil {
			return nil, err
		}
		return newAnalogDevice(def, bus, a), nil
	default:
		return nil, &types.UnsupportedValueError{What: "model", Value: def.Model}
	}
}

func (c *Composer) composeDigital(bus string, comp types.CompositionConfig) (*facade.Digital, error) {
	if comp.Auxiliary != nil {
		return nil, fmt.Errorf("%s takes no auxiliary chip", types.ModelDIO84)
	}

	exp, err := c.openExpander(bus, comp.Primary, 16)
	if err != nil {
		return nil, err
	}

	d, err := facade.NewDigital(exp, comp.Primary.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", types.ModelDIO84, err)
	}
	return d, nil
}

func (c *Composer) composeAnalog(bus string, comp types.CompositionConfig) (*facade.Analog, error) {
	variant := adc.Variant(comp.Primary.Variant)
	lo, hi, err := variant.AddressRange()
	if err != nil {
		return nil, err
	}
	if err := types.CheckRange("address", int(comp.Primary.Address), int(lo), int(hi)); err != nil {
		return nil, fmt.Errorf("%s: %w", variant, err)
	}

	// the mux lines are driven before the converter is configured
	exp, err := c.openExpander(bus, *comp.Auxiliary, 8)
	if err != nil {
		return nil, err
	}

	regs, err := c.opener.Open(bus, comp.Primary.Address, transport.WordRegisters)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", variant, err)
	}
	conv, err := adc.New(regs, variant, adc.WithConversionDelay(c.timing.ConversionDelay))
	if err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", variant, err)
	}

	sel, err := mux.New(exp, conv, mux.WithSettleDelay(c.timing.SettleDelay))
	if err != nil {
		return nil, fmt.Errorf("failed to configure multiplexer: %w", err)
	}

	return facade.NewAnalog(sel, comp.Primary.Address, comp.Auxiliary.Address,
		facade.WithResolution(conv.Resolution())), nil
}

func (c *Composer) openExpander(bus string, chip types.ChipConfig, width int) (*expander.Expander, error) {
	variant := expander.Variant(chip.Variant)
	lo, hi, err := variant.AddressRange()
	if err != nil {
		return nil, err
	}
	if variant.Width() != width {
		return nil, fmt.Errorf("%s: need a %d-channel expander, got %d", variant, width, variant.Width())
	}
	if err := types.CheckRange("address", int(chip.Address), int(lo), int(hi)); err != nil {
		return nil, fmt.Errorf("%s: %w", variant, err)
	}

	regs, err := c.opener.Open(bus, chip.Address, transport.PortLayout(variant.Banks()))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", variant, err)
	}
	return expander.New(regs, variant)
}

// resolve fills unset chips and fields from the model defaults.
func resolve(def *types.DeviceDefinition) (types.CompositionConfig, error) {
	defaults, ok := modelDefaults[def.Model]
	if !ok {
		return types.CompositionConfig{}, &types.UnsupportedValueError{What: "model", Value: def.Model}
	}

	comp := types.CompositionConfig{Primary: merge(def.Composition.Primary, defaults.Primary)}
	switch {
	case def.Composition.Auxiliary != nil && defaults.Auxiliary != nil:
		aux := merge(*def.Composition.Auxiliary, *defaults.Auxiliary)
		comp.Auxiliary = &aux
	case def.Composition.Auxiliary != nil:
		comp.Auxiliary = def.Composition.Auxiliary
	case defaults.Auxiliary != nil:
		aux := *defaults.Auxiliary
		comp.Auxiliary = &aux
	}
	return comp, nil
}

func merge(chip, defaults types.ChipConfig) types.ChipConfig {
	if chip.Variant == "" {
		chip.Variant = defaults.Variant
	}
	if chip.Address == 0 {
		chip.Address = defaults.Address
	}
	return chip
}
