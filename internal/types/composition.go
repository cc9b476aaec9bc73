package types

// DeviceDefinition describes one composite device as loaded from a
// definition file.
type DeviceDefinition struct {
	Name        string            `json:"name" yaml:"name"`
	Model       string            `json:"model" yaml:"model"`
	Bus         string            `json:"bus,omitempty" yaml:"bus,omitempty"`
	Composition CompositionConfig `json:"composition" yaml:"composition"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// CompositionConfig lists the chips behind a composite device. Zero
// values fall back to the model defaults.
type CompositionConfig struct {
	Primary   ChipConfig  `json:"primary" yaml:"primary"`
	Auxiliary *ChipConfig `json:"auxiliary,omitempty" yaml:"auxiliary,omitempty"`
}

type ChipConfig struct {
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
	Address uint16 `json:"address,omitempty" yaml:"address,omitempty"`
}

// Board models
const (
	ModelDIO84 = "DIO-8/4RD-IRC"
	ModelAIO32 = "AIO-32/0RA-IRC"
)
