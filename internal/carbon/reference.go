package carbon

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed data/emission_references.yaml
var defaultReferenceYAML []byte

// Power is a power draw in kW.
type Power struct {
	KW float64 `yaml:"kW" validate:"gte=0"`
}

// Baseline is the CO2 in grams of one unit of a comparison activity.
type Baseline struct {
	CO2 float64 `yaml:"CO2" validate:"gt=0"`
}

// EnergyReference holds the power draw of each billed resource.
type EnergyReference struct {
	CPUCore  Power `yaml:"cpu_core"`
	Memory16 Power `yaml:"mem_16GB"`
	GPU      Power `yaml:"gpu_full"`
}

// EmissionReference holds the comparison baselines.
type EmissionReference struct {
	WashingMachineCycle Baseline `yaml:"washing_machine_cycle"`
	Car1Km              Baseline `yaml:"car_1km"`
	TreeMonth           Baseline `yaml:"tree_month"`
	Flight              Baseline `yaml:"flight_cph_lon"`

	// TonOffsetMin and TonOffsetMax are offset prices per tonne CO2.
	TonOffsetMin Baseline `yaml:"ton_offset_min"`
	TonOffsetMax Baseline `yaml:"ton_offset_max"`

	OffsetCurrency string `yaml:"offset_currency"`
}

// Reference is the emissions reference document. It is loaded once and
// treated as read-only.
type Reference struct {
	Energy    EnergyReference   `yaml:"energy"`
	Emissions EmissionReference `yaml:"emissions"`
}

var validate = validator.New()

// DefaultReference returns the built-in reference document.
func DefaultReference() Reference {
	ref, err := ParseReference(defaultReferenceYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded emission references: %v", err))
	}
	return ref
}

// LoadReference reads a reference document from path.
func LoadReference(path string) (Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Reference{}, fmt.Errorf("read emission references: %w", err)
	}
	ref, err := ParseReference(data)
	if err != nil {
		return Reference{}, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

// ParseReference decodes and validates a reference document.
func ParseReference(data []byte) (Reference, error) {
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return Reference{}, fmt.Errorf("parse emission references: %w", err)
	}
	if err := validate.Struct(ref); err != nil {
		return Reference{}, fmt.Errorf("invalid emission references: %w", err)
	}
	if ref.Emissions.TonOffsetMax.CO2 < ref.Emissions.TonOffsetMin.CO2 {
		return Reference{}, fmt.Errorf("invalid emission references: ton_offset_max %g below ton_offset_min %g",
			ref.Emissions.TonOffsetMax.CO2, ref.Emissions.TonOffsetMin.CO2)
	}
	return ref, nil
}
