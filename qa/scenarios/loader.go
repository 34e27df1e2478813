package scenarios

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/coldchain/core/model"
)

type FacilityDef struct {
	Name            string  `yaml:"name"`
	DistanceKm      float64 `yaml:"distance_km"`
	CapacityPercent float64 `yaml:"capacity_percent"`
	Road            string  `yaml:"road"`
}

func (f FacilityDef) ToModel() (model.Facility, error) {
	road, err := model.ParseRoadCondition(f.Road)
	if err != nil {
		return model.Facility{}, fmt.Errorf("facility %s: %w", f.Name, err)
	}
	return model.Facility{
		Name:            f.Name,
		DistanceKm:      f.DistanceKm,
		CapacityPercent: f.CapacityPercent,
		Road:            road,
	}, nil
}

type Expected struct {
	Decision string `yaml:"decision"`
	Target   string `yaml:"target,omitempty"`
}

// StepDef is one telemetry reading. Facilities, when set, replace the
// scenario facilities for this step only.
type StepDef struct {
	Temperature float64       `yaml:"temperature"`
	Humidity    float64       `yaml:"humidity"`
	Vibration   float64       `yaml:"vibration"`
	Road        string        `yaml:"road,omitempty"`
	Chaos       bool          `yaml:"chaos,omitempty"`
	Facilities  []FacilityDef `yaml:"facilities,omitempty"`
	Expect      Expected      `yaml:"expect"`
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	CargoValue  float64       `yaml:"cargo_value"`
	Facilities  []FacilityDef `yaml:"facilities"`
	Steps       []StepDef     `yaml:"steps"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, errors.New("scenario name is required")
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", sc.Name)
	}
	return &sc, nil
}

func toFacilities(defs []FacilityDef) ([]model.Facility, error) {
	out := make([]model.Facility, 0, len(defs))
	for _, d := range defs {
		f, err := d.ToModel()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
