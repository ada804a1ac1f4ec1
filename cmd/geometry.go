package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hybrid-depletion/hybrid-depletion/dep"
)

// geometryFile is the regions section of the solver data YAML. The
// same file carries the tabulated flux and cross sections, so one
// input fully describes a runnable problem.
type geometryFile struct {
	Regions []regionSpec `yaml:"regions"`
}

type regionSpec struct {
	Name        string          `yaml:"name"`
	Volume      float64         `yaml:"volume"`      // cm3
	Temperature float64         `yaml:"temperature"` // K
	Density     map[int]float64 `yaml:"density"`     // zai -> atoms/cm3
}

// loadGeometryFile reads the burnable regions and aligns their initial
// densities to the chain's nuclide order.
func loadGeometryFile(path string, chain *dep.Chain) (*dep.StaticGeometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading geometry: %w", err)
	}
	var gf geometryFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("parsing geometry: %w", err)
	}
	if len(gf.Regions) == 0 {
		return nil, fmt.Errorf("%s defines no regions", path)
	}

	geom := &dep.StaticGeometry{}
	for _, spec := range gf.Regions {
		reg := &dep.Region{
			Name:        spec.Name,
			Volume:      spec.Volume,
			Temperature: spec.Temperature,
			Density:     make([]float64, chain.Len()),
		}
		for zai, density := range spec.Density {
			i, ok := chain.Index(dep.ZAI(zai))
			if !ok {
				return nil, fmt.Errorf("region %q loads %s, which the chain does not define", spec.Name, dep.ZAI(zai))
			}
			reg.Density[i] = density
		}
		geom.Regions = append(geom.Regions, reg)
	}
	return geom, nil
}
