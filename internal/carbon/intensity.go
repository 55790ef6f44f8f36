package carbon

import (
	"fmt"

	"github.com/rshade/jobcarbon/internal/config"
	"github.com/rshade/jobcarbon/internal/tariff"
)

// ResolveIntensity builds the carbon intensity table for a cluster. A
// custom month-by-hour table wins over a literal intensity, which wins
// over a lookup of the cluster location in the country table.
func ResolveIntensity(cluster config.Cluster) (tariff.Table, error) {
	c := cluster.Carbon
	if c.CustomIntensityFile != "" {
		t, err := tariff.LoadTSVFile(c.CustomIntensityFile, tariff.ByMonth)
		if err != nil {
			return tariff.Table{}, fmt.Errorf("load carbon intensity: %w", err)
		}
		return t, nil
	}

	if v, ok := c.Literal(); ok {
		return tariff.Scalar(v), nil
	}

	if c.CarbonRef != "" {
		m, err := LoadCountryIntensities(c.CarbonRef)
		if err != nil {
			return tariff.Table{}, fmt.Errorf("load carbon intensity: %w", err)
		}
		if v, ok := m[normalizeCountry(cluster.Location)]; ok {
			return tariff.Scalar(v), nil
		}
	} else if v, ok := CountryIntensity(cluster.Location); ok {
		return tariff.Scalar(v), nil
	}

	return tariff.Table{}, fmt.Errorf("%w: no entry for location %q", config.ErrMissingIntensity, cluster.Location)
}
