package estimate

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rshade/jobcarbon/internal/carbon"
	"github.com/rshade/jobcarbon/internal/config"
	"github.com/rshade/jobcarbon/internal/pricing"
)

// FromConfig resolves the carbon intensity and energy price sources of
// cfg and returns an Estimator pricing jobs against ref. Tariff hours are
// read in the configured time zone unless opts.Location is set.
func FromConfig(cfg *config.Config, ref carbon.Reference, opts Options, logger zerolog.Logger) (*Estimator, error) {
	prices, err := pricing.NewClient(cfg.Cluster.Price, logger)
	if err != nil {
		return nil, fmt.Errorf("load energy prices: %w", err)
	}
	return WithPrices(cfg, ref, prices, opts, logger)
}

// WithPrices is FromConfig with the energy prices supplied by the caller.
func WithPrices(cfg *config.Config, ref carbon.Reference, prices pricing.PricingClient, opts Options, logger zerolog.Logger) (*Estimator, error) {
	intensity, err := carbon.ResolveIntensity(cfg.Cluster)
	if err != nil {
		return nil, fmt.Errorf("resolve carbon intensity: %w", err)
	}

	if opts.Location == nil {
		opts.Location = cfg.Location()
	}
	calc := carbon.NewCalculator(ref, prices.Table(), intensity)
	return New(calc, prices.Currency(), opts, logger), nil
}
