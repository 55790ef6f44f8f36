// Package pricing resolves the configured energy price into a tariff
// table and currency.
package pricing

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/jobcarbon/internal/config"
	"github.com/rshade/jobcarbon/internal/tariff"
)

// PricingClient provides energy price lookups.
type PricingClient interface {
	// Currency returns the ISO 4217 code prices are expressed in.
	Currency() string

	// Table returns the price tariff, scalar or weekday/weekend by hour.
	Table() tariff.Table
}

var _ PricingClient = (*Client)(nil)

// Client implements PricingClient from the cluster price configuration.
type Client struct {
	cfg      config.Price
	currency string
	logger   zerolog.Logger

	once  sync.Once
	err   error
	table tariff.Table
}

// NewClient creates a Client for cfg. A custom price table wins over a
// literal energy price. It returns config.ErrMissingPrice when neither a
// price nor a currency is configured.
func NewClient(cfg config.Price, logger zerolog.Logger) (*Client, error) {
	c := &Client{
		cfg:      cfg,
		currency: strings.ToUpper(strings.TrimSpace(cfg.PriceCurrency)),
		logger:   logger,
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

// init loads the price table exactly once.
func (c *Client) init() error {
	c.once.Do(func() {
		if c.currency == "" {
			c.err = config.ErrMissingPrice
			return
		}

		switch {
		case c.cfg.CustomPriceTable != "":
			start := time.Now()
			t, err := tariff.LoadTSVFile(c.cfg.CustomPriceTable, tariff.ByWeekday)
			if err != nil {
				c.err = fmt.Errorf("load energy price table: %w", err)
				return
			}
			c.table = t
			c.logger.Debug().
				Str("path", c.cfg.CustomPriceTable).
				Str("currency", c.currency).
				Dur("load_time", time.Since(start)).
				Msg("loaded energy price table")
			if c.cfg.EnergyPrice != nil {
				c.logger.Warn().
					Float64("energy_price", *c.cfg.EnergyPrice).
					Msg("energy_price ignored, custom_price_table takes precedence")
			}
		case c.cfg.EnergyPrice != nil:
			c.table = tariff.Scalar(*c.cfg.EnergyPrice)
		default:
			c.err = config.ErrMissingPrice
		}
	})
	return c.err
}

// Currency returns the price currency.
func (c *Client) Currency() string {
	return c.currency
}

// Table returns the price tariff.
func (c *Client) Table() tariff.Table {
	return c.table
}

// IsMissingPrice reports whether err means no price was configured.
func IsMissingPrice(err error) bool {
	return errors.Is(err, config.ErrMissingPrice)
}
