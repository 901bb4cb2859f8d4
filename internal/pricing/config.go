package pricing

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the injected source of truth for the tax rate and the fallback
// delivery fee. The rate applies uniformly; per-screen constants are gone.
type Config struct {
	TaxRate            float64
	DefaultDeliveryFee int64
}

// LoadConfig reads TAX_RATE and DEFAULT_DELIVERY_FEE_CENTS from the
// environment, defaulting to 8% and $2.99.
func LoadConfig() (Config, error) {
	cfg := Config{TaxRate: 0.08, DefaultDeliveryFee: 299}

	if v := os.Getenv("TAX_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 || rate >= 1 {
			return Config{}, fmt.Errorf("invalid TAX_RATE %q", v)
		}
		cfg.TaxRate = rate
	}
	if v := os.Getenv("DEFAULT_DELIVERY_FEE_CENTS"); v != "" {
		fee, err := strconv.ParseInt(v, 10, 64)
		if err != nil || fee < 0 {
			return Config{}, fmt.Errorf("invalid DEFAULT_DELIVERY_FEE_CENTS %q", v)
		}
		cfg.DefaultDeliveryFee = fee
	}
	return cfg, nil
}

// DeliveryFeeFor returns the restaurant's configured fee, falling back to the
// default when the restaurant has none set.
func (c Config) DeliveryFeeFor(restaurantFee int64) int64 {
	if restaurantFee > 0 {
		return restaurantFee
	}
	return c.DefaultDeliveryFee
}
