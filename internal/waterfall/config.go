package waterfall

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Tier names, in resolution order.
const (
	TierSupplier       = "supplier_verified"
	TierRegionalHybrid = "regional_hybrid"
	TierLive           = "live_calculation"
	TierStaging        = "staging_factor"
	TierProxy          = "proxy_factor"
)

// TierOrder lists every tier in the fixed order they are consulted.
var TierOrder = []string{TierSupplier, TierRegionalHybrid, TierLive, TierStaging, TierProxy}

// Config is the top-level waterfall configuration.
type Config struct {
	Defaults DefaultConfig         `yaml:"defaults"`
	Tiers    map[string]TierConfig `yaml:"tiers"`
}

// DefaultConfig holds global defaults.
type DefaultConfig struct {
	// FossilShare and BiogenicShare split total climate when a source has no
	// fossil/biogenic breakdown.
	FossilShare   float64 `yaml:"fossil_share"`
	BiogenicShare float64 `yaml:"biogenic_share"`

	// DataQualityConfidence maps supplier data-quality grades (1-5) to confidence.
	DataQualityConfidence    map[int]float64 `yaml:"data_quality_confidence"`
	UnknownQualityConfidence float64         `yaml:"unknown_quality_confidence"`
}

// TierConfig configures a single tier.
type TierConfig struct {
	Disabled bool `yaml:"disabled"`
	// Confidence is the fixed confidence for results from this tier. For the
	// staging tier it applies when the row carries a fossil/biogenic split.
	Confidence float64 `yaml:"confidence"`
	// ConfidenceWithoutSplit applies to staging rows lacking a split.
	ConfidenceWithoutSplit float64 `yaml:"confidence_without_split,omitempty"`
}

// DefaultConfiguration returns the built-in tier constants.
func DefaultConfiguration() *Config {
	return &Config{
		Defaults: DefaultConfig{
			FossilShare:   0.85,
			BiogenicShare: 0.15,
			DataQualityConfidence: map[int]float64{
				1: 50, 2: 65, 3: 75, 4: 85, 5: 95,
			},
			UnknownQualityConfidence: 75,
		},
		Tiers: map[string]TierConfig{
			TierSupplier:       {},
			TierRegionalHybrid: {Confidence: 80},
			TierLive:           {Confidence: 85},
			TierStaging:        {Confidence: 75, ConfidenceWithoutSplit: 70},
			TierProxy:          {Confidence: 50},
		},
	}
}

// LoadConfig reads waterfall config from a YAML file. Values missing from the
// file keep their built-in defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "waterfall: read config %s", path)
	}

	// The YAML has a top-level "waterfall" key
	var wrapper struct {
		Waterfall Config `yaml:"waterfall"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "waterfall: parse config")
	}

	cfg := &wrapper.Waterfall
	def := DefaultConfiguration()

	if cfg.Defaults.FossilShare == 0 && cfg.Defaults.BiogenicShare == 0 {
		cfg.Defaults.FossilShare = def.Defaults.FossilShare
		cfg.Defaults.BiogenicShare = def.Defaults.BiogenicShare
	}
	if cfg.Defaults.UnknownQualityConfidence == 0 {
		cfg.Defaults.UnknownQualityConfidence = def.Defaults.UnknownQualityConfidence
	}
	if cfg.Defaults.DataQualityConfidence == nil {
		cfg.Defaults.DataQualityConfidence = def.Defaults.DataQualityConfidence
	}
	if cfg.Tiers == nil {
		cfg.Tiers = make(map[string]TierConfig)
	}
	// Apply defaults to tiers missing confidence
	for name, dtc := range def.Tiers {
		tc, ok := cfg.Tiers[name]
		if !ok {
			cfg.Tiers[name] = dtc
			continue
		}
		if tc.Confidence == 0 {
			tc.Confidence = dtc.Confidence
		}
		if tc.ConfidenceWithoutSplit == 0 {
			tc.ConfidenceWithoutSplit = dtc.ConfidenceWithoutSplit
		}
		cfg.Tiers[name] = tc
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that shares and confidences are in range.
func (c *Config) Validate() error {
	if c.Defaults.FossilShare < 0 || c.Defaults.BiogenicShare < 0 {
		return eris.New("waterfall: climate split shares must be non-negative")
	}
	if sum := c.Defaults.FossilShare + c.Defaults.BiogenicShare; sum < 0.999 || sum > 1.001 {
		return eris.Errorf("waterfall: climate split shares must sum to 1, got %.4f", sum)
	}
	for grade, conf := range c.Defaults.DataQualityConfidence {
		if conf < 0 || conf > 100 {
			return eris.Errorf("waterfall: data quality %d confidence %.1f out of range", grade, conf)
		}
	}
	for name, tc := range c.Tiers {
		if tc.Confidence < 0 || tc.Confidence > 100 {
			return eris.Errorf("waterfall: tier %s confidence %.1f out of range", name, tc.Confidence)
		}
	}
	return nil
}

// GetTierConfig returns the config for a tier, falling back to the built-in
// defaults.
func (c *Config) GetTierConfig(name string) TierConfig {
	if tc, ok := c.Tiers[name]; ok {
		return tc
	}
	return DefaultConfiguration().Tiers[name]
}
