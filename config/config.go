// Package config carries the decompression engine's tunable parameters and
// their validation. Configuration is a plain struct with yaml struct tags
// and a strict-decode loader so a typo'd key fails loudly.
package config

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// CeilingType selects how Model.Ceiling() derives the displayed ceiling.
type CeilingType int

const (
	// Actual reports the leading compartment's ceiling directly.
	Actual CeilingType = iota
	// Adaptive iterates a forked ascent simulation to find a more
	// permissive ceiling.
	Adaptive
)

func (c CeilingType) String() string {
	switch c {
	case Actual:
		return "actual"
	case Adaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("CeilingType(%d)", int(c))
	}
}

// MarshalYAML renders the CeilingType as its string form.
func (c CeilingType) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML parses the CeilingType from its string form.
func (c *CeilingType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "actual":
		*c = Actual
	case "adaptive":
		*c = Adaptive
	default:
		return fmt.Errorf("config: unknown ceiling_type %q", s)
	}
	return nil
}

// NDLType selects the algorithm Model.NDL() uses.
type NDLType int

const (
	// NDLActual forward-simulates minute by minute until a decompression
	// obligation appears.
	NDLActual NDLType = iota
	// NDLByCeiling is observably identical to NDLActual in this
	// implementation — see DESIGN.md for why.
	NDLByCeiling
)

func (n NDLType) String() string {
	switch n {
	case NDLActual:
		return "actual"
	case NDLByCeiling:
		return "by_ceiling"
	default:
		return fmt.Sprintf("NDLType(%d)", int(n))
	}
}

// MarshalYAML renders the NDLType as its string form.
func (n NDLType) MarshalYAML() (interface{}, error) {
	return n.String(), nil
}

// UnmarshalYAML parses the NDLType from its string form.
func (n *NDLType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "actual":
		*n = NDLActual
	case "by_ceiling":
		*n = NDLByCeiling
	default:
		return fmt.Errorf("config: unknown ndl_type %q", s)
	}
	return nil
}

// GradientFactors is the (low, high) conservatism pair, each a percentage
// in [1,100] with Low <= High.
type GradientFactors struct {
	Low  int `yaml:"low"`
	High int `yaml:"high"`
}

// Config holds the tunable parameters of the decompression engine.
type Config struct {
	GradientFactors     GradientFactors `yaml:"gradient_factors"`
	SurfacePressureMbar int             `yaml:"surface_pressure_mbar"`
	DecoAscentRateMPerM float64         `yaml:"deco_ascent_rate_m_per_min"`
	CeilingType         CeilingType     `yaml:"ceiling_type"`
	RoundCeiling        bool            `yaml:"round_ceiling"`
	NDLType             NDLType         `yaml:"ndl_type"`
}

// Default returns the default configuration: GF 100/100,
// 1013 mbar surface pressure, 10 m/min deco ascent rate, actual ceiling,
// no ceiling rounding, actual NDL.
func Default() Config {
	return Config{
		GradientFactors:     GradientFactors{Low: 100, High: 100},
		SurfacePressureMbar: 1013,
		DecoAscentRateMPerM: 10,
		CeilingType:         Actual,
		RoundCeiling:        false,
		NDLType:             NDLActual,
	}
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate checks each field's bounds. All bounds are inclusive and
// validation fails closed on the first violation found.
func (c Config) Validate() error {
	gf := c.GradientFactors
	if gf.Low < 1 || gf.Low > 100 {
		return &ConfigError{Field: "gradient_factors.low", Reason: "must be in [1,100]"}
	}
	if gf.High < 1 || gf.High > 100 {
		return &ConfigError{Field: "gradient_factors.high", Reason: "must be in [1,100]"}
	}
	if gf.Low > gf.High {
		return &ConfigError{Field: "gradient_factors", Reason: "low must not exceed high"}
	}
	if c.SurfacePressureMbar < 500 || c.SurfacePressureMbar > 1200 {
		return &ConfigError{Field: "surface_pressure_mbar", Reason: "must be in [500,1200]"}
	}
	if c.DecoAscentRateMPerM <= 0 || c.DecoAscentRateMPerM > 30 {
		return &ConfigError{Field: "deco_ascent_rate_m_per_min", Reason: "must be in (0,30]"}
	}
	if c.CeilingType != Actual && c.CeilingType != Adaptive {
		return &ConfigError{Field: "ceiling_type", Reason: "must be actual or adaptive"}
	}
	if c.NDLType != NDLActual && c.NDLType != NDLByCeiling {
		return &ConfigError{Field: "ndl_type", Reason: "must be actual or by_ceiling"}
	}
	return nil
}

// LoadYAML decodes a Config from r using strict field checking, so that a
// typo'd key in a hand-edited config file is a load error rather than a
// silently-ignored field.
func LoadYAML(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// MarshalYAMLDocument renders the Config back to YAML text.
func (c Config) MarshalYAMLDocument() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	defer enc.Close()
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return buf.Bytes(), nil
}
