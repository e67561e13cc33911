package resolve

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid matching config")

// Config holds the matching thresholds. A Resolver keeps its own copy:
// two resolvers with different configs never interfere.
type Config struct {
	// MinPrefixLength is the shortest candidate (in characters) tested as a
	// truncated prefix; shorter generic terms prefix too many references.
	MinPrefixLength int `yaml:"min_prefix_length" mapstructure:"min_prefix_length"`
	// FuzzyThreshold is the lowest accepted similarity for a typo match.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	// MinLengthRatio and MaxLengthRatio bound len(candidate)/len(reference)
	// before any similarity is computed.
	MinLengthRatio float64 `yaml:"min_length_ratio" mapstructure:"min_length_ratio"`
	MaxLengthRatio float64 `yaml:"max_length_ratio" mapstructure:"max_length_ratio"`
	// AccentScore is the similarity recorded for a diacritic-only difference.
	AccentScore float64 `yaml:"accent_score" mapstructure:"accent_score"`
	// Workers shards candidate resolution; <= 0 means one per CPU.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns the thresholds used for the yearly claim extracts.
func DefaultConfig() Config {
	return Config{
		MinPrefixLength: 20,
		FuzzyThreshold:  0.90,
		MinLengthRatio:  0.75,
		MaxLengthRatio:  1.33,
		AccentScore:     0.99,
	}
}

// Validate checks every threshold is usable.
func (c Config) Validate() error {
	switch {
	case c.MinPrefixLength < 1:
		return fmt.Errorf("%w: min_prefix_length must be >= 1, got %d", ErrInvalidConfig, c.MinPrefixLength)
	case c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1:
		return fmt.Errorf("%w: fuzzy_threshold must be in (0,1], got %g", ErrInvalidConfig, c.FuzzyThreshold)
	case c.AccentScore <= 0 || c.AccentScore > 1:
		return fmt.Errorf("%w: accent_score must be in (0,1], got %g", ErrInvalidConfig, c.AccentScore)
	case c.MinLengthRatio <= 0 || c.MinLengthRatio > 1:
		return fmt.Errorf("%w: min_length_ratio must be in (0,1], got %g", ErrInvalidConfig, c.MinLengthRatio)
	case c.MaxLengthRatio < 1:
		return fmt.Errorf("%w: max_length_ratio must be >= 1, got %g", ErrInvalidConfig, c.MaxLengthRatio)
	}
	return nil
}
