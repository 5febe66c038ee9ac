// Package layout implements the force-directed embedding optimizer: a
// resumable stochastic gradient descent that projects a fuzzy neighbor graph
// into 2D, stepped in small epoch batches by the host frame loop so
// intermediate states can be rendered.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the optimizer hyperparameters. All values are driven by UI
// sliders at runtime, so out-of-range values are clamped rather than
// rejected: a drag gesture can pass through invalid states transiently.
type Config struct {
	// NNeighbors is k for the fuzzy neighbor graph. Larger is smoother but slower.
	NNeighbors int `yaml:"n_neighbors"`

	// MinDist and Spread shape the low-dimensional membership curve.
	// Below MinDist*MinAttractiveScale attraction is attenuated so nodes
	// don't pile up exactly on top of each other.
	MinDist float64 `yaml:"min_dist"`
	Spread  float64 `yaml:"spread"`

	// MinAttractiveScale scales MinDist into the attraction exclusion radius.
	MinAttractiveScale float64 `yaml:"min_attractive_scale"`

	// AttractionStrength and RepulsionStrength are independent multipliers.
	// Keeping them decoupled (instead of implicitly tied to Spread and edge
	// weight) is what prevents runaway expansion under heavy repulsion.
	AttractionStrength float64 `yaml:"attraction_strength"`
	RepulsionStrength  float64 `yaml:"repulsion_strength"`

	// Epochs is the total optimization budget. Termination is purely
	// epoch-count based; there is no early stop on convergence.
	Epochs int `yaml:"epochs"`

	// NegativeSamples is the number of random non-neighbors repelled per
	// node per epoch.
	NegativeSamples int `yaml:"negative_samples"`

	// LearningRate is the initial SGD step multiplier.
	LearningRate float64 `yaml:"learning_rate"`

	// TargetRadius fixes the on-screen scale: after every step the embedding
	// is centered on its centroid and scaled so the max distance from the
	// centroid equals TargetRadius.
	TargetRadius float64 `yaml:"target_radius"`

	// Seed makes initialization and negative sampling reproducible.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns a standard configuration suitable for interactive
// layouts of a few hundred to a few thousand nodes.
func DefaultConfig() Config {
	return Config{
		NNeighbors:         15,
		MinDist:            0.1,
		Spread:             1.0,
		MinAttractiveScale: 1.0,
		AttractionStrength: 1.0,
		RepulsionStrength:  1.0,
		Epochs:             200,
		NegativeSamples:    5,
		LearningRate:       1.0,
		TargetRadius:       100,
		Seed:               42,
	}
}

// LoadConfig reads a YAML configuration file using strict parsing, starting
// from defaults. An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open layout config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("YAML syntax error in layout config: %w", err)
	}

	cfg.Clamp()
	return cfg, nil
}

// Clamp forces every parameter into its safe range.
func (c *Config) Clamp() {
	if c.NNeighbors < 2 {
		c.NNeighbors = 2
	}
	if c.MinDist < 0 {
		c.MinDist = 0
	}
	if c.Spread <= 0 {
		c.Spread = 0.001
	}
	if c.MinAttractiveScale < 0 {
		c.MinAttractiveScale = 0
	}
	if c.AttractionStrength < 0 {
		c.AttractionStrength = 0
	}
	if c.RepulsionStrength < 0 {
		c.RepulsionStrength = 0
	}
	if c.Epochs < 1 {
		c.Epochs = 1
	}
	if c.NegativeSamples < 1 {
		c.NegativeSamples = 1
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.001
	}
	if c.TargetRadius <= 0 {
		c.TargetRadius = 1
	}
}

// signature is the cache key for fitted curve parameters: only Spread and
// MinDist influence the fit.
func (c Config) signature() string {
	return fmt.Sprintf("%.6f|%.6f", c.Spread, c.MinDist)
}
