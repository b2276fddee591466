// Package reader recognizes vocabulary words from windows of mouth features.
//
// A window is summarized as a store.Pattern (mean height, width and inner
// area). Training appends that pattern to the word's exemplars; prediction
// picks the nearest exemplar by squared Euclidean distance and suppresses
// repeats with a cooldown.
package reader

import (
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/sequence"
	"github.com/ayusman/lipread/internal/store"
)

// Defaults for Config.
const (
	DefaultThreshold = 0.01
	DefaultCooldown  = 10
)

// Config holds classifier tuning.
type Config struct {
	// Threshold is the squared distance a window must stay under to match.
	Threshold float64
	// Cooldown is the number of Predict calls suppressed after a prediction.
	Cooldown int
	Logger   zerolog.Logger
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Cooldown:  DefaultCooldown,
		Logger:    zerolog.Nop(),
	}
}

// State is the in-memory debounce state.
type State struct {
	LastPrediction string `json:"last_prediction"`
	HasLast        bool   `json:"has_last"`
	Cooldown       int    `json:"cooldown"`
}

// Classifier trains and matches word patterns.
type Classifier struct {
	mu           sync.Mutex
	store        *store.PatternStore
	cfg          Config
	state        State
	saveFailures int
}

// New creates a classifier over patterns. A non-positive threshold uses
// DefaultThreshold and a negative cooldown is treated as zero.
func New(patterns *store.PatternStore, cfg Config) *Classifier {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	return &Classifier{
		store: patterns,
		cfg:   cfg,
	}
}

// Store returns the pattern store the classifier reads and trains.
func (c *Classifier) Store() *store.PatternStore {
	return c.store
}

// Aggregate returns the mean geometry of seq. It reports false for an
// empty sequence.
func Aggregate(seq sequence.Sequence) (store.Pattern, bool) {
	if len(seq) == 0 {
		return store.Pattern{}, false
	}

	var p store.Pattern
	for _, v := range seq {
		p.Height += v.Geometry.Height
		p.Width += v.Geometry.Width
		p.Area += v.Geometry.InnerArea
	}
	n := float64(len(seq))
	p.Height /= n
	p.Width /= n
	p.Area /= n

	return p, true
}

// Train records seq as a sample of word and persists the store. It returns
// false, without touching the store, when word is not in the vocabulary or
// seq is empty. A failed save is logged and the sample stays in memory.
func (c *Classifier) Train(seq sequence.Sequence, word string) bool {
	if !c.store.Vocabulary().Contains(word) {
		c.cfg.Logger.Debug().Str("word", word).Msg("ignoring training for unknown word")
		return false
	}

	p, ok := Aggregate(seq)
	if !ok {
		return false
	}

	c.store.Append(word, p)

	if err := c.store.Save(); err != nil {
		c.mu.Lock()
		c.saveFailures++
		c.mu.Unlock()
		c.cfg.Logger.Error().Err(err).Str("word", word).Msg("failed to save patterns")
	}

	c.cfg.Logger.Info().
		Str("word", word).
		Int("samples", c.store.Count(word)).
		Float64("height", p.Height).
		Float64("width", p.Width).
		Float64("area", p.Area).
		Msg("trained")

	return true
}

// Predict matches seq against the trained patterns. It returns the nearest
// word when its distance is under the threshold and it differs from the
// previous prediction. While a cooldown is running each call consumes one
// tick and returns nothing.
func (c *Classifier) Predict(seq sequence.Sequence) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Cooldown > 0 {
		c.state.Cooldown--
		return "", false
	}

	if c.store.Empty() {
		return "", false
	}

	current, ok := Aggregate(seq)
	if !ok {
		return "", false
	}

	best, score := c.nearest(current)
	if best == "" || score >= c.cfg.Threshold {
		return "", false
	}
	if c.state.HasLast && best == c.state.LastPrediction {
		c.cfg.Logger.Debug().Str("word", best).Msg("repeat suppressed")
		return "", false
	}

	c.state.LastPrediction = best
	c.state.HasLast = true
	c.state.Cooldown = c.cfg.Cooldown

	c.cfg.Logger.Info().Str("word", best).Float64("score", score).Msg("prediction")
	return best, true
}

// nearest returns the word of the closest pattern. Ties keep the first
// pattern in store order.
func (c *Classifier) nearest(current store.Pattern) (string, float64) {
	best, min := "", math.Inf(1)
	c.store.Range(func(word string, p store.Pattern) bool {
		if d := current.DistanceSquared(p); d < min {
			best, min = word, d
		}
		return true
	})
	return best, min
}

// State returns a copy of the debounce state.
func (c *Classifier) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset clears the last prediction and any running cooldown.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{}
}

// SaveFailures returns how many training saves failed.
func (c *Classifier) SaveFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveFailures
}
