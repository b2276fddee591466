// Package app provides the main application logic for the lipread system.
//
// It pulls frames from the camera, finds the first face, and feeds the
// mouth features through the sequence buffer into the classifier, either
// training an armed word or predicting one. Predicted words are published
// to subscribers and run through the plugin actions bound to them.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/capture"
	"github.com/ayusman/lipread/internal/detector"
	"github.com/ayusman/lipread/internal/features"
	"github.com/ayusman/lipread/internal/plugin"
	"github.com/ayusman/lipread/internal/reader"
	"github.com/ayusman/lipread/internal/sequence"
	"github.com/ayusman/lipread/internal/store"
)

// DefaultTargetSamples is the number of samples per word shown as a training goal.
const DefaultTargetSamples = 5

// ErrUnknownWord is returned when training is requested for a word outside the vocabulary.
var ErrUnknownWord = errors.New("word is not in the vocabulary")

// Config holds configuration options for the application.
type Config struct {
	// Patterns holds the trained exemplars. Required.
	Patterns *store.PatternStore
	// Store holds action bindings. Nil disables actions.
	Store *store.Store

	Camera   capture.Config
	Detector detector.Config

	PluginDir       string
	PluginTimeoutMs int

	Classifier    reader.Config
	Window        int
	TargetSamples int

	Logger zerolog.Logger
}

// EventKind identifies what an Event reports.
type EventKind string

// Event kinds.
const (
	EventPrediction EventKind = "prediction"
	EventTrained    EventKind = "trained"
)

// Event is published to subscribers after a prediction or a training sample.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Word      string    `json:"word"`
	Samples   int       `json:"samples,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WordProgress reports training progress for one vocabulary word.
type WordProgress struct {
	Word    string `json:"word"`
	Samples int    `json:"samples"`
	Target  int    `json:"target"`
}

// Complete reports whether the word reached its sample target.
func (p WordProgress) Complete() bool {
	return p.Samples >= p.Target
}

// App is the main application that orchestrates lip reading and action execution.
type App struct {
	config     Config
	logger     zerolog.Logger
	camera     capture.Camera
	detector   detector.Detector
	extractor  *features.Extractor
	buffer     *sequence.Buffer
	classifier *reader.Classifier
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	mu       sync.RWMutex
	enabled  bool
	training string
	lastWord string
	cancel   context.CancelFunc
	done     chan struct{}
	actions  sync.WaitGroup

	frameMu sync.RWMutex
	viewers int
	lastJPG []byte

	subMu       sync.RWMutex
	subscribers map[string]func(Event)
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.TargetSamples <= 0 {
		config.TargetSamples = DefaultTargetSamples
	}
	if config.PluginTimeoutMs <= 0 {
		config.PluginTimeoutMs = 5000
	}
	if config.Camera.FPS <= 0 {
		config.Camera.FPS = capture.DefaultFPS
	}

	logger := config.Logger.With().Str("component", "app").Logger()
	config.Classifier.Logger = config.Logger.With().Str("component", "reader").Logger()

	a := &App{
		config:      config,
		logger:      logger,
		camera:      capture.NewCamera(config.Camera),
		extractor:   features.NewExtractor(config.Logger),
		buffer:      sequence.New(config.Window),
		classifier:  reader.New(config.Patterns, config.Classifier),
		pluginMgr:   plugin.NewManager(config.PluginDir, config.Logger),
		pluginExec:  plugin.NewExecutor(config.PluginTimeoutMs),
		subscribers: make(map[string]func(Event)),
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		logger.Info().Msg("using MediaPipe face mesh detection")
	} else {
		logger.Warn().Err(err).Msg("MediaPipe not available, using mock detector")
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables lip reading.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether lip reading is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the face detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the capture device. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// ArmTraining makes the next complete window a training sample for word.
// The buffer is cleared so the sample only holds frames captured after
// the call.
func (a *App) ArmTraining(word string) error {
	if !a.config.Patterns.Vocabulary().Contains(word) {
		return fmt.Errorf("%w: %q", ErrUnknownWord, word)
	}

	a.mu.Lock()
	a.training = word
	a.buffer.Reset()
	a.mu.Unlock()

	a.logger.Info().Str("word", word).Msg("training armed")
	return nil
}

// CancelTraining disarms training. It reports whether a word was armed.
func (a *App) CancelTraining() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.training == "" {
		return false
	}
	a.logger.Info().Str("word", a.training).Msg("training cancelled")
	a.training = ""
	return true
}

// Training returns the armed word, if any.
func (a *App) Training() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.training, a.training != ""
}

// LastWord returns the most recent prediction.
func (a *App) LastWord() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastWord
}

// Progress returns sample counts for every vocabulary word, in vocabulary order.
func (a *App) Progress() []WordProgress {
	words := a.config.Patterns.Vocabulary().Words()
	progress := make([]WordProgress, len(words))
	for i, w := range words {
		progress[i] = WordProgress{
			Word:    w,
			Samples: a.config.Patterns.Count(w),
			Target:  a.config.TargetSamples,
		}
	}
	return progress
}

// Subscribe registers fn for every published event. The returned function
// removes the subscription. fn runs on the pipeline goroutine and must not block.
func (a *App) Subscribe(fn func(Event)) func() {
	id := uuid.New().String()

	a.subMu.Lock()
	a.subscribers[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subscribers, id)
		a.subMu.Unlock()
	}
}

func (a *App) publish(e Event) {
	e.ID = uuid.New().String()
	e.Timestamp = time.Now()

	a.subMu.RLock()
	defer a.subMu.RUnlock()
	for _, fn := range a.subscribers {
		fn(e)
	}
}

// Start begins the detection pipeline. It stops when ctx is cancelled or
// Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, a.done)

	a.logger.Info().Int("fps", a.camera.FPS()).Msg("detection pipeline started")
	return nil
}

// Stop halts the detection pipeline, waits for running actions and
// releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	a.actions.Wait()

	if err := a.camera.Close(); err != nil {
		a.logger.Error().Err(err).Msg("error closing camera")
	}

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.logger.Error().Err(err).Msg("error closing detector")
		}
	}

	a.logger.Info().Msg("detection pipeline stopped")
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cancel != nil
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the face detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Classifier returns the word classifier.
func (a *App) Classifier() *reader.Classifier {
	return a.classifier
}

// Patterns returns the pattern store.
func (a *App) Patterns() *store.PatternStore {
	return a.config.Patterns
}

// Store returns the action database, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Extractor returns the feature extractor.
func (a *App) Extractor() *features.Extractor {
	return a.extractor
}
