package app

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/lipread/internal/capture"
	"github.com/ayusman/lipread/internal/mesh"
	"github.com/ayusman/lipread/internal/plugin"
	"github.com/ayusman/lipread/internal/sequence"
)

// OutcomeKind describes what a single face frame led to.
type OutcomeKind int

const (
	// OutcomeBuffering means the window is not full yet.
	OutcomeBuffering OutcomeKind = iota
	// OutcomeNone means a full window produced no word.
	OutcomeNone
	// OutcomeTrained means the window was stored as a training sample.
	OutcomeTrained
	// OutcomePredicted means a word was recognized.
	OutcomePredicted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeBuffering:
		return "buffering"
	case OutcomeNone:
		return "none"
	case OutcomeTrained:
		return "trained"
	case OutcomePredicted:
		return "predicted"
	default:
		return "unknown"
	}
}

// Outcome is the result of HandleFace.
type Outcome struct {
	Kind OutcomeKind
	Word string
}

// runPipeline is the main detection loop that processes frames from the camera.
//
// Pipeline logic:
// 1. Read a frame at the camera FPS
// 2. Keep a JPEG copy while stream viewers are connected
// 3. Run face mesh detection
// 4. Feed the first face through HandleFace
func (a *App) runPipeline(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	camera := a.Camera()
	fps := camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			frame, err := camera.ReadFrame()
			if err != nil {
				a.logger.Debug().Err(err).Msg("error reading frame")
				continue
			}

			a.keepFrame(frame)

			d := a.Detector()
			if d == nil {
				frame.Close()
				continue
			}

			faces, err := d.Detect(frame)
			frame.Close()

			if err != nil {
				a.logger.Warn().Err(err).Msg("error detecting faces")
				continue
			}
			if len(faces) == 0 {
				continue
			}

			out := a.HandleFace(ctx, faces[0])
			if out.Kind > OutcomeBuffering {
				a.logger.Debug().Stringer("outcome", out.Kind).Str("word", out.Word).Msg("window processed")
			}
		}
	}
}

// HandleFace pushes one face through feature extraction and the sequence
// buffer. When the window is full it trains the armed word, disarming it
// afterwards, or otherwise predicts.
func (a *App) HandleFace(ctx context.Context, face mesh.FaceLandmarks) Outcome {
	v := a.extractor.Extract(face)

	a.mu.Lock()
	ready := a.buffer.AddFrame(v)
	var seq sequence.Sequence
	word := a.training
	if ready {
		seq = a.buffer.Sequence()
		a.training = ""
	}
	a.mu.Unlock()

	if !ready {
		return Outcome{Kind: OutcomeBuffering}
	}

	if word != "" {
		if !a.classifier.Train(seq, word) {
			return Outcome{Kind: OutcomeNone}
		}
		a.publish(Event{
			Kind:    EventTrained,
			Word:    word,
			Samples: a.config.Patterns.Count(word),
		})
		return Outcome{Kind: OutcomeTrained, Word: word}
	}

	predicted, ok := a.classifier.Predict(seq)
	if !ok {
		return Outcome{Kind: OutcomeNone}
	}

	a.mu.Lock()
	a.lastWord = predicted
	a.mu.Unlock()

	a.publish(Event{Kind: EventPrediction, Word: predicted})

	if a.config.Store != nil {
		a.actions.Add(1)
		go func() {
			defer a.actions.Done()
			a.ExecuteActions(ctx, predicted)
		}()
	}

	return Outcome{Kind: OutcomePredicted, Word: predicted}
}

// ActionResult records one executed action binding.
type ActionResult struct {
	ActionID string
	Plugin   string
	Response *plugin.Response
	Err      error
}

// ExecuteActions runs every enabled action bound to word, in binding order.
func (a *App) ExecuteActions(ctx context.Context, word string) []ActionResult {
	if a.config.Store == nil {
		return nil
	}

	bindings, err := a.config.Store.Actions().ListByWord(word)
	if err != nil {
		a.logger.Error().Err(err).Str("word", word).Msg("failed to load actions")
		return nil
	}

	var results []ActionResult
	for _, b := range bindings {
		if !b.Enabled {
			continue
		}

		res := ActionResult{ActionID: b.ID, Plugin: b.PluginName}

		p, err := a.pluginMgr.Get(b.PluginName)
		if err != nil {
			res.Err = err
		} else {
			res.Response, res.Err = a.pluginExec.Execute(ctx, p, &plugin.Request{
				Action: b.ActionName,
				Word:   word,
				Config: b.Config,
			})
		}

		switch {
		case res.Err != nil:
			a.logger.Error().Err(res.Err).Str("word", word).Str("plugin", b.PluginName).Msg("action failed")
		case !res.Response.Success:
			a.logger.Warn().Str("word", word).Str("plugin", b.PluginName).Str("error", res.Response.Error).Msg("plugin reported failure")
		default:
			a.logger.Info().Str("word", word).Str("plugin", b.PluginName).Str("action", b.ActionName).Msg("action executed")
		}

		results = append(results, res)
	}
	return results
}

// keepFrame stores a JPEG copy of frame while anyone is watching the stream.
func (a *App) keepFrame(frame *gocv.Mat) {
	a.frameMu.RLock()
	watching := a.viewers > 0
	a.frameMu.RUnlock()
	if !watching {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	jpg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.frameMu.Lock()
	a.lastJPG = jpg
	a.frameMu.Unlock()
}

// Watch registers a stream viewer and returns a function that unregisters it.
func (a *App) Watch() func() {
	a.frameMu.Lock()
	a.viewers++
	a.frameMu.Unlock()

	return func() {
		a.frameMu.Lock()
		a.viewers--
		if a.viewers == 0 {
			a.lastJPG = nil
		}
		a.frameMu.Unlock()
	}
}

// LatestJPEG returns the most recent frame kept for viewers, or nil.
func (a *App) LatestJPEG() []byte {
	a.frameMu.RLock()
	defer a.frameMu.RUnlock()
	return a.lastJPG
}
