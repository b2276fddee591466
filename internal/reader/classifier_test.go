package reader

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/features"
	"github.com/ayusman/lipread/internal/sequence"
	"github.com/ayusman/lipread/internal/store"
)

type memBackend struct {
	doc     store.Document
	saveErr error
	saves   int
}

func (b *memBackend) Load() (store.Document, error) { return b.doc, nil }

func (b *memBackend) Save(doc store.Document) error {
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.doc = doc
	return nil
}

// window returns a full window whose every frame has geometry p.
func window(p store.Pattern) sequence.Sequence {
	seq := make(sequence.Sequence, sequence.DefaultWindow)
	for i := range seq {
		seq[i].Geometry = features.Geometry{Height: p.Height, Width: p.Width, InnerArea: p.Area}
	}
	return seq
}

func newClassifier(t *testing.T, backend *memBackend, words ...string) *Classifier {
	t.Helper()
	if len(words) == 0 {
		words = []string{"hello", "yes", "no"}
	}
	patterns := store.NewPatternStore(store.NewVocabulary(words...), backend, zerolog.Nop())
	return New(patterns, DefaultConfig())
}

var (
	yesPattern = store.Pattern{Height: 0.10, Width: 0.20, Area: 0.01}
	noPattern  = store.Pattern{Height: 0.05, Width: 0.15, Area: 0.002}
)

func TestAggregate(t *testing.T) {
	seq := sequence.Sequence{
		{Geometry: features.Geometry{Height: 0.1, Width: 0.2, InnerArea: 0.01}},
		{Geometry: features.Geometry{Height: 0.3, Width: 0.4, InnerArea: 0.03}},
	}

	p, ok := Aggregate(seq)
	if !ok {
		t.Fatal("Aggregate() ok = false")
	}
	want := store.Pattern{Height: 0.2, Width: 0.3, Area: 0.02}
	if p.DistanceSquared(want) > 1e-18 {
		t.Errorf("Aggregate() = %+v, want %+v", p, want)
	}

	if _, ok := Aggregate(nil); ok {
		t.Error("Aggregate(nil) should report false")
	}
}

func TestTrain_PersistsPattern(t *testing.T) {
	backend := &memBackend{}
	c := newClassifier(t, backend)

	if !c.Train(window(yesPattern), "yes") {
		t.Fatal("Train() = false")
	}

	if c.Store().Count("yes") != 1 {
		t.Errorf("Count(yes) = %d, want 1", c.Store().Count("yes"))
	}
	if backend.saves != 1 {
		t.Errorf("saves = %d, want 1", backend.saves)
	}
	if len(backend.doc.Entries) != 1 || backend.doc.Entries[0].Word != "yes" {
		t.Errorf("persisted document = %+v", backend.doc.Entries)
	}
}

func TestTrain_VocabularyGuard(t *testing.T) {
	backend := &memBackend{}
	c := newClassifier(t, backend)

	if c.Train(window(yesPattern), "not-a-word") {
		t.Error("Train() accepted a word outside the vocabulary")
	}
	if !c.Store().Empty() {
		t.Error("store changed")
	}
	if backend.saves != 0 {
		t.Errorf("saves = %d, want 0", backend.saves)
	}
}

func TestTrain_EmptySequence(t *testing.T) {
	backend := &memBackend{}
	c := newClassifier(t, backend)

	if c.Train(nil, "yes") {
		t.Error("Train() accepted an empty sequence")
	}
	if backend.saves != 0 {
		t.Errorf("saves = %d, want 0", backend.saves)
	}
}

func TestTrain_SaveFailureKeepsSample(t *testing.T) {
	backend := &memBackend{saveErr: errors.New("disk full")}
	c := newClassifier(t, backend)

	if !c.Train(window(yesPattern), "yes") {
		t.Fatal("Train() = false on save failure")
	}
	if c.Store().Count("yes") != 1 {
		t.Error("sample dropped after failed save")
	}
	if c.SaveFailures() != 1 {
		t.Errorf("SaveFailures() = %d, want 1", c.SaveFailures())
	}
}

func TestPredict_EmptyStore(t *testing.T) {
	c := newClassifier(t, &memBackend{})

	if word, ok := c.Predict(window(yesPattern)); ok {
		t.Errorf("Predict() = %q on an empty store", word)
	}
}

func TestPredict_EmptySequence(t *testing.T) {
	c := newClassifier(t, &memBackend{})
	c.Train(window(yesPattern), "yes")

	if word, ok := c.Predict(nil); ok {
		t.Errorf("Predict(nil) = %q", word)
	}
}

func TestPredict_Debounce(t *testing.T) {
	setup := func(t *testing.T) *Classifier {
		c := newClassifier(t, &memBackend{})
		c.Train(window(yesPattern), "yes")
		c.Train(window(noPattern), "no")

		word, ok := c.Predict(window(yesPattern))
		if !ok || word != "yes" {
			t.Fatalf("first Predict() = %q, %v; want yes", word, ok)
		}

		for i := 1; i <= DefaultCooldown; i++ {
			if word, ok := c.Predict(window(yesPattern)); ok {
				t.Fatalf("call %d during cooldown returned %q", i, word)
			}
			if got := c.State().Cooldown; got != DefaultCooldown-i {
				t.Fatalf("cooldown after call %d = %d, want %d", i, got, DefaultCooldown-i)
			}
		}
		return c
	}

	t.Run("a different word is accepted after cooldown", func(t *testing.T) {
		c := setup(t)

		word, ok := c.Predict(window(noPattern))
		if !ok || word != "no" {
			t.Errorf("Predict() after cooldown = %q, %v; want no", word, ok)
		}
		if c.State().Cooldown != DefaultCooldown {
			t.Errorf("cooldown = %d, want %d", c.State().Cooldown, DefaultCooldown)
		}
	})

	t.Run("the same word stays suppressed", func(t *testing.T) {
		c := setup(t)

		if word, ok := c.Predict(window(yesPattern)); ok {
			t.Errorf("repeat prediction %q was not suppressed", word)
		}
		if c.State().Cooldown != 0 {
			t.Errorf("suppressed repeat restarted cooldown: %d", c.State().Cooldown)
		}
	})
}

func TestPredict_ThresholdRejection(t *testing.T) {
	c := newClassifier(t, &memBackend{})
	c.Train(window(yesPattern), "yes")

	far := store.Pattern{Height: yesPattern.Height + 0.15, Width: yesPattern.Width, Area: yesPattern.Area}
	if d := far.DistanceSquared(yesPattern); d < DefaultThreshold {
		t.Fatalf("test pattern too close: %g", d)
	}

	if word, ok := c.Predict(window(far)); ok {
		t.Errorf("Predict() = %q for a window past the threshold", word)
	}
	if c.State().Cooldown != 0 || c.State().LastPrediction != "" {
		t.Errorf("rejected window changed state: %+v", c.State())
	}
}

func TestPredict_WorkedExample(t *testing.T) {
	c := newClassifier(t, &memBackend{}, "hello", "yes", "no")

	for _, p := range []store.Pattern{
		{Height: 0.10, Width: 0.20, Area: 0.01},
		{Height: 0.11, Width: 0.19, Area: 0.012},
		{Height: 0.09, Width: 0.21, Area: 0.011},
	} {
		if !c.Train(window(p), "yes") {
			t.Fatalf("Train(%+v) = false", p)
		}
	}

	current := store.Pattern{Height: 0.10, Width: 0.20, Area: 0.0113}
	best, score := c.nearest(current)
	if best != "yes" || math.Abs(score-1.69e-6) > 1e-9 {
		t.Errorf("nearest() = %q, %g; want yes, 1.69e-6", best, score)
	}

	word, ok := c.Predict(window(current))
	if !ok || word != "yes" {
		t.Fatalf("Predict() = %q, %v; want yes", word, ok)
	}

	if word, ok := c.Predict(window(current)); ok {
		t.Errorf("immediate repeat returned %q", word)
	}
}

func TestPredict_TiesKeepFirstWord(t *testing.T) {
	c := newClassifier(t, &memBackend{})
	c.Train(window(yesPattern), "no")
	c.Train(window(yesPattern), "yes")

	word, ok := c.Predict(window(yesPattern))
	if !ok || word != "no" {
		t.Errorf("Predict() = %q, %v; want first trained word no", word, ok)
	}
}

func TestNew_ConfigDefaults(t *testing.T) {
	patterns := store.NewPatternStore(store.NewVocabulary("yes"), nil, zerolog.Nop())

	c := New(patterns, Config{Threshold: 0, Cooldown: -1})

	if c.cfg.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %g, want %g", c.cfg.Threshold, DefaultThreshold)
	}
	if c.cfg.Cooldown != 0 {
		t.Errorf("Cooldown = %d, want 0", c.cfg.Cooldown)
	}
}

func TestPredict_CustomCooldown(t *testing.T) {
	patterns := store.NewPatternStore(store.NewVocabulary("yes", "no"), nil, zerolog.Nop())
	c := New(patterns, Config{Threshold: DefaultThreshold, Cooldown: 2})
	c.Train(window(yesPattern), "yes")
	c.Train(window(noPattern), "no")

	results := []bool{}
	inputs := []store.Pattern{yesPattern, noPattern, noPattern, noPattern}
	for _, p := range inputs {
		_, ok := c.Predict(window(p))
		results = append(results, ok)
	}

	want := []bool{true, false, false, true}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("call %d ok = %v, want %v", i, results[i], want[i])
		}
	}
}

func TestReset(t *testing.T) {
	c := newClassifier(t, &memBackend{})
	c.Train(window(yesPattern), "yes")
	c.Predict(window(yesPattern))

	c.Reset()

	if c.State() != (State{}) {
		t.Errorf("State() after Reset = %+v", c.State())
	}
	if word, ok := c.Predict(window(yesPattern)); !ok || word != "yes" {
		t.Errorf("Predict() after Reset = %q, %v; want yes", word, ok)
	}
}
