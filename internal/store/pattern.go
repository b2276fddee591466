package store

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Pattern is the aggregate mouth shape of one window: the mean height,
// width and inner area over its frames.
type Pattern struct {
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Area   float64 `json:"area"`
}

// DistanceSquared returns the squared Euclidean distance between p and q.
func (p Pattern) DistanceSquared(q Pattern) float64 {
	dh := p.Height - q.Height
	dw := p.Width - q.Width
	da := p.Area - q.Area
	return dh*dh + dw*dw + da*da
}

// Vocabulary is the fixed set of words the reader can learn.
type Vocabulary struct {
	words []string
	set   map[string]struct{}
}

// NewVocabulary builds a vocabulary from words, keeping the first occurrence
// of each and skipping blanks.
func NewVocabulary(words ...string) Vocabulary {
	v := Vocabulary{set: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := v.set[w]; ok {
			continue
		}
		v.set[w] = struct{}{}
		v.words = append(v.words, w)
	}
	return v
}

// Contains reports whether word is in the vocabulary.
func (v Vocabulary) Contains(word string) bool {
	_, ok := v.set[word]
	return ok
}

// Words returns the vocabulary in configuration order.
func (v Vocabulary) Words() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}

// Len returns the number of words.
func (v Vocabulary) Len() int {
	return len(v.words)
}

// Backend persists a pattern document.
type Backend interface {
	// Load returns the persisted document. A backend with nothing stored
	// returns an empty document and no error.
	Load() (Document, error)
	// Save replaces the persisted document with doc.
	Save(doc Document) error
}

// PatternStore maps vocabulary words to their trained patterns. Words and
// their patterns keep insertion order. It is safe for concurrent use.
type PatternStore struct {
	mu       sync.RWMutex
	vocab    Vocabulary
	backend  Backend
	logger   zerolog.Logger
	words    []string
	patterns map[string][]Pattern
}

// NewPatternStore creates an empty store persisted through backend.
// A nil backend keeps patterns in memory only.
func NewPatternStore(vocab Vocabulary, backend Backend, logger zerolog.Logger) *PatternStore {
	return &PatternStore{
		vocab:    vocab,
		backend:  backend,
		logger:   logger,
		patterns: make(map[string][]Pattern),
	}
}

// Vocabulary returns the words this store accepts.
func (s *PatternStore) Vocabulary() Vocabulary {
	return s.vocab
}

// Load replaces the in-memory patterns with the persisted document. It never
// fails: unreadable or malformed storage leaves the store empty, and words
// outside the vocabulary are dropped.
func (s *PatternStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.words = nil
	s.patterns = make(map[string][]Pattern)

	if s.backend == nil {
		return
	}

	doc, err := s.backend.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("pattern store unreadable, starting empty")
		return
	}

	for _, e := range doc.Entries {
		if !s.vocab.Contains(e.Word) {
			s.logger.Warn().Str("word", e.Word).Msg("dropping patterns for unknown word")
			continue
		}
		for _, p := range e.Patterns {
			s.appendLocked(e.Word, p)
		}
	}

	s.logger.Debug().Int("words", len(s.words)).Msg("patterns loaded")
}

// Save rewrites the backend with the current patterns.
func (s *PatternStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	return s.backend.Save(Document{Entries: s.entriesLocked()})
}

// Append adds p to word's patterns. Words outside the vocabulary are ignored
// and Append returns false.
func (s *PatternStore) Append(word string, p Pattern) bool {
	if !s.vocab.Contains(word) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(word, p)
	return true
}

func (s *PatternStore) appendLocked(word string, p Pattern) {
	if _, ok := s.patterns[word]; !ok {
		s.words = append(s.words, word)
	}
	s.patterns[word] = append(s.patterns[word], p)
}

// Remove deletes every pattern of word. It reports whether anything was removed.
func (s *PatternStore) Remove(word string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patterns[word]; !ok {
		return false
	}
	delete(s.patterns, word)
	for i, w := range s.words {
		if w == word {
			s.words = append(s.words[:i], s.words[i+1:]...)
			break
		}
	}
	return true
}

// Empty reports whether the store holds no patterns.
func (s *PatternStore) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words) == 0
}

// Count returns the number of patterns stored for word.
func (s *PatternStore) Count(word string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns[word])
}

// Entries returns a copy of the store contents in insertion order.
func (s *PatternStore) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesLocked()
}

func (s *PatternStore) entriesLocked() []Entry {
	entries := make([]Entry, 0, len(s.words))
	for _, w := range s.words {
		ps := make([]Pattern, len(s.patterns[w]))
		copy(ps, s.patterns[w])
		entries = append(entries, Entry{Word: w, Patterns: ps})
	}
	return entries
}

// Range calls fn for every pattern, words in insertion order and patterns in
// insertion order within a word. Iteration stops when fn returns false.
// fn must not call back into the store.
func (s *PatternStore) Range(fn func(word string, p Pattern) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.words {
		for _, p := range s.patterns[w] {
			if !fn(w, p) {
				return
			}
		}
	}
}
