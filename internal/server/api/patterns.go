package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/store"
)

// PatternHandler exposes the trained exemplars.
type PatternHandler struct {
	patterns *store.PatternStore
	onRemove func(word string)
	logger   zerolog.Logger
}

// NewPatternHandler creates a new PatternHandler over patterns. onRemove,
// if not nil, runs after a word's patterns were deleted and saved.
func NewPatternHandler(patterns *store.PatternStore, onRemove func(word string), logger zerolog.Logger) *PatternHandler {
	return &PatternHandler{patterns: patterns, onRemove: onRemove, logger: logger}
}

type patternEntryResponse struct {
	Word     string          `json:"word"`
	Samples  int             `json:"samples"`
	Patterns []store.Pattern `json:"patterns"`
}

type listPatternsResponse struct {
	Patterns []patternEntryResponse `json:"patterns"`
}

// ServeHTTP routes /api/patterns and /api/patterns/{word}.
func (h *PatternHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	word := strings.TrimPrefix(r.URL.Path, "/api/patterns")
	word = strings.TrimPrefix(word, "/")

	if word == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, word)
	case http.MethodDelete:
		h.delete(w, r, word)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/patterns, in store order.
func (h *PatternHandler) list(w http.ResponseWriter, r *http.Request) {
	entries := h.patterns.Entries()

	response := listPatternsResponse{
		Patterns: make([]patternEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		response.Patterns = append(response.Patterns, patternEntryResponse{
			Word:     e.Word,
			Samples:  len(e.Patterns),
			Patterns: e.Patterns,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/patterns/{word}. A vocabulary word without
// samples returns an empty list.
func (h *PatternHandler) get(w http.ResponseWriter, r *http.Request, word string) {
	if !h.patterns.Vocabulary().Contains(word) {
		writeError(w, http.StatusNotFound, "Word not in vocabulary")
		return
	}

	response := patternEntryResponse{Word: word, Patterns: []store.Pattern{}}
	for _, e := range h.patterns.Entries() {
		if e.Word == word {
			response.Patterns = e.Patterns
			response.Samples = len(e.Patterns)
			break
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/patterns/{word}, dropping all its samples.
func (h *PatternHandler) delete(w http.ResponseWriter, r *http.Request, word string) {
	if !h.patterns.Remove(word) {
		writeError(w, http.StatusNotFound, "No patterns for word")
		return
	}

	if err := h.patterns.Save(); err != nil {
		h.logger.Error().Err(err).Str("word", word).Msg("failed to save patterns")
		writeError(w, http.StatusInternalServerError, "Failed to save patterns")
		return
	}

	if h.onRemove != nil {
		h.onRemove(word)
	}
	w.WriteHeader(http.StatusNoContent)
}
