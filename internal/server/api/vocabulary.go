package api

import (
	"net/http"

	"github.com/ayusman/lipread/internal/app"
)

// VocabularyHandler lists the vocabulary with training progress.
type VocabularyHandler struct {
	trainer Trainer
}

// NewVocabularyHandler creates a new VocabularyHandler.
func NewVocabularyHandler(t Trainer) *VocabularyHandler {
	return &VocabularyHandler{trainer: t}
}

type wordResponse struct {
	app.WordProgress
	Complete bool `json:"complete"`
}

type vocabularyResponse struct {
	Words []wordResponse `json:"words"`
}

// ServeHTTP handles GET /api/vocabulary.
func (h *VocabularyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	progress := h.trainer.Progress()
	response := vocabularyResponse{Words: make([]wordResponse, 0, len(progress))}
	for _, p := range progress {
		response.Words = append(response.Words, wordResponse{WordProgress: p, Complete: p.Complete()})
	}

	writeJSON(w, http.StatusOK, response)
}
