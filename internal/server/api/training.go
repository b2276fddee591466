package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/lipread/internal/app"
)

// Trainer arms and reports training. *app.App implements it.
type Trainer interface {
	ArmTraining(word string) error
	CancelTraining() bool
	Training() (string, bool)
	Progress() []app.WordProgress
}

// TrainingHandler handles /api/training.
type TrainingHandler struct {
	trainer Trainer
}

// NewTrainingHandler creates a new TrainingHandler.
func NewTrainingHandler(t Trainer) *TrainingHandler {
	return &TrainingHandler{trainer: t}
}

type armRequest struct {
	Word string `json:"word"`
}

type trainingResponse struct {
	Word     string             `json:"word,omitempty"`
	Armed    bool               `json:"armed"`
	Progress []app.WordProgress `json:"progress,omitempty"`
}

// ServeHTTP shows (GET), arms (POST) or cancels (DELETE) training.
func (h *TrainingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		word, armed := h.trainer.Training()
		writeJSON(w, http.StatusOK, trainingResponse{
			Word:     word,
			Armed:    armed,
			Progress: h.trainer.Progress(),
		})
	case http.MethodPost:
		h.arm(w, r)
	case http.MethodDelete:
		if !h.trainer.CancelTraining() {
			writeError(w, http.StatusNotFound, "Training not armed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// arm handles POST /api/training with {"word": "..."}.
func (h *TrainingHandler) arm(w http.ResponseWriter, r *http.Request) {
	var req armRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}

	if err := h.trainer.ArmTraining(req.Word); err != nil {
		if errors.Is(err, app.ErrUnknownWord) {
			writeError(w, http.StatusBadRequest, "Word not in vocabulary")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to arm training")
		return
	}

	writeJSON(w, http.StatusAccepted, trainingResponse{Word: req.Word, Armed: true})
}
