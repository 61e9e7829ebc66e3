package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/game/battle"
	"github.com/cory-johannsen/quizbattle/internal/storage/postgres"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 16

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

// ErrorBody is the JSON body of every non-2xx response. State carries the
// battle as it stands after the rejected request, when there is one.
type ErrorBody struct {
	Error string           `json:"error"`
	State *battle.Response `json:"state,omitempty"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a single JSON object from the request body into v,
// rejecting unknown fields and trailing data.
func decode(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decoding body: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, battle.ErrInvalidDifficulty),
		errors.Is(err, battle.ErrInvalidAction),
		errors.Is(err, battle.ErrInvalidCharacter),
		errors.Is(err, battle.ErrUnknownSkill):
		return http.StatusBadRequest
	case errors.Is(err, battle.ErrNotFound),
		errors.Is(err, battle.ErrInvalidMonster),
		errors.Is(err, postgres.ErrCharacterNotFound),
		errors.Is(err, postgres.ErrBattleNotFound):
		return http.StatusNotFound
	case errors.Is(err, battle.ErrInvalidState),
		errors.Is(err, battle.ErrStaleQuestion),
		errors.Is(err, battle.ErrCharacterInBattle),
		errors.Is(err, postgres.ErrCharacterNameTaken):
		return http.StatusConflict
	case errors.Is(err, battle.ErrInsufficientEnergy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, battle.ErrBattleBusy):
		return http.StatusLocked
	case errors.Is(err, battle.ErrNoQuestionAvailable),
		errors.Is(err, battle.ErrNotSaved):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. state may be nil.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, state *battle.Response) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	JSON(w, status, ErrorBody{Error: err.Error(), State: state})
}
