package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cory-johannsen/quizbattle/internal/game/character"
)

// CreateCharacterRequest is the body of POST /characters.
type CreateCharacterRequest struct {
	Name string `json:"name"`
}

// CharacterResponse is the public form of a persistent character.
type CharacterResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Level        int       `json:"level"`
	Experience   int       `json:"experience"`
	HP           int       `json:"hp"`
	MaxHP        int       `json:"max_hp"`
	Energy       int       `json:"energy"`
	MaxEnergy    int       `json:"max_energy"`
	Strength     int       `json:"strength"`
	Intelligence int       `json:"intelligence"`
	CreatedAt    time.Time `json:"created_at"`
}

func characterResponse(c *character.Character) CharacterResponse {
	return CharacterResponse{
		ID:           c.ID,
		Name:         c.Name,
		Level:        c.Level,
		Experience:   c.Experience,
		HP:           c.CurrentHP,
		MaxHP:        c.MaxHP,
		Energy:       c.Energy,
		MaxEnergy:    c.MaxEnergy,
		Strength:     c.Strength,
		Intelligence: c.Intelligence,
		CreatedAt:    c.CreatedAt,
	}
}

// CreateCharacter handles POST /characters.
func (h *Handler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req CreateCharacterRequest
	if err := decode(r, w, &req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 64 {
		h.fail(w, r, fmt.Errorf("%w: name must be 1-64 characters", errBadRequest), nil)
		return
	}
	c, err := character.Build(name)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	created, err := h.characters.Create(r.Context(), c)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/characters/%d", created.ID))
	JSON(w, http.StatusCreated, characterResponse(created))
}

// CharacterBattlesResponse is the body of GET /characters/{id}/battles.
type CharacterBattlesResponse struct {
	CharacterID int64    `json:"character_id"`
	BattleIDs   []string `json:"battle_ids"`
}

func characterID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: character id must be a positive integer", errBadRequest)
	}
	return id, nil
}

// GetCharacter handles GET /characters/{id}.
func (h *Handler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	c, err := h.characters.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	JSON(w, http.StatusOK, characterResponse(c))
}

// ListCharacterBattles handles GET /characters/{id}/battles, listing the
// character's unfinished persisted battles, most recent first. Each can be
// resumed with POST /battles/{id}/resume.
func (h *Handler) ListCharacterBattles(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if _, err := h.characters.GetByID(r.Context(), id); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	ids, err := h.battles.ActiveBattleIDs(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	JSON(w, http.StatusOK, CharacterBattlesResponse{CharacterID: id, BattleIDs: ids})
}
