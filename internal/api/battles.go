package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cory-johannsen/quizbattle/internal/game/battle"
	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
)

// StartBattleRequest is the body of POST /battles.
type StartBattleRequest struct {
	CharacterID int64  `json:"character_id"`
	MonsterID   string `json:"monster_id"`
	Difficulty  string `json:"difficulty"`
	ContentID   string `json:"content_id,omitempty"`
}

// ActionRequest is the body of POST /battles/{id}/actions.
type ActionRequest struct {
	Action  string `json:"action"`
	SkillID string `json:"skill_id,omitempty"`
}

// AnswerRequest is the body of POST /battles/{id}/answers.
type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// LogResponse is the body of GET /battles/{id}/log.
type LogResponse struct {
	BattleID string            `json:"battle_id"`
	Entries  []battlelog.Entry `json:"entries"`
}

// StartBattle handles POST /battles.
func (h *Handler) StartBattle(w http.ResponseWriter, r *http.Request) {
	var req StartBattleRequest
	if err := decode(r, w, &req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if req.CharacterID <= 0 {
		h.fail(w, r, fmt.Errorf("%w: character_id is required", errBadRequest), nil)
		return
	}
	c, err := h.characters.GetByID(r.Context(), req.CharacterID)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if h.battles != nil {
		ids, err := h.battles.ActiveBattleIDs(r.Context(), req.CharacterID)
		if err != nil {
			h.fail(w, r, err, nil)
			return
		}
		if len(ids) > 0 {
			h.fail(w, r, fmt.Errorf("character %d must resume or abandon battle %s: %w",
				req.CharacterID, ids[0], battle.ErrCharacterInBattle), nil)
			return
		}
	}
	resp, err := h.registry.Start(r.Context(), battle.StartRequest{
		CharacterID: req.CharacterID,
		Character:   c,
		MonsterID:   req.MonsterID,
		Difficulty:  req.Difficulty,
		ContentID:   req.ContentID,
	})
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	w.Header().Set("Location", "/battles/"+resp.BattleID)
	JSON(w, http.StatusCreated, resp)
}

// GetBattle handles GET /battles/{id}.
func (h *Handler) GetBattle(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	JSON(w, http.StatusOK, s.State())
}

// SubmitAction handles POST /battles/{id}/actions.
func (h *Handler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	var req ActionRequest
	if err := decode(r, w, &req); err != nil {
		state := s.State()
		h.fail(w, r, err, &state)
		return
	}
	kind, err := combat.ParseActionKind(req.Action)
	if err != nil {
		state := s.State()
		h.fail(w, r, fmt.Errorf("%w: %v", battle.ErrInvalidAction, err), &state)
		return
	}
	resp, err := s.SubmitAction(r.Context(), combat.Action{Kind: kind, SkillID: req.SkillID})
	if err != nil {
		h.fail(w, r, err, &resp)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// SubmitAnswer handles POST /battles/{id}/answers.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	var req AnswerRequest
	if err := decode(r, w, &req); err != nil {
		state := s.State()
		h.fail(w, r, err, &state)
		return
	}
	resp, err := s.SubmitAnswer(r.Context(), req.QuestionID, req.Answer)
	if err != nil {
		h.fail(w, r, err, &resp)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// GetLog handles GET /battles/{id}/log. The optional since query parameter
// returns only entries with a greater id.
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	entries := s.Log()
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := strconv.Atoi(raw)
		if err != nil || since < 0 {
			h.fail(w, r, fmt.Errorf("%w: since must be a non-negative integer", errBadRequest), nil)
			return
		}
		entries = s.LogSince(since)
	}
	JSON(w, http.StatusOK, LogResponse{BattleID: s.ID(), Entries: entries})
}

// ArchiveBattle handles DELETE /battles/{id}. Clients archive every battle
// once done with it: a finished battle leaves the registry only then, and an
// unfinished one is abandoned.
func (h *Handler) ArchiveBattle(w http.ResponseWriter, r *http.Request) {
	resp, err := h.registry.Archive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var state *battle.Response
		if resp.BattleID != "" {
			state = &resp
		}
		h.fail(w, r, err, state)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ResumeBattle handles POST /battles/{id}/resume, restoring a persisted
// battle into the registry.
func (h *Handler) ResumeBattle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s, err := h.registry.Get(id); err == nil {
		JSON(w, http.StatusOK, s.State())
		return
	}
	snap, err := h.battles.LoadBattleState(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	s, err := h.registry.Restore(snap)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	JSON(w, http.StatusOK, s.State())
}
