// Package api exposes battles over HTTP/JSON.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/game/battle"
	"github.com/cory-johannsen/quizbattle/internal/game/character"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/monster"
	"github.com/cory-johannsen/quizbattle/internal/observability"
)

// CharacterStore loads and creates persistent characters.
type CharacterStore interface {
	GetByID(ctx context.Context, id int64) (*character.Character, error)
	Create(ctx context.Context, c *character.Character) (*character.Character, error)
}

// BattleLoader reads persisted battle snapshots for resumption and lists a
// character's unfinished battles.
type BattleLoader interface {
	LoadBattleState(ctx context.Context, battleID string) (battle.Snapshot, error)
	ActiveBattleIDs(ctx context.Context, characterID int64) ([]string, error)
}

// Content lists the static game content offered to clients.
type Content struct {
	Monsters []*monster.Template
	Skills   []*combat.Skill
}

// Handler serves the battle API.
type Handler struct {
	registry   *battle.Registry
	characters CharacterStore
	battles    BattleLoader
	content    Content
	logger     *zap.Logger
}

// NewHandler creates a Handler.
//
// Precondition: registry, characters and logger must be non-nil. battles may
// be nil, in which case resuming and listing persisted battles is unavailable.
func NewHandler(registry *battle.Registry, characters CharacterStore, battles BattleLoader, content Content, logger *zap.Logger) *Handler {
	return &Handler{
		registry:   registry,
		characters: characters,
		battles:    battles,
		content:    content,
		logger:     logger,
	}
}

// RegisterRoutes mounts the API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/characters", func(r chi.Router) {
		r.Post("/", h.CreateCharacter)
		r.Get("/{id}", h.GetCharacter)
		if h.battles != nil {
			r.Get("/{id}/battles", h.ListCharacterBattles)
		}
	})
	r.Get("/monsters", h.ListMonsters)
	r.Get("/skills", h.ListSkills)
	r.Route("/battles", func(r chi.Router) {
		r.Post("/", h.StartBattle)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetBattle)
			r.Delete("/", h.ArchiveBattle)
			r.Post("/actions", h.SubmitAction)
			r.Post("/answers", h.SubmitAnswer)
			r.Get("/log", h.GetLog)
			if h.battles != nil {
				r.Post("/resume", h.ResumeBattle)
			}
		})
	})
}

// NewRouter builds the full middleware stack around the API routes.
func NewRouter(h *Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(middleware.AllowContentType("application/json"))
	h.RegisterRoutes(r)
	return r
}
