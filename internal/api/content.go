package api

import "net/http"

// MonsterSummary is the public form of a monster template.
type MonsterSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HP          int    `json:"hp"`
	BaseDamage  int    `json:"base_damage"`
	XPReward    int    `json:"xp_reward"`
	ImagePath   string `json:"image_path,omitempty"`
}

// SkillSummary is the public form of a skill.
type SkillSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	Kind        string `json:"kind"`
}

// ListMonsters handles GET /monsters.
func (h *Handler) ListMonsters(w http.ResponseWriter, r *http.Request) {
	out := make([]MonsterSummary, 0, len(h.content.Monsters))
	for _, m := range h.content.Monsters {
		out = append(out, MonsterSummary{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			HP:          m.HP,
			BaseDamage:  m.BaseDamage,
			XPReward:    m.XPReward,
			ImagePath:   m.ImagePath,
		})
	}
	JSON(w, http.StatusOK, out)
}

// ListSkills handles GET /skills.
func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	out := make([]SkillSummary, 0, len(h.content.Skills))
	for _, s := range h.content.Skills {
		out = append(out, SkillSummary{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Cost:        s.Cost,
			Kind:        string(s.Kind),
		})
	}
	JSON(w, http.StatusOK, out)
}
