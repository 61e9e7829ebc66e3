package combat

import "fmt"

// ActionKind identifies what the character intends to do on its turn.
type ActionKind string

const (
	ActionAttack   ActionKind = "attack"
	ActionDefend   ActionKind = "defend"
	ActionUseSkill ActionKind = "use_skill"
)

// ParseActionKind validates s as an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionAttack, ActionDefend, ActionUseSkill:
		return k, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Action is the character's intent for one turn.
// SkillID is set only for ActionUseSkill.
type Action struct {
	Kind    ActionKind `json:"kind"`
	SkillID string     `json:"skill_id,omitempty"`
}

// Validate checks the action's shape; it does not look the skill up.
//
// Postcondition: Returns nil iff Kind is known and SkillID is non-empty exactly
// when Kind is ActionUseSkill.
func (a Action) Validate() error {
	if _, err := ParseActionKind(string(a.Kind)); err != nil {
		return err
	}
	if a.Kind == ActionUseSkill && a.SkillID == "" {
		return fmt.Errorf("use_skill requires a skill id")
	}
	if a.Kind != ActionUseSkill && a.SkillID != "" {
		return fmt.Errorf("%s does not take a skill id", a.Kind)
	}
	return nil
}
