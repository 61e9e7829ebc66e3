package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/dice"
	"github.com/cory-johannsen/quizbattle/internal/game/effect"
)

// FormulaEvaluator runs a skill formula against named integer inputs.
type FormulaEvaluator interface {
	Evaluate(formula string, vars map[string]int) (int, error)
}

// SkillLookup finds skills by id.
type SkillLookup interface {
	Get(id string) (*Skill, bool)
}

// Resolver applies answered actions, monster turns and effect ticks to
// combatants and describes each change as a battle log entry draft.
//
// Entries returned by the resolver carry no ID or Round; the caller stamps
// those when appending. Every hp or energy change is carried in an entry's
// HPDelta or EnergyDelta so the log can be replayed.
type Resolver struct {
	rules    Rules
	skills   SkillLookup
	formulas FormulaEvaluator
	roller   *dice.Roller
	logger   *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: skills and logger must be non-nil; formulas may be nil, in
// which case skill formulas are ignored.
func NewResolver(rules Rules, skills SkillLookup, formulas FormulaEvaluator, logger *zap.Logger) *Resolver {
	return &Resolver{
		rules:    rules,
		skills:   skills,
		formulas: formulas,
		roller:   dice.NewLoggedRoller(rules.Variance, logger),
		logger:   logger,
	}
}

// Rules returns the resolver's rule set.
func (r *Resolver) Rules() Rules { return r.rules }

// CheckAction reports whether ch may take act right now.
//
// Postcondition: returns ErrUnknownSkill or ErrInsufficientEnergy (wrapped)
// for an unusable skill; nil otherwise.
func (r *Resolver) CheckAction(ch *Character, act Action) error {
	if err := act.Validate(); err != nil {
		return err
	}
	if act.Kind != ActionUseSkill {
		return nil
	}
	_, err := r.skillFor(ch, act.SkillID)
	return err
}

func (r *Resolver) skillFor(ch *Character, id string) (*Skill, error) {
	skill, ok := r.skills.Get(id)
	if !ok {
		return nil, fmt.Errorf("skill %q: %w", id, ErrUnknownSkill)
	}
	if ch.Energy < skill.Cost {
		return nil, fmt.Errorf("skill %q costs %d, have %d: %w", id, skill.Cost, ch.Energy, ErrInsufficientEnergy)
	}
	return skill, nil
}

// AttackDamage returns the damage of a correct attack before the monster's hp
// floor: effective strength + 2 per level above 1 + variance, at least 1.
func AttackDamage(ch *Character, variance int) int {
	return max(1, ch.Effective().Strength+2*(ch.Level-1)+variance)
}

// ResolveCharacterTurn applies act to ch and m given whether the answer was correct.
//
// Precondition: CheckAction(ch, act) returned nil; src must be non-nil.
// Postcondition: ch.IsDefending is set iff act is a defend.
func (r *Resolver) ResolveCharacterTurn(ch *Character, m *Monster, act Action, correct bool, src dice.Source) ([]battlelog.Entry, error) {
	if err := r.CheckAction(ch, act); err != nil {
		return nil, err
	}
	switch act.Kind {
	case ActionAttack:
		return r.attack(ch, m, correct, src), nil
	case ActionDefend:
		return r.defend(ch, correct), nil
	default:
		skill, err := r.skillFor(ch, act.SkillID)
		if err != nil {
			return nil, err
		}
		return r.useSkill(ch, m, skill, correct), nil
	}
}

func (r *Resolver) attack(ch *Character, m *Monster, correct bool, src dice.Source) []battlelog.Entry {
	if !correct {
		return []battlelog.Entry{{
			Actor:   battlelog.ActorPlayer,
			Type:    battlelog.TypeInfo,
			Message: fmt.Sprintf("Wrong answer! Your attack misses the %s.", m.Name),
		}}
	}
	roll := r.roller.Roll(src)
	dmg := AttackDamage(ch, roll.Total())
	delta := m.ApplyDamage(dmg)
	return []battlelog.Entry{battlelog.Entry{
		Actor:   battlelog.ActorPlayer,
		Type:    battlelog.TypeDamage,
		Target:  battlelog.TargetMonster,
		Message: fmt.Sprintf("You hit the %s for %d damage.", m.Name, dmg),
		HPDelta: delta,
	}.WithAmount(dmg)}
}

func (r *Resolver) defend(ch *Character, correct bool) []battlelog.Entry {
	ch.IsDefending = true
	entries := []battlelog.Entry{{
		Actor:   battlelog.ActorPlayer,
		Type:    battlelog.TypeStatus,
		Target:  battlelog.TargetCharacter,
		Message: "You brace yourself for the next attack.",
	}}
	if !correct {
		return entries
	}
	gained := ch.AddEnergy(r.rules.DefendEnergyBonus)
	return append(entries, battlelog.Entry{
		Actor:       battlelog.ActorPlayer,
		Type:        battlelog.TypeStatus,
		Target:      battlelog.TargetCharacter,
		Message:     fmt.Sprintf("Correct! You recover %d energy.", gained),
		EnergyDelta: gained,
	}.WithAmount(gained))
}

func (r *Resolver) useSkill(ch *Character, m *Monster, skill *Skill, correct bool) []battlelog.Entry {
	spent := ch.AddEnergy(-skill.Cost)
	entries := []battlelog.Entry{battlelog.Entry{
		Actor:       battlelog.ActorPlayer,
		Type:        battlelog.TypeStatus,
		Target:      battlelog.TargetCharacter,
		Message:     fmt.Sprintf("You spend %d energy on %s.", skill.Cost, skill.Name),
		EnergyDelta: spent,
	}.WithAmount(skill.Cost)}
	if !correct {
		return append(entries, battlelog.Entry{
			Actor:   battlelog.ActorPlayer,
			Type:    battlelog.TypeInfo,
			Message: fmt.Sprintf("Wrong answer! %s fizzles.", skill.Name),
		})
	}

	switch skill.Kind {
	case SkillDamage:
		dmg := max(0, r.skillAmount(ch, m, skill))
		delta := m.ApplyDamage(dmg)
		entries = append(entries, battlelog.Entry{
			Actor:   battlelog.ActorPlayer,
			Type:    battlelog.TypeDamage,
			Target:  battlelog.TargetMonster,
			Message: fmt.Sprintf("%s hits the %s for %d damage.", skill.Name, m.Name, dmg),
			HPDelta: delta,
		}.WithAmount(dmg))
	case SkillHeal:
		amount := max(0, r.skillAmount(ch, m, skill))
		delta := ch.Heal(amount)
		entries = append(entries, battlelog.Entry{
			Actor:   battlelog.ActorPlayer,
			Type:    battlelog.TypeHeal,
			Target:  battlelog.TargetCharacter,
			Message: fmt.Sprintf("%s restores %d HP.", skill.Name, delta),
			HPDelta: delta,
		}.WithAmount(amount))
	}

	if skill.Effect != nil {
		inst := skill.Effect.Instance()
		ch.Effects = effect.Stack(ch.Effects, inst)
		entries = append(entries, battlelog.Entry{
			Actor:   battlelog.ActorPlayer,
			Type:    battlelog.TypeStatus,
			Target:  battlelog.TargetCharacter,
			Message: fmt.Sprintf("You are affected by %s for %d turns.", inst.Name, inst.Remaining),
		})
		entries = append(entries, r.clampToMax(ch)...)
	}
	return entries
}

// skillAmount computes a damage or heal skill's output from its formula when
// one is set, falling back to power + intelligence/2.
func (r *Resolver) skillAmount(ch *Character, m *Monster, skill *Skill) int {
	eff := ch.Effective()
	base := skill.Power + eff.Intelligence/2
	if skill.Formula == "" || r.formulas == nil {
		return base
	}
	v, err := r.formulas.Evaluate(skill.Formula, map[string]int{
		"power":        skill.Power,
		"strength":     eff.Strength,
		"intelligence": eff.Intelligence,
		"level":        ch.Level,
		"hp":           ch.HP,
		"max_hp":       eff.MaxHP,
		"energy":       ch.Energy,
		"monster_hp":   m.HP,
	})
	if err != nil {
		r.logger.Warn("skill formula failed, using default",
			zap.String("skill", skill.ID),
			zap.Error(err),
		)
		return base
	}
	return v
}

// clampToMax lowers hp to the effective max hp, which can shrink when a
// max_hp effect is applied.
func (r *Resolver) clampToMax(ch *Character) []battlelog.Entry {
	maxHP := ch.Effective().MaxHP
	if ch.HP <= maxHP {
		return nil
	}
	delta := maxHP - ch.HP
	ch.HP = maxHP
	return []battlelog.Entry{{
		Actor:   battlelog.ActorSystem,
		Type:    battlelog.TypeStatus,
		Target:  battlelog.TargetCharacter,
		Message: fmt.Sprintf("Your HP is capped at %d.", maxHP),
		HPDelta: delta,
	}}
}

// MonsterDamage returns the damage m deals to ch this turn.
func (r *Resolver) MonsterDamage(ch *Character, m *Monster) int {
	dmg := m.BaseDamage
	if ch.IsDefending {
		dmg = dmg * (100 - r.rules.DefendReductionPercent) / 100
	}
	return max(0, dmg)
}

// ResolveMonsterTurn makes m attack ch.
//
// Postcondition: ch.IsDefending is false.
func (r *Resolver) ResolveMonsterTurn(ch *Character, m *Monster) []battlelog.Entry {
	dmg := r.MonsterDamage(ch, m)
	msg := fmt.Sprintf("The %s attacks you for %d damage.", m.Name, dmg)
	if ch.IsDefending {
		msg = fmt.Sprintf("The %s attacks, but you block part of it and take %d damage.", m.Name, dmg)
	}
	delta := ch.ApplyDamage(dmg)
	ch.IsDefending = false
	return []battlelog.Entry{battlelog.Entry{
		Actor:   battlelog.ActorMonster,
		Type:    battlelog.TypeDamage,
		Target:  battlelog.TargetCharacter,
		Message: msg,
		HPDelta: delta,
	}.WithAmount(dmg)}
}

// TickEffects runs the round-boundary effect tick on ch.
//
// Postcondition: every surviving effect has one fewer remaining turn;
// 0 <= ch.HP <= ch.Effective().MaxHP.
func (r *Resolver) TickEffects(ch *Character) []battlelog.Entry {
	if len(ch.Effects) == 0 {
		return nil
	}
	res := effect.Tick(ch.Base(), ch.Effects)
	var entries []battlelog.Entry
	for _, t := range res.Ticks {
		e := battlelog.Entry{
			Actor:   battlelog.ActorSystem,
			Target:  battlelog.TargetCharacter,
			HPDelta: t.HPDelta,
		}
		if t.Mode == effect.ModeHeal {
			e.Type = battlelog.TypeHeal
			e.Message = fmt.Sprintf("%s restores %d HP.", t.Name, t.HPDelta)
			e = e.WithAmount(t.HPDelta)
		} else {
			e.Type = battlelog.TypeDamage
			e.Message = fmt.Sprintf("%s deals %d damage to you.", t.Name, -t.HPDelta)
			e = e.WithAmount(-t.HPDelta)
		}
		entries = append(entries, e)
	}
	for _, name := range res.Expired {
		entries = append(entries, battlelog.Entry{
			Actor:   battlelog.ActorSystem,
			Type:    battlelog.TypeStatus,
			Target:  battlelog.TargetCharacter,
			Message: fmt.Sprintf("%s has worn off.", name),
		})
	}
	if res.ClampDelta != 0 {
		entries = append(entries, battlelog.Entry{
			Actor:   battlelog.ActorSystem,
			Type:    battlelog.TypeStatus,
			Target:  battlelog.TargetCharacter,
			Message: fmt.Sprintf("Your HP is capped at %d.", res.Adjusted.MaxHP),
			HPDelta: res.ClampDelta,
		})
	}
	ch.HP = res.HP
	ch.Effects = res.Surviving
	r.logger.Debug("effects ticked",
		zap.Int("hp", ch.HP),
		zap.Strings("expired", res.Expired),
		zap.Int("remaining", len(ch.Effects)),
	)
	return entries
}
