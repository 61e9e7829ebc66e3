package combat

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/quizbattle/internal/game/dice"
)

// Rules holds the tunable numbers of turn resolution.
type Rules struct {
	// DefendReductionPercent is the share of monster damage a defending character avoids.
	DefendReductionPercent int
	// DefendEnergyBonus is granted when a defend is backed by a correct answer.
	DefendEnergyBonus int
	// Variance is added to every attack before the minimum of 1 is applied.
	Variance dice.Expression
}

// DefaultRules returns the stock rule set: 50% defend reduction, 10 energy
// defend bonus and 1d3-2 attack variance.
func DefaultRules() Rules {
	return Rules{
		DefendReductionPercent: 50,
		DefendEnergyBonus:      10,
		Variance:               dice.MustParse("1d3-2"),
	}
}

// Validate checks that every rule is in range.
func (r Rules) Validate() error {
	var errs []error
	if r.DefendReductionPercent < 0 || r.DefendReductionPercent > 100 {
		errs = append(errs, fmt.Errorf("defend reduction percent must be in [0, 100], got %d", r.DefendReductionPercent))
	}
	if r.DefendEnergyBonus < 0 {
		errs = append(errs, fmt.Errorf("defend energy bonus must be >= 0, got %d", r.DefendEnergyBonus))
	}
	if r.Variance.Raw == "" {
		errs = append(errs, errors.New("damage variance expression must be set"))
	}
	return errors.Join(errs...)
}
