package dice

import "go.uber.org/zap"

// Roll evaluates expr using src.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: len(result.Dice) == expr.Count; expr.Min() <= Total() <= expr.Max().
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}

// Roller rolls one expression and logs every roll at debug level.
type Roller struct {
	expr   Expression
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller for expr.
//
// Precondition: logger must be non-nil.
func NewLoggedRoller(expr Expression, logger *zap.Logger) *Roller {
	return &Roller{expr: expr, logger: logger}
}

// Expression returns the expression this Roller evaluates.
func (r *Roller) Expression() Expression { return r.expr }

// Roll rolls the configured expression against src.
func (r *Roller) Roll(src Source) RollResult {
	result := Roll(r.expr, src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}
