package trade

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// compensations records the undo step of every ledger mutation made while
// posting an order, so a failure part way through can put the ledger back.
type compensations struct {
	steps  []compensation
	logger *zap.Logger
}

func newCompensations(logger *zap.Logger) *compensations {
	return &compensations{logger: logger}
}

func (c *compensations) push(name string, undo func(ctx context.Context) error) {
	c.steps = append(c.steps, compensation{name: name, undo: undo})
}

// run undoes every recorded step newest first. It keeps going after a failed
// step and ignores cancellation of ctx. cause is returned, joined with any
// undo failures.
func (c *compensations) run(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.undo(ctx); err != nil {
			c.logger.Error("compensation failed",
				zap.String("step", step.name),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	if len(c.steps) > 0 {
		c.logger.Warn("order posting compensated",
			zap.Int("steps", len(c.steps)),
			zap.Error(cause),
		)
	}
	c.steps = nil
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}
