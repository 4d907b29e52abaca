// Package approval holds the human sign-off step that stands between a
// validated plan and its execution.
//
// The Gate has no bypass: every plan, including an empty one, is shown to
// the Approver and nothing runs unless it answers yes. Tests substitute an
// ApproverFunc; the CLI uses Prompt, which reads one line from the terminal
// and accepts only the exact affirmation token.
package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/browserguard/pkg/logging"
	"github.com/entrhq/browserguard/pkg/plan"
	"github.com/google/uuid"
)

// ErrExecutionNotApproved is returned when the human did not approve the
// plan. It is an expected outcome, not a failure of the system.
var ErrExecutionNotApproved = errors.New("execution not approved")

// Approver shows a plan to a human and reports whether they approved it.
type Approver interface {
	RequestApproval(ctx context.Context, p plan.Plan) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, p plan.Plan) (bool, error)

// RequestApproval calls f.
func (f ApproverFunc) RequestApproval(ctx context.Context, p plan.Plan) (bool, error) {
	return f(ctx, p)
}

// Gate asks the approver about every plan it is given.
type Gate struct {
	approver Approver
	logger   *logging.Logger
}

// NewGate creates a gate. A nil logger discards output.
func NewGate(approver Approver, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{approver: approver, logger: logger}
}

// Require blocks until the approver answers. It returns nil only on an
// explicit approval; a refusal, a missing approver or an approver error all
// yield an error matching ErrExecutionNotApproved.
func (g *Gate) Require(ctx context.Context, p plan.Plan) error {
	approvalID := uuid.New().String()

	if g.approver == nil {
		g.logger.Errorf("approval %s: no approver configured", approvalID)
		return ErrExecutionNotApproved
	}

	g.logger.Infof("approval %s: requesting sign-off for %d step(s)", approvalID, len(p))
	approved, err := g.approver.RequestApproval(ctx, p)
	if err != nil {
		g.logger.Warnf("approval %s: request failed: %v", approvalID, err)
		return fmt.Errorf("%w: %w", ErrExecutionNotApproved, err)
	}
	if !approved {
		g.logger.Infof("approval %s: rejected", approvalID)
		return ErrExecutionNotApproved
	}

	g.logger.Infof("approval %s: approved", approvalID)
	return nil
}
