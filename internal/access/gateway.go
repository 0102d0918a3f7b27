package access

import (
	"context"
	"errors"
	"log/slog"

	"github.com/livedocs-app/livedocs/internal/policy"
)

// CheckPort is the permission-check slice of the policy client.
type CheckPort interface {
	Check(ctx context.Context, key, action string) (bool, error)
}

// DecisionRecorder counts authorization outcomes for observability.
type DecisionRecorder interface {
	AuthzDecision(outcome string)
}

// Gateway answers "may principal P perform action A on documents".
//
// The failure policy is asymmetric on purpose: an unreachable or misbehaving
// policy engine fails OPEN, because an engine outage must not lock users out
// of their own documents, while an explicit negative answer or an unknown
// principal fails CLOSED, because absence of a grant is a legitimate deny.
type Gateway struct {
	policy  CheckPort
	logger  *slog.Logger
	metrics DecisionRecorder
}

// NewGateway builds a Gateway. metrics may be nil.
func NewGateway(checker CheckPort, logger *slog.Logger, metrics DecisionRecorder) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{policy: checker, logger: logger, metrics: metrics}
}

// Authorize evaluates the permission. It never returns an error: infrastructure
// failures degrade to an allow with a logged warning.
func (g *Gateway) Authorize(ctx context.Context, principal, action string) bool {
	allowed, err := g.policy.Check(ctx, principal, action)
	if err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			g.record("deny")
			return false
		}
		g.logger.Warn("permission check unavailable, failing open",
			slog.String("principal", principal),
			slog.String("action", action),
			slog.Any("error", err))
		g.record("fail_open")
		return true
	}
	if allowed {
		g.record("allow")
	} else {
		g.record("deny")
	}
	return allowed
}

func (g *Gateway) record(outcome string) {
	if g.metrics != nil {
		g.metrics.AuthzDecision(outcome)
	}
}
