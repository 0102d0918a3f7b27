package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/livedocs-app/livedocs/internal/policy"
)

// DefaultSettleDelay absorbs the policy engine's internal propagation lag
// between user creation and the new role becoming visible to checks.
const DefaultSettleDelay = 3 * time.Second

// SyncPolicyPort is the slice of the policy client the orchestrator mutates
// through.
type SyncPolicyPort interface {
	CreateUser(ctx context.Context, user policy.User, initialRole string) error
	AssignRole(ctx context.Context, key, role string) error
}

// OrchestratorConfig collects dependencies for NewOrchestrator.
type OrchestratorConfig struct {
	Policy      SyncPolicyPort
	Cache       *ExistenceCache
	Logger      *slog.Logger
	SettleDelay time.Duration

	// Sleep overrides the settle wait, for tests. Defaults to a
	// context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Orchestrator sequences principal creation and role assignment against the
// policy engine so that a role is never assigned to a principal that does not
// exist yet.
type Orchestrator struct {
	policy SyncPolicyPort
	cache  *ExistenceCache
	logger *slog.Logger
	settle time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator builds an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		policy: cfg.Policy,
		cache:  cfg.Cache,
		logger: logger,
		settle: settle,
		sleep:  sleep,
	}
}

// EnsureUserAndRole makes sure the principal exists in the policy engine and
// holds the role. Unknown principals are created with the role attached in a
// single call, followed by a bounded settle wait so an immediately following
// permission check does not observe the not-yet-propagated assignment. A
// Conflict from the create is a benign concurrent-creation race and falls
// through to a plain role assignment.
func (o *Orchestrator) EnsureUserAndRole(ctx context.Context, user policy.User, role Role) error {
	exists, err := o.cache.EnsureKnown(ctx, user.Key)
	if err != nil {
		return fmt.Errorf("probe principal %s: %w", user.Key, err)
	}
	if exists {
		if err := o.policy.AssignRole(ctx, user.Key, string(role)); err != nil {
			return fmt.Errorf("assign %s to %s: %w", role, user.Key, err)
		}
		return nil
	}

	if err := o.policy.CreateUser(ctx, user, string(role)); err != nil {
		if !errors.Is(err, policy.ErrConflict) {
			return fmt.Errorf("create principal %s: %w", user.Key, err)
		}
		// Another caller created the principal first. The create carried no
		// effect here, so the role still has to be assigned.
		o.logger.Debug("principal already created concurrently", slog.String("principal", user.Key))
		o.cache.Set(user.Key, true)
		if err := o.policy.AssignRole(ctx, user.Key, string(role)); err != nil {
			return fmt.Errorf("assign %s to %s after create conflict: %w", role, user.Key, err)
		}
		return nil
	}

	o.cache.Set(user.Key, true)

	// The engine needs a moment before the fresh assignment is visible to
	// permission checks. Blocking here trades request latency for not
	// denying the principal right after granting them access.
	if err := o.sleep(ctx, o.settle); err != nil {
		return fmt.Errorf("settle wait after creating %s: %w", user.Key, err)
	}
	return nil
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
