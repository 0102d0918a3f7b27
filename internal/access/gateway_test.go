package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/livedocs-app/livedocs/internal/policy"
)

type fakeChecker struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeChecker) Check(ctx context.Context, key, action string) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

type decisionCounter struct {
	outcomes []string
}

func (d *decisionCounter) AuthzDecision(outcome string) {
	d.outcomes = append(d.outcomes, outcome)
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name    string
		allowed bool
		err     error
		want    bool
		outcome string
	}{
		{name: "clean allow", allowed: true, want: true, outcome: "allow"},
		{name: "clean deny fails closed", allowed: false, want: false, outcome: "deny"},
		{name: "unknown principal fails closed", err: policy.ErrNotFound, want: false, outcome: "deny"},
		{name: "transient failure fails open", err: policy.ErrTransient, want: true, outcome: "fail_open"},
		{name: "unauthorized credentials fail open", err: policy.ErrUnauthorized, want: true, outcome: "fail_open"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			counter := &decisionCounter{}
			gw := NewGateway(&fakeChecker{allowed: tc.allowed, err: tc.err}, nil, counter)
			got := gw.Authorize(context.Background(), "alice@example.com", ActionEdit)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, []string{tc.outcome}, counter.outcomes)
		})
	}
}

func TestAuthorizeWithoutMetrics(t *testing.T) {
	gw := NewGateway(&fakeChecker{allowed: true}, nil, nil)
	assert.True(t, gw.Authorize(context.Background(), "alice@example.com", ActionView))
}
