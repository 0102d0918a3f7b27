package policy

import "errors"

// Sentinel errors for the policy engine client. Callers branch with errors.Is.
var (
	// ErrNotFound indicates the principal or assignment does not exist.
	ErrNotFound = errors.New("policy: not found")
	// ErrConflict indicates a duplicate create (principal already exists).
	ErrConflict = errors.New("policy: conflict")
	// ErrTransient indicates a timeout or server-side failure worth retrying.
	ErrTransient = errors.New("policy: transient failure")
	// ErrUnauthorized indicates rejected credentials. Not retried.
	ErrUnauthorized = errors.New("policy: unauthorized")
)
