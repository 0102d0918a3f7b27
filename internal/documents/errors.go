package documents

import (
	"errors"
	"fmt"

	"github.com/livedocs-app/livedocs/internal/access"
)

var (
	// ErrPermissionDenied indicates the caller failed authorization. Nothing
	// was mutated.
	ErrPermissionDenied = errors.New("documents: permission denied")
	// ErrNotFound indicates the document room does not exist.
	ErrNotFound = errors.New("documents: document not found")
	// ErrCreatorCannotBeRemoved guards the document owner's access.
	ErrCreatorCannotBeRemoved = errors.New("documents: document creator cannot be removed")
	// ErrInvalidRole indicates a role outside the grantable set.
	ErrInvalidRole = errors.New("documents: role must be editor or viewer")
)

// SyncError reports a policy-engine create or assign failure. The room ACL
// was not touched; the operation had no partial effect.
type SyncError struct {
	Principal string
	Role      access.Role
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("documents: policy sync for %s as %s: %v", e.Principal, e.Role, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ACLError reports a room ACL mutation failure after the policy engine was
// already updated. The two systems now disagree for this principal; a
// reconciliation record has been written and the operation is retryable.
type ACLError struct {
	RoomID    string
	Principal string
	Role      access.Role
	Err       error
}

func (e *ACLError) Error() string {
	return fmt.Sprintf("documents: room %s ACL update for %s as %s (policy engine already updated, retry to reconcile): %v",
		e.RoomID, e.Principal, e.Role, e.Err)
}

func (e *ACLError) Unwrap() error { return e.Err }
