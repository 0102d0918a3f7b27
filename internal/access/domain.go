// Package access keeps the policy engine's role assignments and the
// collaboration backend's room ACL loosely synchronized, and answers
// permission questions for document operations.
package access

// Role is the capability tier a principal holds on documents.
type Role string

const (
	// RoleEditor may read and write document content.
	RoleEditor Role = "editor"
	// RoleViewer may read document content only.
	RoleViewer Role = "viewer"
	// RoleCreator is held by document owners. Never revocable.
	RoleCreator Role = "creator"
)

// Actions evaluated against the policy engine.
const (
	ActionView = "view"
	ActionEdit = "edit"
)

// Grantable reports whether the role may be handed out through access sharing.
func (r Role) Grantable() bool {
	return r == RoleEditor || r == RoleViewer
}

// CapabilityTokens maps the role onto the capability tokens the collaboration
// backend enforces per room. Editors hold the write token, which implies read
// on the backend side; viewers hold read plus presence.
func (r Role) CapabilityTokens() []string {
	if r == RoleViewer {
		return []string{"room:read", "room:presence:write"}
	}
	return []string{"room:write"}
}

// RoleForTokens infers the role a principal holds from its room tokens.
// The write token marks an editor; anything else is a viewer.
func RoleForTokens(tokens []string) Role {
	for _, t := range tokens {
		if t == "room:write" {
			return RoleEditor
		}
	}
	return RoleViewer
}
