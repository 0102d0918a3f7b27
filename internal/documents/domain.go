// Package documents orchestrates document rooms across the policy engine and
// the collaboration backend: it authorizes callers, sequences role sync before
// ACL mutation, and keeps the two stores convergent after every operation.
package documents

import (
	"time"

	"github.com/livedocs-app/livedocs/internal/collab"
)

// Metadata keys stored on every room.
const (
	metaTitle        = "title"
	metaCreatorID    = "creatorId"
	metaCreatorEmail = "email"
)

// DefaultTitle is assigned to freshly created documents.
const DefaultTitle = "Untitled"

// NotificationKindDocumentAccess is the inbox notification kind fired after a
// successful access grant.
const NotificationKindDocumentAccess = "$documentAccess"

// Document is the service's view of a room.
type Document struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	CreatorID    string              `json:"creatorId"`
	CreatorEmail string              `json:"creatorEmail"`
	Accesses     map[string][]string `json:"usersAccesses"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// Owner identifies the principal creating a document.
type Owner struct {
	ID    string
	Email string
}

// Actor identifies the principal performing an access mutation, with the
// display metadata echoed into notifications.
type Actor struct {
	Email  string
	Name   string
	Avatar string
}

func documentFromRoom(room *collab.Room) *Document {
	return &Document{
		ID:           room.ID,
		Title:        room.Metadata[metaTitle],
		CreatorID:    room.Metadata[metaCreatorID],
		CreatorEmail: room.Metadata[metaCreatorEmail],
		Accesses:     room.UsersAccesses,
		CreatedAt:    room.CreatedAt,
	}
}
