package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/livedocs-app/livedocs/internal/access"
	"github.com/livedocs-app/livedocs/internal/collab"
	"github.com/livedocs-app/livedocs/internal/directory"
	"github.com/livedocs-app/livedocs/internal/policy"
	"github.com/livedocs-app/livedocs/internal/recon"
)

// AuthorizerPort gates operations on a permission decision.
type AuthorizerPort interface {
	Authorize(ctx context.Context, principal, action string) bool
}

// RoleSyncPort brings the policy engine to the desired role state.
type RoleSyncPort interface {
	EnsureUserAndRole(ctx context.Context, user policy.User, role access.Role) error
}

// RoleRevokerPort removes role assignments from the policy engine.
type RoleRevokerPort interface {
	UnassignRole(ctx context.Context, key, role string) error
}

// RoomsPort is the collaboration backend's room API.
type RoomsPort interface {
	CreateRoom(ctx context.Context, params collab.CreateRoomParams) (*collab.Room, error)
	GetRoom(ctx context.Context, roomID string) (*collab.Room, error)
	GetRooms(ctx context.Context, userID string) ([]collab.Room, error)
	UpdateRoom(ctx context.Context, roomID string, params collab.UpdateRoomParams) (*collab.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
}

// DispatcherPort fires best-effort notifications after successful grants.
type DispatcherPort interface {
	DocumentAccessGranted(ctx context.Context, n AccessNotification) error
}

// ReconPort persists records for half-applied access changes.
type ReconPort interface {
	Record(ctx context.Context, rec recon.Record) error
}

// DirectoryPort decorates principals with display metadata.
type DirectoryPort interface {
	GetUsers(ctx context.Context, emails []string) ([]directory.User, error)
}

// DriftRecorder counts written reconciliation records.
type DriftRecorder interface {
	ReconRecorded()
}

// ServiceConfig collects dependencies for NewService.
type ServiceConfig struct {
	Authorizer AuthorizerPort
	RoleSync   RoleSyncPort
	Revoker    RoleRevokerPort
	Rooms      RoomsPort
	Dispatcher DispatcherPort
	Recon      ReconPort
	Directory  DirectoryPort
	Metrics    DriftRecorder
	Logger     *slog.Logger
}

// Service is the orchestration entry point for document access control.
//
// Mutations always hit the policy engine before the room ACL so the ACL never
// grants a capability the engine has not recorded. The reverse drift (engine
// updated, ACL update failed) is possible and is surfaced as a retryable
// ACLError plus a reconciliation record; it is never silently swallowed.
type Service struct {
	authz      AuthorizerPort
	sync       RoleSyncPort
	revoker    RoleRevokerPort
	rooms      RoomsPort
	dispatcher DispatcherPort
	recon      ReconPort
	directory  DirectoryPort
	metrics    DriftRecorder
	logger     *slog.Logger
}

// NewService builds a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		authz:      cfg.Authorizer,
		sync:       cfg.RoleSync,
		revoker:    cfg.Revoker,
		rooms:      cfg.Rooms,
		dispatcher: cfg.Dispatcher,
		recon:      cfg.Recon,
		directory:  cfg.Directory,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// CreateDocument creates a room owned by the given principal, with write
// access for the owner and no default access for anyone else.
func (s *Service) CreateDocument(ctx context.Context, owner Owner) (*Document, error) {
	roomID := uuid.NewString()
	room, err := s.rooms.CreateRoom(ctx, collab.CreateRoomParams{
		ID: roomID,
		Metadata: map[string]string{
			metaCreatorID:    owner.ID,
			metaCreatorEmail: owner.Email,
			metaTitle:        DefaultTitle,
		},
		UsersAccesses: map[string][]string{
			owner.Email: access.RoleEditor.CapabilityTokens(),
		},
		DefaultAccesses: []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return documentFromRoom(room), nil
}

// GetDocument returns the document if the principal passes the permission
// check AND holds a room access entry. The permission check runs first; a
// denied principal causes no backend call at all, so room existence is not
// leaked to outsiders.
func (s *Service) GetDocument(ctx context.Context, roomID, principal string) (*Document, error) {
	if !s.authz.Authorize(ctx, principal, access.ActionView) {
		return nil, ErrPermissionDenied
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, mapRoomErr(err)
	}
	if _, ok := room.UsersAccesses[principal]; !ok {
		return nil, ErrPermissionDenied
	}
	return documentFromRoom(room), nil
}

// ListDocuments returns the documents the principal is a member of.
func (s *Service) ListDocuments(ctx context.Context, principal string) ([]Document, error) {
	rooms, err := s.rooms.GetRooms(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]Document, 0, len(rooms))
	for i := range rooms {
		docs = append(docs, *documentFromRoom(&rooms[i]))
	}
	return docs, nil
}

// UpdateTitle renames the document. Requires edit permission.
func (s *Service) UpdateTitle(ctx context.Context, roomID, title, actor string) (*Document, error) {
	if !s.authz.Authorize(ctx, actor, access.ActionEdit) {
		return nil, ErrPermissionDenied
	}
	room, err := s.rooms.UpdateRoom(ctx, roomID, collab.UpdateRoomParams{
		Metadata: map[string]string{metaTitle: title},
	})
	if err != nil {
		return nil, mapRoomErr(err)
	}
	return documentFromRoom(room), nil
}

// UpdateAccessInput describes an access grant or change.
type UpdateAccessInput struct {
	RoomID string
	Email  string
	Role   access.Role
	Actor  Actor
}

// UpdateDocumentAccess grants the role to the target principal.
//
// Order matters: (1) authorize the actor, (2) sync the policy engine,
// (3) mirror the grant into the room ACL, (4) notify. A failure at step 2
// aborts with no partial effect. A failure at step 3 leaves the engine ahead
// of the ACL; that drift is recorded for reconciliation and surfaced as
// retryable. Step 4 never affects the result.
func (s *Service) UpdateDocumentAccess(ctx context.Context, in UpdateAccessInput) (*Document, error) {
	if !in.Role.Grantable() {
		return nil, ErrInvalidRole
	}
	if !s.authz.Authorize(ctx, in.Actor.Email, access.ActionEdit) {
		return nil, ErrPermissionDenied
	}

	user := policy.User{Key: in.Email, Email: in.Email}
	if err := s.sync.EnsureUserAndRole(ctx, user, in.Role); err != nil {
		return nil, &SyncError{Principal: in.Email, Role: in.Role, Err: err}
	}

	room, err := s.rooms.UpdateRoom(ctx, in.RoomID, collab.UpdateRoomParams{
		UsersAccesses: map[string][]string{in.Email: in.Role.CapabilityTokens()},
	})
	if err != nil {
		s.recordDrift(ctx, recon.Record{
			Principal: in.Email,
			RoomID:    in.RoomID,
			Role:      string(in.Role),
			Stage:     recon.StageACLGrant,
			Error:     err.Error(),
		})
		return nil, &ACLError{RoomID: in.RoomID, Principal: in.Email, Role: in.Role, Err: err}
	}

	s.notifyGranted(ctx, in, room)
	return documentFromRoom(room), nil
}

// RemoveCollaborator revokes the target principal's access. The document
// creator can never be removed. The role to unassign is inferred from the
// capability tokens the principal currently holds; a not-found from the
// unassign means the engine already agrees and is not an error.
func (s *Service) RemoveCollaborator(ctx context.Context, roomID, email, actor string) (*Document, error) {
	if !s.authz.Authorize(ctx, actor, access.ActionEdit) {
		return nil, ErrPermissionDenied
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, mapRoomErr(err)
	}
	if room.Metadata[metaCreatorEmail] == email {
		return nil, ErrCreatorCannotBeRemoved
	}
	tokens, member := room.UsersAccesses[email]
	if !member {
		return documentFromRoom(room), nil
	}

	role := access.RoleForTokens(tokens)
	if err := s.revoker.UnassignRole(ctx, email, string(role)); err != nil && !errors.Is(err, policy.ErrNotFound) {
		return nil, &SyncError{Principal: email, Role: role, Err: err}
	}

	updated, err := s.rooms.UpdateRoom(ctx, roomID, collab.UpdateRoomParams{
		UsersAccesses: map[string][]string{email: nil},
	})
	if err != nil {
		s.recordDrift(ctx, recon.Record{
			Principal: email,
			RoomID:    roomID,
			Role:      string(role),
			Stage:     recon.StageACLRevoke,
			Error:     err.Error(),
		})
		return nil, &ACLError{RoomID: roomID, Principal: email, Role: role, Err: err}
	}
	return documentFromRoom(updated), nil
}

// DeleteDocument removes the room and all role assignments held through it.
// Unassignment is best effort per member; one failing member never blocks the
// room deletion.
func (s *Service) DeleteDocument(ctx context.Context, roomID string) error {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return mapRoomErr(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for email, tokens := range room.UsersAccesses {
		role := access.RoleForTokens(tokens)
		g.Go(func() error {
			err := s.revoker.UnassignRole(gctx, email, string(role))
			if err != nil && !errors.Is(err, policy.ErrNotFound) {
				s.logger.Warn("unassign on document delete failed",
					slog.String("room", roomID),
					slog.String("principal", email),
					slog.String("role", string(role)),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		return mapRoomErr(err)
	}
	return nil
}

// Collaborators returns the room's members decorated with directory metadata,
// creator first, the rest in stable order.
func (s *Service) Collaborators(ctx context.Context, roomID, principal string) ([]directory.User, error) {
	doc, err := s.GetDocument(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(doc.Accesses))
	for email := range doc.Accesses {
		if email == doc.CreatorEmail {
			continue
		}
		emails = append(emails, email)
	}
	sort.Strings(emails)
	if _, ok := doc.Accesses[doc.CreatorEmail]; ok {
		emails = append([]string{doc.CreatorEmail}, emails...)
	}
	users, err := s.directory.GetUsers(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("decorate collaborators: %w", err)
	}
	return users, nil
}

// VerifyPermission exposes the raw permission decision, fail-open semantics
// included.
func (s *Service) VerifyPermission(ctx context.Context, principal, action string) bool {
	return s.authz.Authorize(ctx, principal, action)
}

func (s *Service) notifyGranted(ctx context.Context, in UpdateAccessInput, room *collab.Room) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.DocumentAccessGranted(ctx, AccessNotification{
		RoomID:       in.RoomID,
		Email:        in.Email,
		Role:         in.Role,
		Title:        room.Metadata[metaTitle],
		UpdatedBy:    in.Actor.Name,
		UpdaterEmail: in.Actor.Email,
		Avatar:       in.Actor.Avatar,
	})
	if err != nil {
		s.logger.Warn("access notification dispatch failed",
			slog.String("room", in.RoomID),
			slog.String("principal", in.Email),
			slog.Any("error", err))
	}
}

func (s *Service) recordDrift(ctx context.Context, rec recon.Record) {
	s.logger.Error("room ACL out of sync with policy engine",
		slog.String("room", rec.RoomID),
		slog.String("principal", rec.Principal),
		slog.String("role", rec.Role),
		slog.String("stage", rec.Stage),
		slog.String("cause", rec.Error))
	if s.recon == nil {
		return
	}
	if err := s.recon.Record(ctx, rec); err != nil {
		s.logger.Error("write reconciliation record", slog.Any("error", err))
		return
	}
	if s.metrics != nil {
		s.metrics.ReconRecorded()
	}
}

func mapRoomErr(err error) error {
	if errors.Is(err, collab.ErrRoomNotFound) {
		return ErrNotFound
	}
	return err
}
