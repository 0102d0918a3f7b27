package documents

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/livedocs-app/livedocs/internal/access"
	"github.com/livedocs-app/livedocs/internal/platform/httpx"
)

// Handler exposes document access-control operations over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createDocument)
	r.Get("/", h.listDocuments)
	r.Get("/{roomID}", h.getDocument)
	r.Patch("/{roomID}", h.updateTitle)
	r.Delete("/{roomID}", h.deleteDocument)
	r.Get("/{roomID}/collaborators", h.listCollaborators)
	r.Post("/{roomID}/access", h.updateAccess)
	r.Delete("/{roomID}/access/{email}", h.removeCollaborator)
}

type createDocumentRequest struct {
	UserID string `json:"userId" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	doc, err := h.service.CreateDocument(r.Context(), Owner{ID: req.UserID, Email: req.Email})
	if err != nil {
		h.respondError(w, "create document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	principal := r.URL.Query().Get("userId")
	if principal == "" {
		principal = httpx.ActorFromContext(r.Context()).Email
	}
	if principal == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId required")
		return
	}
	docs, err := h.service.ListDocuments(r.Context(), principal)
	if err != nil {
		h.respondError(w, "list documents", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": docs})
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	actor := httpx.ActorFromContext(r.Context())
	doc, err := h.service.GetDocument(r.Context(), chi.URLParam(r, "roomID"), actor.Email)
	if err != nil {
		h.respondError(w, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type updateTitleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

func (h *Handler) updateTitle(w http.ResponseWriter, r *http.Request) {
	var req updateTitleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := httpx.ActorFromContext(r.Context())
	doc, err := h.service.UpdateTitle(r.Context(), chi.URLParam(r, "roomID"), req.Title, actor.Email)
	if err != nil {
		h.respondError(w, "update title", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDocument(r.Context(), chi.URLParam(r, "roomID")); err != nil {
		h.respondError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCollaborators(w http.ResponseWriter, r *http.Request) {
	actor := httpx.ActorFromContext(r.Context())
	users, err := h.service.Collaborators(r.Context(), chi.URLParam(r, "roomID"), actor.Email)
	if err != nil {
		h.respondError(w, "list collaborators", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": users})
}

type updateAccessRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=editor viewer"`
}

func (h *Handler) updateAccess(w http.ResponseWriter, r *http.Request) {
	var req updateAccessRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := httpx.ActorFromContext(r.Context())
	doc, err := h.service.UpdateDocumentAccess(r.Context(), UpdateAccessInput{
		RoomID: chi.URLParam(r, "roomID"),
		Email:  req.Email,
		Role:   access.Role(req.Role),
		Actor:  Actor{Email: actor.Email, Name: actor.Name, Avatar: actor.Avatar},
	})
	if err != nil {
		h.respondError(w, "update access", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	actor := httpx.ActorFromContext(r.Context())
	doc, err := h.service.RemoveCollaborator(r.Context(),
		chi.URLParam(r, "roomID"), chi.URLParam(r, "email"), actor.Email)
	if err != nil {
		h.respondError(w, "remove collaborator", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// respondError maps the domain error taxonomy onto problem responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var syncErr *SyncError
	var aclErr *ACLError
	switch {
	case errors.Is(err, ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Permission Denied", err.Error())
	case errors.Is(err, ErrCreatorCannotBeRemoved):
		httpx.Problem(w, http.StatusConflict, "Creator Access Protected", err.Error())
	case errors.Is(err, ErrInvalidRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &syncErr):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Policy Sync Failed", err.Error())
	case errors.As(err, &aclErr):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Room ACL Update Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
