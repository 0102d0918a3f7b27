// Package jobs defines the background tasks queued by the access-control
// service and the worker that processes them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/livedocs-app/livedocs/internal/collab"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyAccess delivers an in-app notification after an access
	// grant. Delivery is best effort: the grant itself never waits on it.
	TaskTypeNotifyAccess = "notify:document_access"
)

// NotifyAccessPayload carries everything the worker needs to fire the
// collaboration backend's inbox notification.
type NotifyAccessPayload struct {
	UserID       string            `json:"user_id"`
	Kind         string            `json:"kind"`
	SubjectID    string            `json:"subject_id"`
	RoomID       string            `json:"room_id"`
	ActivityData map[string]string `json:"activity_data"`
}

// NewNotifyAccessTask constructs an Asynq task.
func NewNotifyAccessTask(payload NotifyAccessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyAccess, data, asynq.MaxRetry(3)), nil
}

// InboxNotifier is the slice of the collaboration client the worker needs.
type InboxNotifier interface {
	TriggerInboxNotification(ctx context.Context, n collab.InboxNotification) error
}

// NewNotifyAccessHandler builds the Asynq handler for TaskTypeNotifyAccess.
func NewNotifyAccessHandler(notifier InboxNotifier, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifyAccessPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("notify access: bad payload", slog.Any("error", err))
			return asynq.SkipRetry
		}
		err := notifier.TriggerInboxNotification(ctx, collab.InboxNotification{
			UserID:       payload.UserID,
			Kind:         payload.Kind,
			SubjectID:    payload.SubjectID,
			ActivityData: payload.ActivityData,
			RoomID:       payload.RoomID,
		})
		if err != nil {
			logger.Warn("notify access: delivery failed",
				slog.String("user", payload.UserID),
				slog.String("room", payload.RoomID),
				slog.Any("error", err))
			return err
		}
		return nil
	}
}
