package documents

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/livedocs-app/livedocs/internal/access"
	"github.com/livedocs-app/livedocs/jobs"
)

// AccessNotification describes a grant worth telling the target about.
type AccessNotification struct {
	RoomID       string
	Email        string
	Role         access.Role
	Title        string
	UpdatedBy    string
	UpdaterEmail string
	Avatar       string
}

type accessEnqueuer interface {
	EnqueueNotifyAccess(ctx context.Context, payload jobs.NotifyAccessPayload) (*asynq.TaskInfo, error)
}

// QueueDispatcher hands notifications to the background queue. Delivery runs
// in the worker; enqueue failures are the caller's to log and ignore.
type QueueDispatcher struct {
	queue accessEnqueuer
}

// NewQueueDispatcher builds a dispatcher on the jobs client.
func NewQueueDispatcher(queue accessEnqueuer) *QueueDispatcher {
	return &QueueDispatcher{queue: queue}
}

// DocumentAccessGranted enqueues the inbox notification for the grantee.
func (d *QueueDispatcher) DocumentAccessGranted(ctx context.Context, n AccessNotification) error {
	_, err := d.queue.EnqueueNotifyAccess(ctx, jobs.NotifyAccessPayload{
		UserID:    n.Email,
		Kind:      NotificationKindDocumentAccess,
		SubjectID: uuid.NewString(),
		RoomID:    n.RoomID,
		ActivityData: map[string]string{
			"userType":  string(n.Role),
			"title":     n.Title,
			"updatedBy": n.UpdatedBy,
			"avatar":    n.Avatar,
			"email":     n.UpdaterEmail,
		},
	})
	return err
}
