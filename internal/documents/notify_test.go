package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livedocs-app/livedocs/internal/access"
	"github.com/livedocs-app/livedocs/jobs"
)

type fakeEnqueuer struct {
	payloads []jobs.NotifyAccessPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueNotifyAccess(ctx context.Context, payload jobs.NotifyAccessPayload) (*asynq.TaskInfo, error) {
	f.payloads = append(f.payloads, payload)
	return &asynq.TaskInfo{}, f.err
}

func TestQueueDispatcherPayload(t *testing.T) {
	queue := &fakeEnqueuer{}
	d := NewQueueDispatcher(queue)

	err := d.DocumentAccessGranted(context.Background(), AccessNotification{
		RoomID:       "r1",
		Email:        "bob@example.com",
		Role:         access.RoleEditor,
		Title:        "Roadmap",
		UpdatedBy:    "Alice",
		UpdaterEmail: "alice@example.com",
		Avatar:       "https://img/alice",
	})
	require.NoError(t, err)

	require.Len(t, queue.payloads, 1)
	p := queue.payloads[0]
	assert.Equal(t, "bob@example.com", p.UserID)
	assert.Equal(t, NotificationKindDocumentAccess, p.Kind)
	assert.Equal(t, "$documentAccess", p.Kind)
	assert.Equal(t, "r1", p.RoomID)
	assert.NotEmpty(t, p.SubjectID)
	assert.Equal(t, map[string]string{
		"userType":  "editor",
		"title":     "Roadmap",
		"updatedBy": "Alice",
		"avatar":    "https://img/alice",
		"email":     "alice@example.com",
	}, p.ActivityData)
}

func TestQueueDispatcherSubjectIDsAreUnique(t *testing.T) {
	queue := &fakeEnqueuer{}
	d := NewQueueDispatcher(queue)

	for range 2 {
		require.NoError(t, d.DocumentAccessGranted(context.Background(), AccessNotification{Email: "bob@example.com"}))
	}
	require.Len(t, queue.payloads, 2)
	assert.NotEqual(t, queue.payloads[0].SubjectID, queue.payloads[1].SubjectID)
}

func TestQueueDispatcherPropagatesEnqueueError(t *testing.T) {
	queue := &fakeEnqueuer{err: errors.New("queue down")}
	d := NewQueueDispatcher(queue)
	err := d.DocumentAccessGranted(context.Background(), AccessNotification{Email: "bob@example.com"})
	assert.Error(t, err)
}
