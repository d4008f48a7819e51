package repos

import (
	"context"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
)

type notificationLog struct {
	records collection[notification.Record]
}

var _ notification.Log = (*notificationLog)(nil)

func NewNotificationLog(store core.Store) notification.Log {
	return &notificationLog{records: collection[notification.Record]{store: store, name: core.CollNotifications}}
}

func (l *notificationLog) AppendNotification(ctx context.Context, rec notification.Record) error {
	return l.records.insert(ctx, rec, nil)
}

func (l *notificationLog) QueryNotifications(ctx context.Context) ([]notification.Record, error) {
	return l.records.all(ctx)
}
