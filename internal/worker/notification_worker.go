package worker

import (
	"github.com/spec-kit/creative-board/internal/events"
	"github.com/spec-kit/creative-board/internal/service"
)

// StartNotificationWorker registers notification handlers and, when
// configured, the Redis fan-out of board events.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, fanout *events.RedisFanout) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if fanout != nil {
		fanout.Register(dispatcher)
	}
}
