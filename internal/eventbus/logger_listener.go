package eventbus

import (
	"context"

	"github.com/annel0/cube-runner/internal/logging"
)

// StartLoggingListener подписывается на события filter и пишет их в лог компонента eventbus.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus, filter Filter) (Subscription, error) {
	logger := logging.GetComponentLogger(logging.ComponentEventBus)
	sub, err := bus.Subscribe(ctx, filter, func(ctx context.Context, ev *Envelope) {
		logger.Debug("[EventBus] %s %s run=%s stage=%d t=%.2f %s", ev.ID, ev.EventType, ev.RunID, ev.Stage, ev.SimTime, ev.Payload)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на события активирована")
	return sub, nil
}
