package eventbus

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/logging"
	"github.com/google/uuid"
)

// RunInfo сообщает контекст забега для конверта: id забега, этап и время симуляции
type RunInfo func() (runID string, stage int, simTime float64)

// Forwarder пересылает события синхронной шины ядра во внешний EventBus.
// Обработчик на стороне симуляции не блокируется: конверты копятся в очереди,
// публикует их Run в своей горутине. При переполнении конверт отбрасывается.
type Forwarder struct {
	out     EventBus
	source  string
	info    RunInfo
	queue   chan *Envelope
	dropped uint64
	logger  *logging.Logger
}

// NewForwarder создаёт пересылку в out с очередью capacity
func NewForwarder(out EventBus, source string, info RunInfo, capacity int) *Forwarder {
	if capacity <= 0 {
		capacity = 1
	}
	if info == nil {
		info = func() (string, int, float64) { return "", 0, 0 }
	}
	return &Forwarder{
		out:    out,
		source: source,
		info:   info,
		queue:  make(chan *Envelope, capacity),
		logger: logging.GetComponentLogger(logging.ComponentEventBus),
	}
}

// Attach подписывает пересылку на все события шины ядра
func (fw *Forwarder) Attach(bus *event.Bus) event.Subscription {
	return bus.SubscribeAll(fw.handle)
}

func (fw *Forwarder) handle(ev event.Event) {
	env, err := fw.Wrap(ev)
	if err != nil {
		fw.logger.Warn("Не удалось сериализовать %s: %v", ev.Kind(), err)
		atomic.AddUint64(&fw.dropped, 1)
		return
	}
	select {
	case fw.queue <- env:
	default:
		atomic.AddUint64(&fw.dropped, 1)
	}
}

// Wrap упаковывает событие в конверт
func (fw *Forwarder) Wrap(ev event.Event) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	runID, stage, now := fw.info()
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    fw.source,
		EventType: ev.Kind().String(),
		RunID:     runID,
		Stage:     stage,
		SimTime:   now,
		Priority:  Priority(ev.Kind()),
		Payload:   payload,
	}, nil
}

// Run публикует накопленные конверты до отмены ctx, затем досылает остаток
func (fw *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case env := <-fw.queue:
			fw.publish(ctx, env)
		case <-ctx.Done():
			fw.flush()
			return
		}
	}
}

func (fw *Forwarder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case env := <-fw.queue:
			fw.publish(ctx, env)
		default:
			return
		}
	}
}

func (fw *Forwarder) publish(ctx context.Context, env *Envelope) {
	if err := fw.out.Publish(ctx, env); err != nil {
		atomic.AddUint64(&fw.dropped, 1)
		fw.logger.Warn("Не удалось опубликовать %s: %v", env.EventType, err)
	}
}

// Dropped число конвертов, потерянных на стороне пересылки
func (fw *Forwarder) Dropped() uint64 {
	return atomic.LoadUint64(&fw.dropped)
}

// Priority приоритет конверта по типу события
func Priority(k event.Kind) int {
	switch k {
	case event.KindStageCleared, event.KindBeginGameover, event.KindStageAllCollapsed, event.KindGameoverAgree:
		return 9
	case event.KindPickableMoved, event.KindBuildOneLine, event.KindCollapseOneLine, event.KindMovePickable:
		return 1
	}
	return 5
}
