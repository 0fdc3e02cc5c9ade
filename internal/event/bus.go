package event

// Handler потребляет событие
type Handler func(ev Event)

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

type subscriber struct {
	id      int
	kind    Kind // 0: все типы
	handler Handler
}

// Bus синхронная шина событий симуляции.
// Обработчики вызываются в порядке регистрации в потоке, вызвавшем Emit.
// Шина не потокобезопасна: ею пользуется только шаг симуляции.
type Bus struct {
	subscribers []subscriber
	nextID      int
	emitted     map[Kind]uint64
}

// NewBus создаёт пустую шину
func NewBus() *Bus {
	return &Bus{emitted: make(map[Kind]uint64)}
}

// Subscribe регистрирует обработчик событий одного типа
func (b *Bus) Subscribe(kind Kind, h Handler) Subscription {
	b.nextID++
	b.subscribers = append(b.subscribers, subscriber{id: b.nextID, kind: kind, handler: h})
	return &busSub{bus: b, id: b.nextID}
}

// SubscribeAll регистрирует обработчик всех событий
func (b *Bus) SubscribeAll(h Handler) Subscription {
	return b.Subscribe(0, h)
}

// On подписывает типизированный обработчик на события типа T
func On[T Event](b *Bus, h func(T)) Subscription {
	var zero T
	return b.Subscribe(zero.Kind(), func(ev Event) {
		if t, ok := ev.(T); ok {
			h(t)
		}
	})
}

// Emit синхронно доставляет событие подписчикам.
// Подписки, добавленные внутри обработчика, начинают получать события со следующего Emit.
func (b *Bus) Emit(ev Event) {
	if ev == nil {
		return
	}
	b.emitted[ev.Kind()]++

	subs := b.subscribers
	for _, s := range subs {
		if s.kind != 0 && s.kind != ev.Kind() {
			continue
		}
		if !b.alive(s.id) {
			continue
		}
		s.handler(ev)
	}
}

// Emitted возвращает число событий типа kind, прошедших через шину
func (b *Bus) Emitted(kind Kind) uint64 {
	return b.emitted[kind]
}

// Len возвращает число активных подписок
func (b *Bus) Len() int {
	return len(b.subscribers)
}

func (b *Bus) alive(id int) bool {
	for _, s := range b.subscribers {
		if s.id == id {
			return true
		}
	}
	return false
}

func (b *Bus) remove(id int) {
	for i, s := range b.subscribers {
		if s.id == id {
			// Новый срез, чтобы не портить копию, по которой идёт Emit
			next := make([]subscriber, 0, len(b.subscribers)-1)
			next = append(next, b.subscribers[:i]...)
			next = append(next, b.subscribers[i+1:]...)
			b.subscribers = next
			return
		}
	}
}

type busSub struct {
	bus *Bus
	id  int
}

func (s *busSub) Unsubscribe() {
	if s.bus == nil {
		return
	}
	s.bus.remove(s.id)
	s.bus = nil
}
