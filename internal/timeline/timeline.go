// Package timeline содержит кооперативный планировщик анимаций и отложенных вызовов.
//
// Каждый владелец (поле, уровень, пул, отдельный куб) создаёт собственную
// дочернюю шкалу через New(parent) и обязан вызвать Dispose до освобождения
// своего состояния: после Dispose ни один колбэк этой шкалы не сработает.
// Все вызовы выполняются в потоке, вызывающем Step, без вытеснения.
package timeline

import "math"

// Timeline шкала времени владельца с собственными задачами и дочерними шкалами
type Timeline struct {
	parent   *Timeline
	children []*Timeline
	items    []*Item

	now       float64 // текущее время шкалы (секунды)
	stepStart float64 // время начала текущего Step
	lag       float64 // часть ближайшего шага, прошедшая до создания шкалы
	stepping  bool
	paused    bool
	disposed  bool
	scale     float64
}

// New создаёт шкалу и регистрирует её в родителе (parent может быть nil для корня)
func New(parent *Timeline) *Timeline {
	t := &Timeline{parent: parent, scale: 1}
	if parent == nil {
		return t
	}
	if parent.disposed {
		// Шкала без родителя ничего не исполнит до явного Step
		t.parent = nil
		return t
	}

	// Если предок сейчас внутри Step, дочерняя шкала получит тот же dt целиком.
	// Запоминаем уже прошедшую часть, чтобы она прожила только остаток шага.
	for a := parent; a != nil; a = a.parent {
		if a.stepping {
			t.lag = a.now - a.stepStart
			// Промежуточные предки с собственной задержкой уже урежут dt
			for p := parent; p != a; p = p.parent {
				t.lag -= p.lag
			}
			break
		}
	}

	parent.children = append(parent.children, t)
	return t
}

// Child создаёт дочернюю шкалу
func (t *Timeline) Child() *Timeline {
	return New(t)
}

// Now возвращает текущее время шкалы
func (t *Timeline) Now() float64 {
	return t.now
}

// Disposed сообщает, была ли шкала уничтожена
func (t *Timeline) Disposed() bool {
	return t.disposed
}

// SetPaused приостанавливает шкалу вместе с дочерними
func (t *Timeline) SetPaused(paused bool) {
	t.paused = paused
}

// Paused возвращает признак паузы
func (t *Timeline) Paused() bool {
	return t.paused
}

// SetScale задаёт множитель скорости времени для шкалы и её детей
func (t *Timeline) SetScale(scale float64) {
	if scale < 0 {
		scale = 0
	}
	t.scale = scale
}

// After планирует однократный вызов fn через delay секунд
func (t *Timeline) After(delay float64, fn func()) *Item {
	it := &Item{tl: t, start: t.now, duration: math.Max(delay, 0), onComplete: fn}
	it.end = it.start + it.duration
	t.add(it)
	return it
}

// Tween создаёт анимацию трека длительностью duration
func (t *Timeline) Tween(track Track, duration float64) *Item {
	it := &Item{tl: t, start: t.now, duration: math.Max(duration, 0), track: track, ease: Linear}
	it.end = it.start + it.duration
	t.add(it)
	return it
}

func (t *Timeline) add(it *Item) {
	if t.disposed {
		it.done = true
		return
	}
	t.items = append(t.items, it)
}

// Pending возвращает число незавершённых задач и анимаций шкалы (без детей)
func (t *Timeline) Pending() int {
	n := 0
	for _, it := range t.items {
		if !it.done {
			n++
		}
	}
	return n
}

// Children возвращает число живых дочерних шкал
func (t *Timeline) Children() int {
	return len(t.children)
}

// Clear отменяет все задачи и анимации шкалы; дочерние шкалы не затрагиваются
func (t *Timeline) Clear() {
	for _, it := range t.items {
		it.done = true
	}
	t.items = nil
}

// Dispose отменяет всё, уничтожает дочерние шкалы и отцепляется от родителя
func (t *Timeline) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true

	for _, c := range t.children {
		c.parent = nil
		c.Dispose()
	}
	t.children = nil
	t.Clear()

	if t.parent != nil {
		t.parent.removeChild(t)
		t.parent = nil
	}
}

func (t *Timeline) removeChild(child *Timeline) {
	for i, c := range t.children {
		if c == child {
			t.children = append(t.children[:i], t.children[i+1:]...)
			return
		}
	}
}

// Step продвигает шкалу на dt секунд.
// Задачи и окончания анимаций вызываются в порядке своего времени; задачи,
// запланированные внутри колбэка и попадающие в текущее окно, исполняются
// в этом же шаге (цепочки продолжений без роста стека).
func (t *Timeline) Step(dt float64) {
	if t.disposed || t.paused || dt < 0 {
		return
	}
	if t.lag > 0 {
		dt = math.Max(dt-t.lag, 0)
		t.lag = 0
	}
	dt *= t.scale

	target := t.now + dt
	t.stepStart = t.now
	t.stepping = true

	for {
		it := t.nextDue(target)
		if it == nil {
			break
		}
		if it.end > t.now {
			t.now = it.end
		}
		it.finish()
		if t.disposed {
			t.stepping = false
			return
		}
	}

	t.now = target
	t.stepping = false

	for _, it := range t.items {
		if !it.done && it.track != nil && it.start <= t.now {
			it.applyAt(t.now)
		}
	}
	t.compact()

	children := append([]*Timeline(nil), t.children...)
	for _, c := range children {
		if !c.disposed {
			c.Step(dt)
		}
		if t.disposed {
			return
		}
	}
}

// nextDue ищет самый ранний незавершённый элемент с end <= target.
// При равенстве времени сохраняется порядок добавления.
func (t *Timeline) nextDue(target float64) *Item {
	var best *Item
	for _, it := range t.items {
		if it.done || it.end > target {
			continue
		}
		if best == nil || it.end < best.end {
			best = it
		}
	}
	return best
}

func (t *Timeline) compact() {
	live := t.items[:0]
	for _, it := range t.items {
		if !it.done {
			live = append(live, it)
		}
	}
	for i := len(live); i < len(t.items); i++ {
		t.items[i] = nil
	}
	t.items = live
}
