package timeline

// Item задача или анимация на шкале. Методы-настройки (Delay, Ease, OnComplete, Loop)
// вызываются сразу после создания, до ближайшего Step.
type Item struct {
	tl         *Timeline
	start      float64
	end        float64
	duration   float64
	track      Track
	ease       EaseFunc
	onComplete func()
	loop       bool
	done       bool
}

// Delay откладывает старт на d секунд
func (it *Item) Delay(d float64) *Item {
	if d > 0 {
		it.start += d
		it.end = it.start + it.duration
	}
	return it
}

// Ease задаёт функцию сглаживания
func (it *Item) Ease(f EaseFunc) *Item {
	if f != nil {
		it.ease = f
	}
	return it
}

// OnComplete задаёт колбэк завершения
func (it *Item) OnComplete(fn func()) *Item {
	it.onComplete = fn
	return it
}

// Loop зацикливает анимацию; колбэк завершения вызывается на каждом круге
func (it *Item) Loop() *Item {
	if it.duration > 0 {
		it.loop = true
	}
	return it
}

// Cancel отменяет элемент без вызова колбэка
func (it *Item) Cancel() {
	it.done = true
}

// Done сообщает, завершён или отменён ли элемент
func (it *Item) Done() bool {
	return it.done
}

// Remaining возвращает оставшееся время до завершения
func (it *Item) Remaining() float64 {
	if it.done {
		return 0
	}
	r := it.end - it.tl.now
	if r < 0 {
		return 0
	}
	return r
}

func (it *Item) applyAt(now float64) {
	if it.track == nil {
		return
	}
	p := 1.0
	if it.duration > 0 {
		p = (now - it.start) / it.duration
	}
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	it.track.apply(it.ease(p))
}

func (it *Item) finish() {
	if it.track != nil {
		it.track.apply(it.ease(1))
	}
	if it.loop {
		it.start = it.end
		it.end = it.start + it.duration
	} else {
		it.done = true
	}
	if it.onComplete != nil {
		it.onComplete()
	}
}
