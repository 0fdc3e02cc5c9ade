package cube

import (
	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// FallingState фаза цикла падающего куба
type FallingState uint8

const (
	FallingDormant  FallingState = iota // Висит над клеткой
	FallingDropping                     // Падает
	FallingDown                         // Лежит в клетке
	FallingRising                       // Поднимается обратно
)

func (s FallingState) String() string {
	switch s {
	case FallingDormant:
		return "dormant"
	case FallingDropping:
		return "dropping"
	case FallingDown:
		return "down"
	case FallingRising:
		return "rising"
	}
	return "unknown"
}

// Falling периодически падающий куб, давящий кубы игрока в своей клетке
type Falling struct {
	Body
	State FallingState
	// Pressing истинно ровно один кадр после удара
	Pressing bool
	Falling  bool

	pressAge int
	interval float64
	delay    float64
}

// FallingPool пул падающих кубов
type FallingPool struct {
	cfg     config.FallingConfig
	tl      *timeline.Timeline
	pending []segment.FallingDef
	cubes   *registry[*Falling]
	nextID  uint32
}

// NewFallingPool создаёт пул падающих кубов
func NewFallingPool(parent *timeline.Timeline, cfg config.FallingConfig) *FallingPool {
	return &FallingPool{cfg: cfg, tl: timeline.New(parent), cubes: newRegistry[*Falling]()}
}

// AddEntries регистрирует точки появления участка
func (fp *FallingPool) AddEntries(defs []segment.FallingDef) {
	fp.pending = append(fp.pending, defs...)
}

// EntryCube создаёт кубы, чья точка появления лежит в ряду z
func (fp *FallingPool) EntryCube(z int) int {
	n := 0
	rest := fp.pending[:0]
	for _, d := range fp.pending {
		if d.Pos.Z != z {
			rest = append(rest, d)
			continue
		}
		fp.spawn(d)
		n++
	}
	fp.pending = rest
	return n
}

func (fp *FallingPool) spawn(d segment.FallingDef) {
	fp.nextID++
	f := &Falling{
		Body:     newBody(fp.nextID, d.Pos, fp.tl),
		interval: d.Interval,
		delay:    d.Delay,
	}
	fp.cubes.put(f.ID, f)

	hover := fp.hover(f)
	f.Position = hover.Add(mgl64.Vec3{0, fp.cfg.Height, 0})
	f.tweenPosition(hover, fp.cfg.EntryDuration, timeline.OutQuad).OnComplete(func() {
		f.OnStage = true
		fp.schedule(f, f.delay+f.interval)
	})
}

func (fp *FallingPool) hover(f *Falling) mgl64.Vec3 {
	return standOn(f.Block).Add(mgl64.Vec3{0, fp.cfg.Height, 0})
}

// schedule планирует следующий цикл: падение, удар, ожидание, подъём.
// Каждая фаза: отдельный отложенный вызов на шкале куба.
func (fp *FallingPool) schedule(f *Falling, wait float64) {
	f.tl.After(wait, func() {
		f.State = FallingDropping
		f.tweenPosition(standOn(f.Block), fp.cfg.DropDuration, timeline.InQuad).OnComplete(func() {
			f.State = FallingDown
			f.Pressing = true
			f.pressAge = 0
			f.tl.After(fp.cfg.StayDuration, func() {
				f.State = FallingRising
				f.tweenPosition(fp.hover(f), fp.cfg.RiseDuration, timeline.InOutSine).OnComplete(func() {
					f.State = FallingDormant
					fp.schedule(f, f.interval)
				})
			})
		})
	})
}

// Update гасит окно давления через кадр после удара, роняет кубы без опоры
// и удаляет исчезнувшие
func (fp *FallingPool) Update(dt float64, g Ground) {
	fp.cubes.each(func(f *Falling) {
		if f.Pressing {
			if f.pressAge > 0 {
				f.Pressing = false
			} else {
				f.pressAge++
			}
		}
		if !f.Alive() || f.Falling {
			return
		}
		if groundLost(g, f.Block) {
			f.Falling = true
			f.Pressing = false
			f.tl.Clear()
			f.move = nil
			f.fall(fallDistance+fp.cfg.Height, fp.cfg.FallDuration, nil)
		}
	})
	fp.cubes.prune(func(f *Falling) bool { return f.Active }, func(f *Falling) { f.Dispose() })
}

// CanPress возвращает падающий куб, который в этом кадре ударил в клетку pos
func (fp *FallingPool) CanPress(pos vec.Vec3) (*Falling, bool) {
	var found *Falling
	fp.cubes.each(func(f *Falling) {
		if found == nil && f.Alive() && !f.Falling && f.Pressing && f.Block.SameColumn(pos) {
			found = f
		}
	})
	return found, found != nil
}

// Occupies сообщает, лежит ли в клетке опущенный падающий куб
func (fp *FallingPool) Occupies(pos vec.Vec3) bool {
	busy := false
	fp.cubes.each(func(f *Falling) {
		if !busy && f.Alive() && !f.Falling && f.State == FallingDown && f.Block.SameColumn(pos) {
			busy = true
		}
	})
	return busy
}

// Each обходит кубы пула
func (fp *FallingPool) Each(fn func(f *Falling)) {
	fp.cubes.each(fn)
}

func (fp *FallingPool) Len() int     { return fp.cubes.len() }
func (fp *FallingPool) Pending() int { return len(fp.pending) }

// Dispose уничтожает кубы и шкалу пула
func (fp *FallingPool) Dispose() {
	fp.cubes.clear(func(f *Falling) { f.Dispose() })
	fp.tl.Dispose()
}
