package cube

import (
	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// panelLift высота панели над кубом рельефа
const panelLift = -0.45

func panelOn(pos vec.Vec3) mgl64.Vec3 {
	return standOn(pos).Add(mgl64.Vec3{0, panelLift, 0})
}

// panel общая часть переключателей и односторонних панелей
type panel struct {
	Body
	Used bool // панель срабатывает один раз
}

func (p *panel) enterPanel(duration float64) {
	final := panelOn(p.Block)
	p.Scale = mgl64.Vec3{1, 0, 1}
	p.Position = final
	p.tl.Tween(timeline.Vec3Track{Target: &p.Scale, From: p.Scale, To: mgl64.Vec3{1, 1, 1}}, duration).
		Ease(timeline.OutBack).
		OnComplete(func() { p.OnStage = true })
}

func (p *panel) pressDown(depth float64) {
	p.tweenPosition(p.Position.Add(mgl64.Vec3{0, -depth, 0}), 0.1, timeline.OutQuad)
}

// Switch переключатель, опускающий целевые колонки
type Switch struct {
	panel
	Targets []vec.Vec3
}

// Oneway панель, задающая направление и скорость куба игрока
type Oneway struct {
	panel
	Dir   vec.Direction
	Power int
}

// SwitchPool пул переключателей
type SwitchPool struct {
	cfg     config.PanelConfig
	tl      *timeline.Timeline
	pending []segment.SwitchDef
	items   *registry[*Switch]
	nextID  uint32
}

// NewSwitchPool создаёт пул переключателей
func NewSwitchPool(parent *timeline.Timeline, cfg config.PanelConfig) *SwitchPool {
	return &SwitchPool{cfg: cfg, tl: timeline.New(parent), items: newRegistry[*Switch]()}
}

// AddEntries регистрирует точки появления участка
func (sp *SwitchPool) AddEntries(defs []segment.SwitchDef) {
	sp.pending = append(sp.pending, defs...)
}

// EntryCube создаёт переключатели ряда z
func (sp *SwitchPool) EntryCube(z int) int {
	n := 0
	rest := sp.pending[:0]
	for _, d := range sp.pending {
		if d.Pos.Z != z {
			rest = append(rest, d)
			continue
		}
		sp.nextID++
		s := &Switch{panel: panel{Body: newBody(sp.nextID, d.Pos, sp.tl)}, Targets: d.Targets}
		sp.items.put(s.ID, s)
		s.enterPanel(sp.cfg.EntryDuration)
		n++
	}
	sp.pending = rest
	return n
}

// Activate срабатывает переключатель в клетке pos; каждый только один раз
func (sp *SwitchPool) Activate(pos vec.Vec3) (*Switch, bool) {
	var found *Switch
	sp.items.each(func(s *Switch) {
		if found == nil && s.Alive() && !s.Used && s.Block.SameColumn(pos) {
			found = s
		}
	})
	if found == nil {
		return nil, false
	}
	found.Used = true
	found.pressDown(sp.cfg.PressDepth)
	return found, true
}

// Update роняет переключатели без опоры и удаляет исчезнувшие
func (sp *SwitchPool) Update(dt float64, g Ground) {
	sp.items.each(func(s *Switch) {
		if s.Alive() && groundLost(g, s.Block) {
			s.fall(fallDistance, sp.cfg.FallDuration, nil)
		}
	})
	sp.items.prune(func(s *Switch) bool { return s.Active }, func(s *Switch) { s.Dispose() })
}

// Each обходит переключатели
func (sp *SwitchPool) Each(fn func(s *Switch)) {
	sp.items.each(fn)
}

func (sp *SwitchPool) Len() int     { return sp.items.len() }
func (sp *SwitchPool) Pending() int { return len(sp.pending) }

// Dispose уничтожает переключатели и шкалу пула
func (sp *SwitchPool) Dispose() {
	sp.items.clear(func(s *Switch) { s.Dispose() })
	sp.tl.Dispose()
}

// OnewayPool пул односторонних панелей
type OnewayPool struct {
	cfg     config.PanelConfig
	tl      *timeline.Timeline
	pending []segment.OnewayDef
	items   *registry[*Oneway]
	nextID  uint32
}

// NewOnewayPool создаёт пул односторонних панелей
func NewOnewayPool(parent *timeline.Timeline, cfg config.PanelConfig) *OnewayPool {
	return &OnewayPool{cfg: cfg, tl: timeline.New(parent), items: newRegistry[*Oneway]()}
}

// AddEntries регистрирует точки появления участка
func (op *OnewayPool) AddEntries(defs []segment.OnewayDef) {
	op.pending = append(op.pending, defs...)
}

// EntryCube создаёт панели ряда z
func (op *OnewayPool) EntryCube(z int) int {
	n := 0
	rest := op.pending[:0]
	for _, d := range op.pending {
		if d.Pos.Z != z {
			rest = append(rest, d)
			continue
		}
		op.nextID++
		o := &Oneway{panel: panel{Body: newBody(op.nextID, d.Pos, op.tl)}, Dir: d.Dir, Power: d.Power}
		o.Rotation = mgl64.QuatRotate(yawOf(d.Dir), mgl64.Vec3{0, 1, 0})
		op.items.put(o.ID, o)
		o.enterPanel(op.cfg.EntryDuration)
		n++
	}
	op.pending = rest
	return n
}

func yawOf(d vec.Direction) float64 {
	switch d {
	case vec.DirDown:
		return mgl64.DegToRad(180)
	case vec.DirLeft:
		return mgl64.DegToRad(90)
	case vec.DirRight:
		return mgl64.DegToRad(-90)
	}
	return 0
}

// Activate срабатывает панель в клетке pos; каждая только один раз
func (op *OnewayPool) Activate(pos vec.Vec3) (*Oneway, bool) {
	var found *Oneway
	op.items.each(func(o *Oneway) {
		if found == nil && o.Alive() && !o.Used && o.Block.SameColumn(pos) {
			found = o
		}
	})
	if found == nil {
		return nil, false
	}
	found.Used = true
	found.pressDown(op.cfg.PressDepth)
	return found, true
}

// Update роняет панели без опоры и удаляет исчезнувшие
func (op *OnewayPool) Update(dt float64, g Ground) {
	op.items.each(func(o *Oneway) {
		if o.Alive() && groundLost(g, o.Block) {
			o.fall(fallDistance, op.cfg.FallDuration, nil)
		}
	})
	op.items.prune(func(o *Oneway) bool { return o.Active }, func(o *Oneway) { o.Dispose() })
}

// Each обходит панели
func (op *OnewayPool) Each(fn func(o *Oneway)) {
	op.items.each(fn)
}

func (op *OnewayPool) Len() int     { return op.items.len() }
func (op *OnewayPool) Pending() int { return len(op.pending) }

// Dispose уничтожает панели и шкалу пула
func (op *OnewayPool) Dispose() {
	op.items.clear(func(o *Oneway) { o.Dispose() })
	op.tl.Dispose()
}
