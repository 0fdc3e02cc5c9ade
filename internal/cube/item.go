package cube

import (
	"math"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// Item предмет, который подбирает куб игрока
type Item struct {
	Body
	Getatable bool // false после того, как предмет забрали
	Picked    bool

	spin *timeline.Item
}

// ItemPool пул предметов
type ItemPool struct {
	cfg     config.ItemConfig
	tl      *timeline.Timeline
	pending []segment.ItemDef
	items   *registry[*Item]
	nextID  uint32

	spawned int
	picked  int
}

// NewItemPool создаёт пул предметов
func NewItemPool(parent *timeline.Timeline, cfg config.ItemConfig) *ItemPool {
	return &ItemPool{cfg: cfg, tl: timeline.New(parent), items: newRegistry[*Item]()}
}

// AddEntries регистрирует точки появления загруженного участка
func (ip *ItemPool) AddEntries(defs []segment.ItemDef) {
	ip.pending = append(ip.pending, defs...)
}

// EntryCube создаёт предметы, чья точка появления лежит в ряду z
func (ip *ItemPool) EntryCube(z int) int {
	n := 0
	rest := ip.pending[:0]
	for _, d := range ip.pending {
		if d.Pos.Z != z {
			rest = append(rest, d)
			continue
		}
		ip.spawn(d)
		n++
	}
	ip.pending = rest
	return n
}

func (ip *ItemPool) spawn(d segment.ItemDef) {
	ip.nextID++
	it := &Item{Body: newBody(ip.nextID, d.Pos, ip.tl), Getatable: true}
	ip.items.put(it.ID, it)
	ip.spawned++
	it.enter(0, ip.cfg.EntryOffset, ip.cfg.EntryDuration, func() {
		it.spin = it.tl.Tween(timeline.AngleTrack{
			Target: &it.Rotation,
			Base:   mgl64.QuatIdent(),
			Axis:   mgl64.Vec3{0, 1, 0},
			From:   0,
			To:     2 * math.Pi,
		}, ip.cfg.SpinDuration).Loop()
	})
}

// Pick забирает предмет в клетке pos. Забрать предмет можно только один раз.
func (ip *ItemPool) Pick(pos vec.Vec3) (*Item, bool) {
	var found *Item
	ip.items.each(func(it *Item) {
		if found == nil && it.Alive() && it.Getatable && it.Block.SameColumn(pos) {
			found = it
		}
	})
	if found == nil {
		return nil, false
	}

	found.Getatable = false
	found.Picked = true
	found.OnStage = false
	ip.picked++
	if found.spin != nil {
		found.spin.Cancel()
	}
	found.tl.Tween(timeline.Vec3Track{Target: &found.Scale, From: found.Scale, To: mgl64.Vec3{}}, ip.cfg.PickDuration).Ease(timeline.InBack)
	found.tweenPosition(found.Position.Add(mgl64.Vec3{0, 1, 0}), ip.cfg.PickDuration, timeline.OutQuad).OnComplete(func() {
		found.Active = false
	})
	return found, true
}

// MoveDown опускает предмет в колонке pos вслед за рельефом
func (ip *ItemPool) MoveDown(pos vec.Vec3) bool {
	moved := false
	ip.items.each(func(it *Item) {
		if it.Active && it.Getatable && it.Block.SameColumn(pos) {
			it.lowerBlock(ip.cfg.MoveDownDuration)
			moved = true
		}
	})
	return moved
}

// Update роняет предметы без опоры и удаляет исчезнувшие
func (ip *ItemPool) Update(dt float64, g Ground) {
	ip.items.each(func(it *Item) {
		if it.Alive() && groundLost(g, it.Block) {
			it.Getatable = false
			if it.spin != nil {
				it.spin.Cancel()
			}
			it.fall(fallDistance, ip.cfg.FallDuration, nil)
		}
	})
	ip.items.prune(func(it *Item) bool { return it.Active }, func(it *Item) { it.Dispose() })
}

// Each обходит живые предметы
func (ip *ItemPool) Each(fn func(it *Item)) {
	ip.items.each(fn)
}

func (ip *ItemPool) Len() int     { return ip.items.len() }
func (ip *ItemPool) Spawned() int { return ip.spawned }
func (ip *ItemPool) Picked() int  { return ip.picked }
func (ip *ItemPool) Pending() int { return len(ip.pending) }

// ResetCounters обнуляет счётчики этапа
func (ip *ItemPool) ResetCounters() {
	ip.spawned = 0
	ip.picked = 0
}

// Dispose уничтожает предметы и шкалу пула
func (ip *ItemPool) Dispose() {
	ip.items.clear(func(it *Item) { it.Dispose() })
	ip.tl.Dispose()
}
