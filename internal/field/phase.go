package field

// Phase фаза цикла этапа
type Phase uint8

const (
	PhaseNone    Phase = iota // Между этапами
	PhaseStart                // Рельеф строится, кубы ещё не пересекли стартовую линию
	PhaseFinish               // Игра идёт, обрушение догоняет кубы
	PhaseClear                // Все кубы за финишем, рельеф дообрушается до финиша
	PhaseCleanup              // Конец игры: рельеф рушится целиком
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseStart:
		return "start"
	case PhaseFinish:
		return "finish"
	case PhaseClear:
		return "clear"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// MarshalText для JSON снимков и REST
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// allowed допустимые переходы фаз
var allowed = map[Phase][]Phase{
	PhaseNone:    {PhaseStart, PhaseCleanup},
	PhaseStart:   {PhaseFinish, PhaseCleanup},
	PhaseFinish:  {PhaseClear, PhaseCleanup},
	PhaseClear:   {PhaseNone, PhaseCleanup},
	PhaseCleanup: {PhaseNone},
}

// canTransition сообщает, разрешён ли переход from → to
func canTransition(from, to Phase) bool {
	for _, p := range allowed[from] {
		if p == to {
			return true
		}
	}
	return false
}

// setPhase переводит поле в новую фазу и логирует переход.
// Недопустимый переход: ошибка вызывающего кода.
func (f *Field) setPhase(to Phase) {
	if !canTransition(f.phase, to) {
		f.violation("недопустимый переход фазы %s → %s", f.phase, to)
		return
	}
	f.logger.Info("Этап %d: фаза %s → %s", f.stageIndex, f.phase, to)
	f.phase = to
}
