package timeline

import (
	"fmt"
	"math"
)

// EaseFunc отображает прогресс 0..1 в сглаженный прогресс
type EaseFunc func(p float64) float64

func Linear(p float64) float64    { return p }
func InQuad(p float64) float64    { return p * p }
func OutQuad(p float64) float64   { return p * (2 - p) }
func InCubic(p float64) float64   { return p * p * p }
func OutCubic(p float64) float64  { q := p - 1; return q*q*q + 1 }
func InOutSine(p float64) float64 { return -(math.Cos(math.Pi*p) - 1) / 2 }

func InOutQuad(p float64) float64 {
	if p < 0.5 {
		return 2 * p * p
	}
	return -1 + (4-2*p)*p
}

func InExpo(p float64) float64 {
	if p == 0 {
		return 0
	}
	return math.Pow(2, 10*(p-1))
}

func OutExpo(p float64) float64 {
	if p == 1 {
		return 1
	}
	return 1 - math.Pow(2, -10*p)
}

const backOvershoot = 1.70158

func InBack(p float64) float64 {
	return p * p * ((backOvershoot+1)*p - backOvershoot)
}

func OutBack(p float64) float64 {
	q := p - 1
	return q*q*((backOvershoot+1)*q+backOvershoot) + 1
}

func OutBounce(p float64) float64 {
	switch {
	case p < 1/2.75:
		return 7.5625 * p * p
	case p < 2/2.75:
		p -= 1.5 / 2.75
		return 7.5625*p*p + 0.75
	case p < 2.5/2.75:
		p -= 2.25 / 2.75
		return 7.5625*p*p + 0.9375
	default:
		p -= 2.625 / 2.75
		return 7.5625*p*p + 0.984375
	}
}

var easeByName = map[string]EaseFunc{
	"Linear":    Linear,
	"InQuad":    InQuad,
	"OutQuad":   OutQuad,
	"InOutQuad": InOutQuad,
	"InCubic":   InCubic,
	"OutCubic":  OutCubic,
	"InOutSine": InOutSine,
	"InExpo":    InExpo,
	"OutExpo":   OutExpo,
	"InBack":    InBack,
	"OutBack":   OutBack,
	"OutBounce": OutBounce,
}

// EaseByName возвращает функцию сглаживания по имени из конфигурации
func EaseByName(name string) (EaseFunc, error) {
	if f, ok := easeByName[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("неизвестная функция сглаживания: %q", name)
}

// EasesByName разбирает список имён; неизвестные имена дают ошибку
func EasesByName(names []string) ([]EaseFunc, error) {
	out := make([]EaseFunc, 0, len(names))
	for _, n := range names {
		f, err := EaseByName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		out = append(out, Linear)
	}
	return out, nil
}
