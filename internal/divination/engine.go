package divination

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"

	"github.com/neoluxis/gua4destiny/internal/gua"
)

// yongOrigin is the working stalk count: fifty minus the one set aside.
const yongOrigin = 49

// validYong lists the legal working counts after each of the three changes.
var validYong = [3][]int{
	{44, 40},
	{40, 36, 32},
	{36, 32, 28, 24},
}

// Engine performs the yarrow-stalk count. The division strategy and its
// randomness source are injectable for testing.
type Engine struct {
	divider *Divider
	method  string
	rng     *rand.Rand
}

// Option mutates an Engine during construction.
type Option func(*Engine)

// WithMethod selects the division strategy key (default "N").
func WithMethod(method string) Option {
	return func(e *Engine) { e.method = method }
}

// WithRand injects a deterministic randomness source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithDivider injects a custom strategy table.
func WithDivider(d *Divider) Option {
	return func(e *Engine) { e.divider = d }
}

// NewEngine builds an Engine with the built-in strategies.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		divider: NewDivider(),
		method:  MethodNormal,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		var seed [32]byte
		if _, err := crand.Read(seed[:]); err != nil {
			e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		} else {
			e.rng = rand.New(rand.NewChaCha8(seed))
		}
	}
	return e
}

// OneChange performs a single change: split the working stalks into heaven
// and earth, set one aside for man, and count off both heaps by four.
// It returns the counted-off remainder and the next working count.
func (e *Engine) OneChange(yong int) (counted, nextYong int, err error) {
	parts, err := e.divider.Divide(e.rng, yong, 2, e.method)
	if err != nil {
		return 0, 0, err
	}
	heaven, earth := parts[0], parts[1]
	man := 1
	earth--

	heavenSeasons, heavenRest := floorDivMod(heaven, 4)
	earthSeasons, earthRest := floorDivMod(earth, 4)
	if heavenRest == 0 {
		heavenRest = 4
		heavenSeasons--
	}
	if earthRest == 0 {
		earthRest = 4
		earthSeasons--
	}

	counted = heavenRest + earthRest + man
	nextYong = (heavenSeasons + earthSeasons) * 4
	return counted, nextYong, nil
}

// CastLine runs three changes and maps the final working count to a line.
func (e *Engine) CastLine() (gua.Line, error) {
	yong := yongOrigin
	for step := 0; step < 3; step++ {
		var err error
		_, yong, err = e.OneChange(yong)
		if err != nil {
			return 0, err
		}
		if !containsInt(validYong[step], yong) {
			return 0, fmt.Errorf("divination: illegal working count %d after change %d", yong, step+1)
		}
	}
	return gua.Line(yong / 4), nil
}

// CastHexagram casts six lines, bottom line first.
func (e *Engine) CastHexagram() ([]gua.Line, error) {
	lines := make([]gua.Line, 0, 6)
	for i := 0; i < 6; i++ {
		l, err := e.CastLine()
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// floorDivMod behaves like mathematical floor division, so a negative
// dividend still yields a remainder in [0, d).
func floorDivMod(n, d int) (q, r int) {
	q = n / d
	r = n % d
	if r < 0 {
		r += d
		q--
	}
	return q, r
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
