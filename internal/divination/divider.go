// Package divination implements the yarrow-stalk casting procedure with
// pluggable randomized division strategies.
package divination

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// Strategy splits a non-negative total into a fixed number of parts that
// sum back to the total. Implementations draw from their own distribution.
type Strategy interface {
	Divide(rng *rand.Rand, total, parts int) ([]int, error)
}

// Method keys for the built-in strategies.
const (
	MethodUniform     = "U"
	MethodNormal      = "N"
	MethodExponential = "E"
	MethodPoisson     = "P"
)

// Divider routes division requests to a named strategy.
type Divider struct {
	strategies map[string]Strategy
}

// NewDivider returns a Divider with all built-in strategies registered.
func NewDivider() *Divider {
	d := &Divider{strategies: make(map[string]Strategy)}
	d.Register(MethodUniform, UniformStrategy{})
	d.Register(MethodNormal, NormalStrategy{StdRatio: 0.5})
	d.Register(MethodExponential, ExponentialStrategy{})
	d.Register(MethodPoisson, PoissonStrategy{})
	return d
}

// Register adds or replaces a strategy under key (trimmed, upper-cased).
func (d *Divider) Register(key string, s Strategy) {
	d.strategies[normalizeMethod(key)] = s
}

// Divide splits total into parts using the named method.
func (d *Divider) Divide(rng *rand.Rand, total, parts int, method string) ([]int, error) {
	s, ok := d.strategies[normalizeMethod(method)]
	if !ok {
		return nil, fmt.Errorf("divination: unknown division method %q", method)
	}
	if err := validateDivision(total, parts); err != nil {
		return nil, err
	}
	return s.Divide(rng, total, parts)
}

func normalizeMethod(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func validateDivision(total, parts int) error {
	if parts <= 0 {
		return fmt.Errorf("divination: parts must be positive, got %d", parts)
	}
	if total < 0 {
		return fmt.Errorf("divination: total must be non-negative, got %d", total)
	}
	return nil
}

// UniformStrategy splits by drawing cut points uniformly at random.
type UniformStrategy struct{}

func (UniformStrategy) Divide(rng *rand.Rand, total, parts int) ([]int, error) {
	if parts == 1 {
		return []int{total}, nil
	}
	if total <= 1 {
		out := make([]int, parts)
		out[parts-1] = total
		return out, nil
	}
	cuts := samplePoints(rng, total, parts-1)
	sort.Ints(cuts)
	bounds := make([]int, 0, parts+1)
	bounds = append(bounds, 0)
	bounds = append(bounds, cuts...)
	bounds = append(bounds, total)
	out := make([]int, parts)
	for i := range out {
		out[i] = bounds[i+1] - bounds[i]
	}
	return out, nil
}

// samplePoints draws count distinct integers from [1, total).
func samplePoints(rng *rand.Rand, total, count int) []int {
	pool := make([]int, total-1)
	for i := range pool {
		pool[i] = i + 1
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count > len(pool) {
		count = len(pool)
	}
	return append([]int(nil), pool[:count]...)
}

// NormalStrategy draws part weights from a normal distribution centered on
// the even split.
type NormalStrategy struct {
	// StdRatio scales the standard deviation relative to the mean when
	// StdDev is zero.
	StdRatio float64
	Mean     float64
	StdDev   float64
}

func (s NormalStrategy) Divide(rng *rand.Rand, total, parts int) ([]int, error) {
	mean := s.Mean
	if mean == 0 {
		mean = float64(total) / float64(parts)
	}
	ratio := s.StdRatio
	if ratio == 0 {
		ratio = 0.5
	}
	stdDev := s.StdDev
	if stdDev == 0 {
		stdDev = mean * ratio
	}
	weights := make([]float64, parts)
	for i := range weights {
		weights[i] = rng.NormFloat64()*stdDev + mean
	}
	return normalizeToTotal(weights, total), nil
}

// ExponentialStrategy draws part weights from an exponential distribution.
type ExponentialStrategy struct {
	// Scale is the distribution mean; zero means total/parts.
	Scale float64
}

func (s ExponentialStrategy) Divide(rng *rand.Rand, total, parts int) ([]int, error) {
	scale := s.Scale
	if scale == 0 {
		scale = float64(total) / float64(parts)
	}
	weights := make([]float64, parts)
	for i := range weights {
		weights[i] = rng.ExpFloat64() * scale
	}
	return normalizeToTotal(weights, total), nil
}

// PoissonStrategy draws part weights from a Poisson distribution.
type PoissonStrategy struct {
	// Lambda is the distribution mean; zero means total/parts.
	Lambda float64
}

func (s PoissonStrategy) Divide(rng *rand.Rand, total, parts int) ([]int, error) {
	lambda := s.Lambda
	if lambda == 0 {
		lambda = float64(total) / float64(parts)
	}
	weights := make([]float64, parts)
	for i := range weights {
		weights[i] = float64(poisson(rng, lambda))
	}
	return normalizeToTotal(weights, total), nil
}

// poisson samples via Knuth's product-of-uniforms method, chunked so large
// lambdas do not underflow.
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	const chunk = 500.0
	k := 0
	remaining := lambda
	for remaining > 0 {
		step := math.Min(remaining, chunk)
		limit := math.Exp(-step)
		p := 1.0
		for {
			p *= rng.Float64()
			if p <= limit {
				break
			}
			k++
		}
		remaining -= step
	}
	return k
}

// normalizeToTotal converts real-valued weights into integer parts summing
// to total, pushing rounding error into the last part.
func normalizeToTotal(weights []float64, total int) []int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	out := make([]int, len(weights))
	if sum <= 0 {
		if len(out) > 0 {
			out[len(out)-1] = total
		}
		return out
	}
	allotted := 0
	for i, w := range weights {
		v := int(w / sum * float64(total))
		if v < 0 {
			v = 0
		}
		out[i] = v
		allotted += v
	}
	if len(out) > 0 {
		out[len(out)-1] += total - allotted
	}
	return out
}
