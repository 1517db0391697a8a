package simulation

import (
	"math"
	"math/rand"

	"github.com/salesops/revenue-forecast/pkg/mathutil"
)

// uniformFloor guards uniform draws fed into log() or fractional powers
// against a hard zero.
const uniformFloor = 1e-12

// maxGammaAttempts caps the Marsaglia-Tsang acceptance loop.
const maxGammaAttempts = 1000

// Sampler draws the random variates used by the revenue model. Each Sampler
// owns its own source so that parallel workers sample from independent
// streams; nothing here touches the global generator.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler over a source seeded with seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Uniform draws from U(0, 1).
func (s *Sampler) Uniform() float64 {
	return s.rng.Float64()
}

// Normal draws from N(mu, sigma^2) via the Box-Muller transform.
func (s *Sampler) Normal(mu, sigma float64) float64 {
	u1 := s.rng.Float64()
	if u1 < uniformFloor {
		u1 = uniformFloor
	}
	u2 := s.rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mu + sigma*z
}

// LogNormal draws exp(N(mu, sigma^2)).
func (s *Sampler) LogNormal(mu, sigma float64) float64 {
	return math.Exp(s.Normal(mu, sigma))
}

// Beta draws from Beta(alpha, beta) as x/(x+y) over two Gamma variates,
// clamped to [0.01, 0.99]. Non-positive shape parameters degenerate to 0.5;
// Beta(1, 1) is a raw uniform draw.
func (s *Sampler) Beta(alpha, beta float64) float64 {
	if alpha <= 0 || beta <= 0 {
		return 0.5
	}
	if alpha == 1 && beta == 1 {
		return s.rng.Float64()
	}
	x := s.Gamma(alpha)
	y := s.Gamma(beta)
	if x+y == 0 {
		return 0.5
	}
	return mathutil.Clamp(x/(x+y), 0.01, 0.99)
}

// Gamma draws from Gamma(shape, 1) with the Marsaglia-Tsang method. Shapes
// below 1 are boosted via Gamma(1+shape) * U^(1/shape). The acceptance loop
// runs at most maxGammaAttempts times; on exhaustion the last candidate is
// returned. That fallback introduces a small deterministic bias, which is
// acceptable for forecasting but worth knowing when testing tail behavior.
func (s *Sampler) Gamma(shape float64) float64 {
	if shape < 1 {
		u := s.rng.Float64()
		if u < uniformFloor {
			u = uniformFloor
		}
		return s.Gamma(1+shape) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)

	var candidate float64
	for i := 0; i < maxGammaAttempts; i++ {
		var x, v float64
		for {
			x = s.Normal(0, 1)
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		candidate = d * v

		u := s.rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return candidate
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return candidate
		}
	}
	return candidate
}

// Bernoulli draws true with probability p.
func (s *Sampler) Bernoulli(p float64) bool {
	return s.rng.Float64() < p
}
