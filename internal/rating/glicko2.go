package rating

import "math"

// Glicko-2 single-game update (Glickman, "Example of the Glicko-2 system").
// One rated game is treated as a rating period containing exactly one result,
// which is how the arena applies updates immediately at game end.

const (
	scale = 173.7178
	tau   = 0.5
	eps   = 1e-6

	DefaultRating     = 1500.0
	DefaultDeviation  = 350.0
	DefaultVolatility = 0.06
)

// Rating is a player's Glicko-2 triple on the public (1500-centered) scale.
type Rating struct {
	R   float64
	RD  float64
	Vol float64
}

// Score values for an outcome from a given side's perspective.
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// Update returns the post-game ratings for both sides. scoreA is the result
// from a's perspective (1 win, 0.5 draw, 0 loss).
func Update(a, b Rating, scoreA float64) (Rating, Rating) {
	na := updateOne(a, b, scoreA)
	nb := updateOne(b, a, 1-scoreA)
	return na, nb
}

func updateOne(p, opp Rating, score float64) Rating {
	mu := (p.R - DefaultRating) / scale
	phi := p.RD / scale
	muJ := (opp.R - DefaultRating) / scale
	phiJ := opp.RD / scale

	gj := g(phiJ)
	ej := expected(mu, muJ, phiJ)

	v := 1 / (gj * gj * ej * (1 - ej))
	delta := v * gj * (score - ej)

	sigma := newVolatility(phi, v, delta, p.Vol)

	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*gj*(score-ej)

	return Rating{
		R:   muPrime*scale + DefaultRating,
		RD:  phiPrime * scale,
		Vol: sigma,
	}
}

func g(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

func expected(mu, muJ, phiJ float64) float64 {
	return 1 / (1 + math.Exp(-g(phiJ)*(mu-muJ)))
}

// newVolatility runs the iterative volatility update from the Glicko-2 paper
// (regula falsi on f over ln(sigma^2)).
func newVolatility(phi, v, delta, sigma float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d2 := delta * delta
		p2 := phi * phi
		num := ex * (d2 - p2 - v - ex)
		den := 2 * (p2 + v + ex) * (p2 + v + ex)
		return num/den - (x-a)/(tau*tau)
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
		}
		B = a - k*tau
	}

	fA, fB := f(A), f(B)
	for math.Abs(B-A) > eps {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}
