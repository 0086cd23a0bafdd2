package rating

import (
	"math"
	"testing"
)

func defaults() Rating {
	return Rating{R: DefaultRating, RD: DefaultDeviation, Vol: DefaultVolatility}
}

func TestUpdate_WinnerGainsLoserDrops(t *testing.T) {
	a, b := Update(defaults(), defaults(), ScoreWin)
	if a.R <= DefaultRating {
		t.Fatalf("winner should gain rating, got %.2f", a.R)
	}
	if b.R >= DefaultRating {
		t.Fatalf("loser should drop rating, got %.2f", b.R)
	}
}

func TestUpdate_DrawBetweenEqualsIsNeutral(t *testing.T) {
	a, b := Update(defaults(), defaults(), ScoreDraw)
	if math.Abs(a.R-DefaultRating) > 1e-6 {
		t.Fatalf("equal draw should not move rating, got %.6f", a.R)
	}
	if math.Abs(a.R-b.R) > 1e-6 {
		t.Fatalf("symmetric update expected, got %.6f vs %.6f", a.R, b.R)
	}
}

func TestUpdate_DeviationShrinks(t *testing.T) {
	a, _ := Update(defaults(), defaults(), ScoreWin)
	if a.RD >= DefaultDeviation {
		t.Fatalf("playing a game should reduce deviation, got %.2f", a.RD)
	}
}

func TestUpdate_UpsetMovesMoreThanExpectedWin(t *testing.T) {
	strong := Rating{R: 1800, RD: 100, Vol: DefaultVolatility}
	weak := Rating{R: 1400, RD: 100, Vol: DefaultVolatility}

	_, weakAfterWin := Update(strong, weak, ScoreLoss)
	_, weakAfterLoss := Update(strong, weak, ScoreWin)

	gain := weakAfterWin.R - 1400
	drop := 1400 - weakAfterLoss.R
	if gain <= drop {
		t.Fatalf("upset win should outweigh expected loss: gain=%.2f drop=%.2f", gain, drop)
	}
}

func TestUpdate_VolatilityStaysBounded(t *testing.T) {
	a, b := Update(defaults(), defaults(), ScoreWin)
	for _, r := range []Rating{a, b} {
		if r.Vol <= 0 || r.Vol > 0.1 || math.IsNaN(r.Vol) {
			t.Fatalf("volatility out of range: %v", r.Vol)
		}
	}
}
