package attempt

import "math"

// Weighted reports a score/max pair scaled by the activity's weight
// multiplier, for cross-activity aggregation.
type Weighted struct {
	Score    int `json:"score"`
	MaxScore int `json:"max_score"`
	// Percent is rounded to two decimals; nil when MaxScore is 0.
	Percent *float64 `json:"percent"`
}

// Weigh applies the multiplier to a raw score/max pair. The multiplier is
// trusted as stored (clamped to [1,100] at activity creation).
func Weigh(score, maxScore, multiplier int) Weighted {
	w := Weighted{
		Score:    score * multiplier,
		MaxScore: maxScore * multiplier,
	}
	if w.MaxScore > 0 {
		p := round2(float64(w.Score) / float64(w.MaxScore) * 100)
		w.Percent = &p
	}
	return w
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
