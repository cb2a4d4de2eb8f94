package models

// MaxGoals is the largest per-team goal count held in a ScoreDistribution
const MaxGoals = 8

// Outcome is a match result from the home side's perspective
type Outcome int

const (
	OutcomeHome Outcome = iota
	OutcomeDraw
	OutcomeAway
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "home"
	case OutcomeDraw:
		return "draw"
	case OutcomeAway:
		return "away"
	}
	return "unknown"
}

// OutcomeFromScore maps a final score to its outcome
func OutcomeFromScore(homeGoals, awayGoals int) Outcome {
	switch {
	case homeGoals > awayGoals:
		return OutcomeHome
	case homeGoals < awayGoals:
		return OutcomeAway
	}
	return OutcomeDraw
}

// Score is a final scoreline
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Less orders scores by natural tuple order
func (s Score) Less(o Score) bool {
	if s.Home != o.Home {
		return s.Home < o.Home
	}
	return s.Away < o.Away
}

// ScoreDistribution is the joint probability table over (home goals, away goals).
// Cells[h][a] holds P(home=h, away=a).
type ScoreDistribution struct {
	ExpectedHomeGoals float64                             `json:"expected_home_goals"`
	ExpectedAwayGoals float64                             `json:"expected_away_goals"`
	Cells             [MaxGoals + 1][MaxGoals + 1]float64 `json:"cells"`
}

// Cell returns P(home=h, away=a), zero outside the table
func (d *ScoreDistribution) Cell(h, a int) float64 {
	if h < 0 || a < 0 || h > MaxGoals || a > MaxGoals {
		return 0
	}
	return d.Cells[h][a]
}

// Total returns the sum of all cells
func (d *ScoreDistribution) Total() float64 {
	total := 0.0
	for h := 0; h <= MaxGoals; h++ {
		for a := 0; a <= MaxGoals; a++ {
			total += d.Cells[h][a]
		}
	}
	return total
}

// Normalize rescales the table to sum to one
func (d *ScoreDistribution) Normalize() {
	total := d.Total()
	if total <= 0 {
		return
	}
	for h := 0; h <= MaxGoals; h++ {
		for a := 0; a <= MaxGoals; a++ {
			d.Cells[h][a] /= total
		}
	}
}

// OutcomeProbabilities returns home win, draw and away win probabilities
func (d *ScoreDistribution) OutcomeProbabilities() (home, draw, away float64) {
	for h := 0; h <= MaxGoals; h++ {
		for a := 0; a <= MaxGoals; a++ {
			switch {
			case h > a:
				home += d.Cells[h][a]
			case h == a:
				draw += d.Cells[h][a]
			default:
				away += d.Cells[h][a]
			}
		}
	}
	return home, draw, away
}

// MostLikelyScore returns the modal scoreline; ties resolve to the lowest tuple
func (d *ScoreDistribution) MostLikelyScore() Score {
	best := Score{}
	bestP := -1.0
	for h := 0; h <= MaxGoals; h++ {
		for a := 0; a <= MaxGoals; a++ {
			if d.Cells[h][a] > bestP {
				bestP = d.Cells[h][a]
				best = Score{Home: h, Away: a}
			}
		}
	}
	return best
}

// Summary is the set of derived scalars of a ScoreDistribution
type Summary struct {
	HomeWinProb     float64 `json:"home_win_prob"`
	DrawProb        float64 `json:"draw_prob"`
	AwayWinProb     float64 `json:"away_win_prob"`
	MostLikelyScore Score   `json:"most_likely_score"`
}

// Summarize computes the derived scalars
func (d *ScoreDistribution) Summarize() Summary {
	h, dr, a := d.OutcomeProbabilities()
	return Summary{
		HomeWinProb:     h,
		DrawProb:        dr,
		AwayWinProb:     a,
		MostLikelyScore: d.MostLikelyScore(),
	}
}
