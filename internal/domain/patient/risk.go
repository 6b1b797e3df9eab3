package patient

// Risk classification labels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Scorer computes the additive stroke risk score and classifies it against
// configured thresholds. Medium must be strictly below High; config
// validation enforces that before a Scorer is ever built.
type Scorer struct {
	medium int
	high   int
}

func NewScorer(medium, high int) *Scorer {
	return &Scorer{medium: medium, high: high}
}

// Score sums the risk contributions of each medical attribute and clamps
// the result to 100. Age and glucose brackets are exclusive at their lower
// bound: age 60 scores as the 45-60 bracket, glucose 120 scores zero.
func (s *Scorer) Score(a Attributes) int {
	score := 0

	switch {
	case a.Age > 60:
		score += 30
	case a.Age > 45:
		score += 15
	}

	if a.Hypertension == 1 {
		score += 25
	}
	if a.HeartDisease == 1 {
		score += 20
	}

	switch {
	case a.AvgGlucoseLevel > 150:
		score += 15
	case a.AvgGlucoseLevel > 120:
		score += 8
	}

	switch {
	case a.BMI > 30:
		score += 10
	case a.BMI > 25:
		score += 5
	}

	switch a.SmokingStatus {
	case "Smokes":
		score += 10
	case "Formerly smoked":
		score += 5
	}

	if a.Stroke == 1 {
		score += 30
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Classify maps a score onto the three-tier labels. Thresholds are
// inclusive: a score equal to the high threshold is high.
func (s *Scorer) Classify(score int) string {
	switch {
	case score >= s.high:
		return RiskHigh
	case score >= s.medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Evaluate scores and classifies in one call.
func (s *Scorer) Evaluate(a Attributes) (int, string) {
	score := s.Score(a)
	return score, s.Classify(score)
}

// Recommendations returns the care guidance shown alongside a prediction,
// keyed off the classified tier.
func Recommendations(level string) []string {
	switch level {
	case RiskHigh:
		return []string{
			"Schedule an appointment with a doctor as soon as possible",
			"Monitor blood pressure daily",
			"Review medications with your physician",
			"Adopt a low-sodium diet",
		}
	case RiskMedium:
		return []string{
			"Schedule a routine check-up within the next month",
			"Maintain regular physical activity",
			"Monitor blood glucose levels",
		}
	default:
		return []string{
			"Maintain a healthy lifestyle",
			"Keep up with annual check-ups",
		}
	}
}
