package patient

import "testing"

func testScorer() *Scorer { return NewScorer(25, 50) }

func baseline() Attributes {
	return Attributes{
		Gender:          "Female",
		Age:             30,
		EverMarried:     "No",
		WorkType:        "Private",
		ResidenceType:   "Urban",
		AvgGlucoseLevel: 90,
		BMI:             22,
		SmokingStatus:   "Never smoked",
	}
}

func TestScoreBoundaries(t *testing.T) {
	s := testScorer()

	cases := []struct {
		name   string
		mutate func(*Attributes)
		want   int
	}{
		{"age 45 scores nothing", func(a *Attributes) { a.Age = 45 }, 0},
		{"age 46 enters first bracket", func(a *Attributes) { a.Age = 46 }, 15},
		{"age 60 stays in first bracket", func(a *Attributes) { a.Age = 60 }, 15},
		{"age 61 enters second bracket", func(a *Attributes) { a.Age = 61 }, 30},
		{"glucose 120 scores nothing", func(a *Attributes) { a.AvgGlucoseLevel = 120 }, 0},
		{"glucose 121 scores 8", func(a *Attributes) { a.AvgGlucoseLevel = 121 }, 8},
		{"glucose 150 scores 8", func(a *Attributes) { a.AvgGlucoseLevel = 150 }, 8},
		{"glucose 151 scores 15", func(a *Attributes) { a.AvgGlucoseLevel = 151 }, 15},
		{"bmi 25 scores nothing", func(a *Attributes) { a.BMI = 25 }, 0},
		{"bmi 26 scores 5", func(a *Attributes) { a.BMI = 26 }, 5},
		{"bmi 30 scores 5", func(a *Attributes) { a.BMI = 30 }, 5},
		{"bmi 31 scores 10", func(a *Attributes) { a.BMI = 31 }, 10},
		{"hypertension adds 25", func(a *Attributes) { a.Hypertension = 1 }, 25},
		{"heart disease adds 20", func(a *Attributes) { a.HeartDisease = 1 }, 20},
		{"current smoker adds 10", func(a *Attributes) { a.SmokingStatus = "Smokes" }, 10},
		{"former smoker adds 5", func(a *Attributes) { a.SmokingStatus = "Formerly smoked" }, 5},
		{"prior stroke adds 30", func(a *Attributes) { a.Stroke = 1 }, 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := baseline()
			tc.mutate(&a)
			if got := s.Score(a); got != tc.want {
				t.Errorf("Score() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreScenarios(t *testing.T) {
	s := testScorer()

	// 67 years old, hypertensive, glucose 145, BMI 28.1, former smoker.
	a := baseline()
	a.Age = 67
	a.Hypertension = 1
	a.AvgGlucoseLevel = 145
	a.BMI = 28.1
	a.SmokingStatus = "Formerly smoked"

	score, level := s.Evaluate(a)
	if score != 73 {
		t.Errorf("score = %d, want 73", score)
	}
	if level != RiskHigh {
		t.Errorf("level = %q, want %q", level, RiskHigh)
	}

	// 45 years old, glucose 95, BMI 26.5, never smoked.
	b := baseline()
	b.Age = 45
	b.AvgGlucoseLevel = 95
	b.BMI = 26.5

	score, level = s.Evaluate(b)
	if score != 5 {
		t.Errorf("score = %d, want 5", score)
	}
	if level != RiskLow {
		t.Errorf("level = %q, want %q", level, RiskLow)
	}
}

func TestScoreClampedAt100(t *testing.T) {
	s := testScorer()
	a := baseline()
	a.Age = 80
	a.Hypertension = 1
	a.HeartDisease = 1
	a.AvgGlucoseLevel = 200
	a.BMI = 35
	a.SmokingStatus = "Smokes"
	a.Stroke = 1

	if got := s.Score(a); got != 100 {
		t.Errorf("Score() = %d, want clamp at 100", got)
	}
}

func TestClassifyThresholdsInclusive(t *testing.T) {
	s := testScorer()

	cases := []struct {
		score int
		want  string
	}{
		{0, RiskLow},
		{24, RiskLow},
		{25, RiskMedium},
		{49, RiskMedium},
		{50, RiskHigh},
		{100, RiskHigh},
	}
	for _, tc := range cases {
		if got := s.Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	s := testScorer()
	rank := map[string]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

	prev := 0
	for score := 0; score <= 100; score++ {
		r := rank[s.Classify(score)]
		if r < prev {
			t.Fatalf("classification regressed at score %d", score)
		}
		prev = r
	}
}

func TestAttributesValidate(t *testing.T) {
	a := baseline()
	if err := a.Validate(); err != nil {
		t.Fatalf("valid attributes rejected: %v", err)
	}

	a.Age = 130
	a.Hypertension = 2
	a.Gender = "X"
	err := a.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
}
