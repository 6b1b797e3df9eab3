package analytics

import (
	"github.com/strokecare/api/internal/domain/patient"
)

// Dashboard summarizes the whole patient population for the reporting UI.
type Dashboard struct {
	TotalPatients      int            `json:"total_patients"`
	StrokeCases        int            `json:"stroke_cases"`
	RiskDistribution   map[string]int `json:"risk_distribution"`
	GenderDistribution map[string]int `json:"gender_distribution"`
	AgeStats           AgeStats       `json:"age_stats"`
	AvgGlucose         float64        `json:"avg_glucose"`
	AvgBMI             float64        `json:"avg_bmi"`
	HypertensionCases  int            `json:"hypertension_cases"`
	HeartDiseaseCases  int            `json:"heart_disease_cases"`
}

// AgeStats carries the population age spread. Zero values when there are
// no records.
type AgeStats struct {
	Average float64 `json:"average"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// RiskFactors breaks the population down by the major scored conditions.
type RiskFactors struct {
	HypertensionCases   int            `json:"hypertension_cases"`
	HeartDiseaseCases   int            `json:"heart_disease_cases"`
	SmokingDistribution map[string]int `json:"smoking_distribution"`
}

// PracticeStats is the doctor-facing summary: tier, age-band and gender
// distributions over the population.
type PracticeStats struct {
	TotalPatients      int            `json:"total_patients"`
	RiskDistribution   map[string]int `json:"risk_distribution"`
	AgeDistribution    map[string]int `json:"age_distribution"`
	GenderDistribution map[string]int `json:"gender_distribution"`
	AverageAge         float64        `json:"average_age"`
	StrokeCases        int            `json:"stroke_cases"`
	HypertensionCases  int            `json:"hypertension_cases"`
	HeartDiseaseCases  int            `json:"heart_disease_cases"`
}

// BuildDashboard aggregates records into the dashboard summary.
func BuildDashboard(records []*patient.Record) *Dashboard {
	d := &Dashboard{
		TotalPatients:      len(records),
		RiskDistribution:   map[string]int{},
		GenderDistribution: map[string]int{},
	}

	var ageSum, glucoseSum, bmiSum float64
	for i, r := range records {
		if r.Stroke == 1 {
			d.StrokeCases++
		}
		if r.Hypertension == 1 {
			d.HypertensionCases++
		}
		if r.HeartDisease == 1 {
			d.HeartDiseaseCases++
		}
		d.RiskDistribution[r.RiskLevel]++
		d.GenderDistribution[r.Gender]++

		ageSum += float64(r.Age)
		glucoseSum += r.AvgGlucoseLevel
		bmiSum += r.BMI
		if i == 0 || r.Age < d.AgeStats.Min {
			d.AgeStats.Min = r.Age
		}
		if r.Age > d.AgeStats.Max {
			d.AgeStats.Max = r.Age
		}
	}

	if n := float64(len(records)); n > 0 {
		d.AgeStats.Average = ageSum / n
		d.AvgGlucose = glucoseSum / n
		d.AvgBMI = bmiSum / n
	}
	return d
}

// BuildRiskFactors aggregates records into the condition breakdown.
func BuildRiskFactors(records []*patient.Record) *RiskFactors {
	rf := &RiskFactors{SmokingDistribution: map[string]int{}}
	for _, r := range records {
		if r.Hypertension == 1 {
			rf.HypertensionCases++
		}
		if r.HeartDisease == 1 {
			rf.HeartDiseaseCases++
		}
		rf.SmokingDistribution[r.SmokingStatus]++
	}
	return rf
}

// BuildPracticeStats aggregates records into the doctor-facing summary.
func BuildPracticeStats(records []*patient.Record) *PracticeStats {
	ps := &PracticeStats{
		TotalPatients: len(records),
		RiskDistribution: map[string]int{
			patient.RiskHigh: 0, patient.RiskMedium: 0, patient.RiskLow: 0,
		},
		AgeDistribution:    map[string]int{"under_40": 0, "40_59": 0, "over_60": 0},
		GenderDistribution: map[string]int{"male": 0, "female": 0, "other": 0},
	}

	var ageSum float64
	for _, r := range records {
		ps.RiskDistribution[r.RiskLevel]++

		switch {
		case r.Age < 40:
			ps.AgeDistribution["under_40"]++
		case r.Age <= 59:
			ps.AgeDistribution["40_59"]++
		default:
			ps.AgeDistribution["over_60"]++
		}

		switch r.Gender {
		case "Male":
			ps.GenderDistribution["male"]++
		case "Female":
			ps.GenderDistribution["female"]++
		default:
			ps.GenderDistribution["other"]++
		}

		if r.Stroke == 1 {
			ps.StrokeCases++
		}
		if r.Hypertension == 1 {
			ps.HypertensionCases++
		}
		if r.HeartDisease == 1 {
			ps.HeartDiseaseCases++
		}
		ageSum += float64(r.Age)
	}

	if len(records) > 0 {
		ps.AverageAge = ageSum / float64(len(records))
	}
	return ps
}
