package models

type SkillCategoryBucket struct {
	Category string `json:"name"`
	Count    int    `json:"value"`
}

type SectionScore struct {
	Section string  `json:"section"`
	Score   float64 `json:"score"`
}

type RankedSuggestion struct {
	Rank int    `json:"rank"`
	Text string `json:"text"`
}

type ScoreBand string

const (
	ScoreBandGood ScoreBand = "good"
	ScoreBandFair ScoreBand = "fair"
	ScoreBandPoor ScoreBand = "poor"
)

// DashboardView is the chart-ready data derived from an AnalysisRecord.
type DashboardView struct {
	ChartSeries          []SkillCategoryBucket `json:"chartSeries"`
	ImprovementPotential int                   `json:"improvementPotential"`
	ScoreBand            ScoreBand             `json:"scoreBand"`
	SectionScores        []SectionScore        `json:"sectionScores"`
	Suggestions          []RankedSuggestion    `json:"suggestions"`
}
