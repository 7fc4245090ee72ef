package services

import (
	"sort"
	"strings"

	"alfredoptarigan/ats-scanner/internal/models"
)

const (
	maxImprovementPotential = 25
	goodScoreThreshold      = 80
	fairScoreThreshold      = 60
)

// Aggregator derives chart-ready data from a completed analysis. It never
// mutates the record and performs no I/O.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Aggregate(record *models.AnalysisRecord) models.DashboardView {
	if record == nil {
		return models.DashboardView{
			ChartSeries:   []models.SkillCategoryBucket{},
			ScoreBand:     ScoreBandFor(0),
			SectionScores: []models.SectionScore{},
			Suggestions:   []models.RankedSuggestion{},
		}
	}

	return models.DashboardView{
		ChartSeries:          SkillCategorySeries(record.Skills),
		ImprovementPotential: ImprovementPotential(record.ATSScore),
		ScoreBand:            ScoreBandFor(record.ATSScore),
		SectionScores:        RankSectionScores(record.SectionScores),
		Suggestions:          RankSuggestions(record.ImprovementSuggestions),
	}
}

// SkillCategorySeries counts skills per category, most frequent first. Ties
// keep the order in which categories first appeared.
func SkillCategorySeries(skills []models.Skill) []models.SkillCategoryBucket {
	buckets := make([]models.SkillCategoryBucket, 0)
	index := make(map[string]int)

	for _, skill := range skills {
		category := strings.TrimSpace(skill.Category)
		if category == "" {
			category = models.DefaultSkillCategory
		}

		if i, ok := index[category]; ok {
			buckets[i].Count++
			continue
		}
		index[category] = len(buckets)
		buckets = append(buckets, models.SkillCategoryBucket{Category: category, Count: 1})
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Count > buckets[j].Count
	})
	return buckets
}

// ImprovementPotential is the gap to a perfect score, capped at 25 and never negative.
func ImprovementPotential(atsScore int) int {
	potential := 100 - atsScore
	if potential > maxImprovementPotential {
		potential = maxImprovementPotential
	}
	if potential < 0 {
		potential = 0
	}
	return potential
}

func ScoreBandFor(atsScore int) models.ScoreBand {
	switch {
	case atsScore >= goodScoreThreshold:
		return models.ScoreBandGood
	case atsScore >= fairScoreThreshold:
		return models.ScoreBandFair
	default:
		return models.ScoreBandPoor
	}
}

// RankSectionScores orders section scores highest first, ties by name.
func RankSectionScores(scores map[string]float64) []models.SectionScore {
	out := make([]models.SectionScore, 0, len(scores))
	for section, score := range scores {
		out = append(out, models.SectionScore{Section: section, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Section < out[j].Section
	})
	return out
}

func RankSuggestions(suggestions []string) []models.RankedSuggestion {
	out := make([]models.RankedSuggestion, 0, len(suggestions))
	for _, text := range suggestions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, models.RankedSuggestion{Rank: len(out) + 1, Text: text})
	}
	return out
}
