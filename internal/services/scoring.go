package services

import (
	"math"
	"strings"
)

const (
	aiScoreWeight         = 0.6
	keywordScoreWeight    = 0.25
	formattingScoreWeight = 0.15

	shortResumeChars   = 500
	minResumeLines     = 10
	shortResumePenalty = 30
	fewLinesPenalty    = 20
	minFormattingScore = 40
	maxFormattingScore = 100
)

// KeywordDensity returns the share of keywords found in text as a
// percentage rounded to two decimals, plus the keywords that were missing.
func KeywordDensity(text string, keywords []string) (float64, []string) {
	if len(keywords) == 0 {
		return 0, nil
	}

	lower := strings.ToLower(text)
	matched := 0
	missing := make([]string, 0)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched++
			continue
		}
		missing = append(missing, kw)
	}

	return round2(float64(matched) / float64(len(keywords)) * 100), missing
}

// FormattingScore penalizes short resumes and resumes with little structure.
func FormattingScore(text string) int {
	score := maxFormattingScore
	if len(text) < shortResumeChars {
		score -= shortResumePenalty
	}
	if strings.Count(text, "\n") < minResumeLines {
		score -= fewLinesPenalty
	}
	if score < minFormattingScore {
		score = minFormattingScore
	}
	return score
}

// BlendATSScore combines the model score with the deterministic scores.
func BlendATSScore(aiScore, keywordScore float64, formattingScore int) float64 {
	return round2(aiScore*aiScoreWeight + keywordScore*keywordScoreWeight + float64(formattingScore)*formattingScoreWeight)
}

// ClampScore truncates a blended score to an integer in [0,100].
func ClampScore(score float64) int {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
