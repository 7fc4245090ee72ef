package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DefaultSkillCategory is the bucket used for skills that carry no category.
const DefaultSkillCategory = "Other"

type Skill struct {
	Name     string `json:"name" mapstructure:"name"`
	Category string `json:"category" mapstructure:"category"`
}

// SkillList tolerates malformed "skills" values in stored or generated
// records: anything that is not an array decodes to nil, bare strings become
// skills without a category and other element shapes are dropped.
type SkillList []Skill

func (l *SkillList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		*l = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		*l = nil
		return nil
	}

	out := make(SkillList, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, Skill{Name: name})
			}
			continue
		}

		var skill Skill
		if err := json.Unmarshal(item, &skill); err != nil {
			continue
		}
		if strings.TrimSpace(skill.Name) == "" {
			continue
		}
		out = append(out, skill)
	}

	*l = out
	return nil
}

// AnalysisRecord is the result of one completed resume analysis.
type AnalysisRecord struct {
	ATSScore               int       `json:"atsScore" mapstructure:"atsScore"`
	BestRole               string    `json:"bestRole" mapstructure:"bestRole"`
	CandidateName          string    `json:"candidateName" mapstructure:"candidateName"`
	Summary                string    `json:"summary" mapstructure:"summary"`
	Skills                 SkillList `json:"skills" mapstructure:"skills"`
	ExperienceHighlights   []string  `json:"experienceHighlights" mapstructure:"experienceHighlights"`
	Education              []string  `json:"education" mapstructure:"education"`
	Strengths              []string  `json:"strengths" mapstructure:"strengths"`
	Weaknesses             []string  `json:"weaknesses" mapstructure:"weaknesses"`
	ImprovementSuggestions []string  `json:"improvementSuggestions" mapstructure:"improvementSuggestions"`

	// Extended scoring fields; absent on older records.
	SectionScores     map[string]float64 `json:"section_scores,omitempty" mapstructure:"section_scores"`
	KeywordMatchScore *float64           `json:"keyword_match_score,omitempty" mapstructure:"keyword_match_score"`
	FinalATSScore     *float64           `json:"final_ats_score,omitempty" mapstructure:"final_ats_score"`
	ReportFile        string             `json:"report_file,omitempty" mapstructure:"report_file"`
	MissingKeywords   []string           `json:"missing_keywords,omitempty" mapstructure:"missing_keywords"`
}

// Clone returns a deep copy so callers never share slices with the owner.
func (r *AnalysisRecord) Clone() *AnalysisRecord {
	if r == nil {
		return nil
	}

	out := *r
	out.Skills = cloneSlice(r.Skills)
	out.ExperienceHighlights = cloneSlice(r.ExperienceHighlights)
	out.Education = cloneSlice(r.Education)
	out.Strengths = cloneSlice(r.Strengths)
	out.Weaknesses = cloneSlice(r.Weaknesses)
	out.ImprovementSuggestions = cloneSlice(r.ImprovementSuggestions)
	out.MissingKeywords = cloneSlice(r.MissingKeywords)

	if r.SectionScores != nil {
		out.SectionScores = make(map[string]float64, len(r.SectionScores))
		for k, v := range r.SectionScores {
			out.SectionScores[k] = v
		}
	}
	if r.KeywordMatchScore != nil {
		v := *r.KeywordMatchScore
		out.KeywordMatchScore = &v
	}
	if r.FinalATSScore != nil {
		v := *r.FinalATSScore
		out.FinalATSScore = &v
	}

	return &out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
