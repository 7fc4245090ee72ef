package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"alfredoptarigan/ats-scanner/internal/models"
)

// maxPromptResumeChars caps the resume text sent to the model, in runes.
const maxPromptResumeChars = 30000

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildResumeAnalysisPrompt asks for the analysis of the attached resume
// against role. resumeText is the locally extracted text and may be empty
// for image uploads.
func (pb *PromptBuilder) BuildResumeAnalysisPrompt(role models.Role, resumeText string) string {
	extracted := "(no text could be extracted locally; read the attached document)"
	if text := strings.TrimSpace(resumeText); text != "" {
		extracted = truncateRunes(text, maxPromptResumeChars)
	}

	return fmt.Sprintf(`You are an ATS (Applicant Tracking System) resume evaluator.
The candidate's resume is attached. Evaluate it for the role: %s

ROLE DESCRIPTION:
%s

KEY SKILLS FOR THIS ROLE:
%s

SECTION WEIGHTS (out of 100):
%s

EXTRACTED RESUME TEXT:
%s

Return ONLY valid JSON in exactly this format:
{
  "atsScore": <number 0-100>,
  "bestRole": "%s",
  "candidateName": "<full name of the candidate>",
  "summary": "<2-3 sentence professional summary>",
  "skills": [{"name": "<skill>", "category": "<Technical | Soft Skills | Tools | Languages | Other>"}],
  "experienceHighlights": ["<highlight>"],
  "education": ["<degree> from <institution> (<start>-<end>)"],
  "strengths": ["<strength>"],
  "weaknesses": ["<weakness>"],
  "improvementSuggestions": ["<most important suggestion first>"],
  "missing_keywords": ["<important keyword absent from the resume>"],
  "section_scores": {"skills": 0, "experience": 0, "education": 0, "formatting": 0, "relevance": 0}
}

Score each section up to its weight. Be objective and cite concrete evidence from the resume.`,
		role.Title,
		role.Description,
		strings.Join(role.Keywords, ", "),
		formatWeights(role.Weights),
		extracted,
		role.Title,
	)
}

var weightOrder = []string{"skills", "experience", "education", "formatting", "relevance"}

func formatWeights(weights map[string]int) string {
	var sb strings.Builder
	for _, section := range weightOrder {
		if w, ok := weights[section]; ok {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", section, w))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// truncateRunes keeps at most n runes of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
