package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
	"alfredoptarigan/ats-scanner/internal/models"
)

const (
	analysisTemperature = 0.3

	parsingMilestone   = "Parsing document structure..."
	detectingMilestone = "Detecting best-fit role..."
	uploadingMilestone = "Uploading resume to analysis engine..."

	defaultCandidateName = "Unknown"
	defaultSummary       = "No summary"
	defaultInstitution   = "Unknown"
	stringSkillCategory  = "Technical"
)

// DocumentGenerator sends a document and a prompt to a generative model.
type DocumentGenerator interface {
	GenerateFromDocument(ctx context.Context, prompt string, data []byte, mimeType string, temperature float32) (string, error)
}

// ResumeAnalyzer implements Analyzer on top of a generative model, the local
// PDF parser and the deterministic keyword and formatting scores.
type ResumeAnalyzer struct {
	generator     DocumentGenerator
	pdfParser     PDFParserService
	detector      *RoleDetector
	reports       ReportService
	promptBuilder *PromptBuilder
	logger        *zap.Logger
	maxLogLength  int
}

type ResumeAnalyzerOptions struct {
	Generator    DocumentGenerator
	PDFParser    PDFParserService
	Detector     *RoleDetector
	Reports      ReportService
	Logger       *zap.Logger
	MaxLogLength int
}

func NewResumeAnalyzer(opts ResumeAnalyzerOptions) *ResumeAnalyzer {
	parser := opts.PDFParser
	if parser == nil {
		parser = NewPDFParserService()
	}
	maxLog := opts.MaxLogLength
	if maxLog <= 0 {
		maxLog = 200
	}

	return &ResumeAnalyzer{
		generator:     opts.Generator,
		pdfParser:     parser,
		detector:      opts.Detector,
		reports:       opts.Reports,
		promptBuilder: NewPromptBuilder(),
		logger:        logger.WithFields(opts.Logger, zap.String("component", "analyzer")),
		maxLogLength:  maxLog,
	}
}

func (a *ResumeAnalyzer) Analyze(ctx context.Context, payload *models.FilePayload, onMilestone func(label string)) (*models.AnalysisRecord, error) {
	if onMilestone == nil {
		onMilestone = func(string) {}
	}
	log := a.logger.With(zap.String("file", payload.FileName), zap.String("mime_type", payload.MimeType))

	onMilestone(parsingMilestone)
	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return nil, &AnalysisError{Stage: "decode", Message: "Resume could not be read.", Err: err}
	}

	text := ""
	if payload.MimeType == models.MimePDF {
		content, err := a.pdfParser.ExtractText(data)
		if err != nil {
			log.Warn("local text extraction failed, relying on the model", zap.Error(err))
		} else {
			text = content.Text
			log.Debug("extracted resume text", zap.Int("pages", content.PageCount), zap.Int("chars", len(text)))
		}
	}

	onMilestone(detectingMilestone)
	role := a.detector.Detect(ctx, text)
	log.Info("target role selected", zap.String("role", role.ID))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	onMilestone(uploadingMilestone)
	prompt := a.promptBuilder.BuildResumeAnalysisPrompt(role, text)

	onMilestone(fmt.Sprintf("Analyzing resume against %s...", role.Title))
	response, err := a.generator.GenerateFromDocument(ctx, prompt, data, payload.MimeType, analysisTemperature)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &AnalysisError{Stage: "generate", Message: "The analysis service is unavailable. Please try again.", Err: err}
	}

	record, aiScore, err := parseAnalysisResponse(response)
	if err != nil {
		log.Error("failed to parse analysis response",
			zap.Error(err),
			zap.String("response", logger.TruncateForLog(response, a.maxLogLength)),
		)
		return nil, &AnalysisError{Stage: "parse", Message: "AI response parsing failed", Err: err}
	}

	a.applyScores(record, role, text, aiScore)
	applyRecordDefaults(record, role)

	if a.reports != nil {
		a.attachReport(ctx, record, role, aiScore)
	}

	log.Info("analysis finished",
		zap.Int("ats_score", record.ATSScore),
		zap.Float64("ai_score", aiScore),
	)
	return record, nil
}

func (a *ResumeAnalyzer) applyScores(record *models.AnalysisRecord, role models.Role, text string, aiScore float64) {
	scored := text
	if strings.TrimSpace(scored) == "" {
		scored = recordText(record)
	}

	keywordScore, missing := KeywordDensity(scored, role.Keywords)
	formatting := FormattingScore(scored)
	final := BlendATSScore(aiScore, keywordScore, formatting)

	record.KeywordMatchScore = &keywordScore
	record.FinalATSScore = &final
	record.ATSScore = ClampScore(final)
	if len(record.MissingKeywords) == 0 {
		record.MissingKeywords = missing
	}
}

func (a *ResumeAnalyzer) attachReport(ctx context.Context, record *models.AnalysisRecord, role models.Role, aiScore float64) {
	data := ReportData{
		GeneratedAt:   time.Now(),
		CandidateName: record.CandidateName,
		TargetRole:    role.Title,
		AIScore:       aiScore,
		Strengths:     record.Strengths,
		Improvements:  record.ImprovementSuggestions,
	}
	if record.FinalATSScore != nil {
		data.FinalScore = *record.FinalATSScore
	}
	if record.KeywordMatchScore != nil {
		data.KeywordMatch = *record.KeywordMatchScore
	}

	name, err := a.reports.Generate(ctx, data)
	if err != nil {
		a.logger.Warn("report generation failed", zap.Error(err))
		return
	}
	record.ReportFile = name
}

// recordText rebuilds scoreable text from the model output when the upload
// carried no extractable text.
func recordText(record *models.AnalysisRecord) string {
	parts := []string{record.Summary}
	for _, s := range record.Skills {
		parts = append(parts, s.Name)
	}
	parts = append(parts, record.ExperienceHighlights...)
	return strings.Join(parts, "\n")
}

func applyRecordDefaults(record *models.AnalysisRecord, role models.Role) {
	if strings.TrimSpace(record.BestRole) == "" {
		record.BestRole = role.Title
	}
	if strings.TrimSpace(record.CandidateName) == "" {
		record.CandidateName = defaultCandidateName
	}
	if strings.TrimSpace(record.Summary) == "" {
		record.Summary = defaultSummary
	}
	skills := record.Skills[:0]
	for _, s := range record.Skills {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		if strings.TrimSpace(s.Category) == "" {
			s.Category = models.DefaultSkillCategory
		}
		skills = append(skills, s)
	}
	record.Skills = skills
}

// parseAnalysisResponse decodes the model output into a record and returns
// the raw model score alongside it.
func parseAnalysisResponse(response string) (*models.AnalysisRecord, float64, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(extractJSON(response)), &raw); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if raw == nil {
		return nil, 0, fmt.Errorf("analysis response is empty")
	}

	aiScore := normalizeAnalysisResponse(raw)

	var record models.AnalysisRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &record,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode analysis: %w", err)
	}

	return &record, aiScore, nil
}

// normalizeAnalysisResponse rewrites the loosely shaped fields models tend
// to return and yields the model score clamped to [0,100].
func normalizeAnalysisResponse(raw map[string]interface{}) float64 {
	score := toFloat(raw["atsScore"])
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	raw["atsScore"] = score

	if items, ok := raw["skills"].([]interface{}); ok {
		skills := make([]interface{}, 0, len(items))
		for _, item := range items {
			switch v := item.(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					skills = append(skills, map[string]interface{}{"name": v, "category": stringSkillCategory})
				}
			case map[string]interface{}:
				skills = append(skills, v)
			}
		}
		raw["skills"] = skills
	} else {
		delete(raw, "skills")
	}

	if items, ok := raw["education"].([]interface{}); ok {
		education := make([]interface{}, 0, len(items))
		for _, item := range items {
			switch v := item.(type) {
			case string:
				education = append(education, v)
			case map[string]interface{}:
				education = append(education, formatEducation(v))
			}
		}
		raw["education"] = education
	}

	return score
}

func formatEducation(entry map[string]interface{}) string {
	str := func(v interface{}) string {
		if v == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}

	inst := str(entry["institution"])
	if inst == "" {
		inst = defaultInstitution
	}

	years := ""
	if span, ok := entry["years"].([]interface{}); ok && len(span) == 2 {
		years = fmt.Sprintf(" (%s-%s)", str(span[0]), str(span[1]))
	} else if start, end := str(entry["start"]), str(entry["end"]); start != "" || end != "" {
		years = fmt.Sprintf(" (%s-%s)", start, end)
	}

	return strings.TrimSpace(fmt.Sprintf("%s from %s%s", str(entry["degree"]), inst, years))
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}
