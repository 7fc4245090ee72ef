package services

import (
	"math"
	"strings"

	"alfredoptarigan/ats-scanner/internal/models"
)

const (
	// ProgressCeiling is the highest value the tick can reach on its own.
	ProgressCeiling  = 92.0
	ProgressComplete = 100.0

	progressTarget  = 95.0
	progressDivisor = 40.0
	minProgressStep = 0.2
)

// milestoneFloors is checked in order; every matching substring applies.
var milestoneFloors = []struct {
	substr string
	floor  float64
}{
	{substr: "Parsing", floor: 10},
	{substr: "Uploading", floor: 20},
	{substr: "Analyzing", floor: 40},
}

// ProgressEstimator produces the synthetic progress value shown while an
// analysis is running. It is not safe for concurrent use; the workflow owns it.
type ProgressEstimator struct {
	value float64
}

func NewProgressEstimator() *ProgressEstimator {
	return &ProgressEstimator{}
}

func (p *ProgressEstimator) Value() float64 {
	return p.value
}

func (p *ProgressEstimator) Reset() {
	p.value = 0
}

// Tick advances toward the ceiling with a decelerating step of at least 0.2.
func (p *ProgressEstimator) Tick() float64 {
	if p.value >= ProgressCeiling {
		return p.value
	}
	step := math.Max(minProgressStep, (progressTarget-p.value)/progressDivisor)
	p.value = math.Min(ProgressCeiling, p.value+step)
	return p.value
}

// Milestone raises the value to the floor implied by label. It never lowers it.
func (p *ProgressEstimator) Milestone(label string) float64 {
	if floor := MilestoneFloor(label); floor > p.value {
		p.value = floor
	}
	return p.value
}

func (p *ProgressEstimator) Complete() float64 {
	p.value = ProgressComplete
	return p.value
}

// MilestoneFloor returns the progress floor a milestone label implies, or 0.
func MilestoneFloor(label string) float64 {
	var floor float64
	for _, m := range milestoneFloors {
		if strings.Contains(label, m.substr) && m.floor > floor {
			floor = m.floor
		}
	}
	return floor
}

var stepLabels = []string{
	"Parsing Document Structure",
	"Extracting Skills & Experience",
	"Matching with Market Roles",
	"Generating ATS Score & Insights",
}

var stepThresholds = []float64{0, 25, 50, 75, 95}

// ProgressSteps maps a progress value onto the analysis checklist. A step is
// completed once progress passes its upper bound and active while inside its band.
func ProgressSteps(progress float64) []models.AnalysisStep {
	steps := make([]models.AnalysisStep, len(stepLabels))
	last := len(stepLabels) - 1
	for i, label := range stepLabels {
		lower, upper := stepThresholds[i], stepThresholds[i+1]
		active := progress > lower && progress <= upper
		switch i {
		case 0:
			active = progress <= upper
		case last:
			active = progress > lower
		}
		steps[i] = models.AnalysisStep{
			Label:     label,
			Completed: progress > upper,
			Active:    active,
		}
	}
	return steps
}
