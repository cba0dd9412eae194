package models

import "time"

// GradeStatus is the derived state of one classwork item for one student.
type GradeStatus string

const (
	StatusAssigned  GradeStatus = "Assigned"
	StatusSubmitted GradeStatus = "Submitted"
	StatusGraded    GradeStatus = "Graded"
	StatusMissing   GradeStatus = "Missing"
)

// GradeSummaryItem is computed on read from a classwork item and the student's submission.
type GradeSummaryItem struct {
	ClassworkID string      `json:"classworkId"`
	Title       string      `json:"title"`
	Group       string      `json:"group"`
	Score       *float64    `json:"score"`
	Max         *float64    `json:"max"`
	Percent     *float64    `json:"percent"`
	Status      GradeStatus `json:"status"`
	Late        bool        `json:"late"`
	DueAt       *time.Time  `json:"dueAt"`
	SubmittedAt *time.Time  `json:"submittedAt"`
}

// CategoryAggregate sums scored items of one group.
type CategoryAggregate struct {
	Earned   float64  `json:"earned"`
	Possible float64  `json:"possible"`
	Percent  *float64 `json:"percent"`
}

// OverallAggregate sums scored items across all groups. Weighting is never applied.
type OverallAggregate struct {
	Earned           float64  `json:"earned"`
	Possible         float64  `json:"possible"`
	PercentRaw       *float64 `json:"percentRaw"`
	WeightingApplied bool     `json:"weightingApplied"`
}

// GradeSummary is the per-student grade read model of a class.
type GradeSummary struct {
	Items      []GradeSummaryItem           `json:"items"`
	Categories map[string]CategoryAggregate `json:"categories"`
	Overall    OverallAggregate             `json:"overall"`
}

// EmptyGradeSummary is returned when a class or its classwork cannot be read.
func EmptyGradeSummary() *GradeSummary {
	return &GradeSummary{
		Items:      []GradeSummaryItem{},
		Categories: map[string]CategoryAggregate{},
	}
}

// StudentGradeSummary pairs a rostered student with their summary.
type StudentGradeSummary struct {
	StudentID string        `json:"studentId"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Summary   *GradeSummary `json:"summary"`
}
