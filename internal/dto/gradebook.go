package dto

import "github.com/noah-isme/gradsmart-api/pkg/jsondoc"

// SaveGradebookRequest replaces a class gradebook config. Percentages default to 50/50
// and are not required to sum to 100.
type SaveGradebookRequest struct {
	MidtermPercentage *int             `json:"midtermPercentage"`
	FinalsPercentage  *int             `json:"finalsPercentage"`
	MidtermTables     jsondoc.Document `json:"midtermTables"`
	FinalsTables      jsondoc.Document `json:"finalsTables"`
	Grades            jsondoc.Document `json:"grades"`
}
