package dto

// CreateAcademicYearRequest uploads a new academic year document.
type CreateAcademicYearRequest struct {
	YearName    string `validate:"required,max=50"`
	Notes       string
	SetAsActive bool
	UploaderID  string
	File        *Upload
}
