package api

import (
	"bytes"
	"encoding/json"
	"time"
)

// User is the backend's user profile record. The identity key travels as clerkUserId.
type User struct {
	ID               string            `json:"_id,omitempty"`
	IdentityKey      string            `json:"clerkUserId"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	University       string            `json:"university,omitempty"`
	Major            string            `json:"major,omitempty"`
	GPA              *float64          `json:"gpa,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	LinkedinURL      string            `json:"linkedinUrl,omitempty"`
	GithubURL        string            `json:"githubUrl,omitempty"`
	WebsiteURL       string            `json:"websiteUrl,omitempty"`
	ResumePdf        *ResumePdf        `json:"resumePdf,omitempty"`
	ParsedResumeData *ParsedResumeData `json:"parsedResumeData,omitempty"`
	Projects         []Project         `json:"projects,omitempty"`
	WorkExperiences  []WorkExperience  `json:"workExperiences,omitempty"`
	CreatedAt        *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
}

// ResumePdf describes the stored resume file.
type ResumePdf struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	UploadDate   string `json:"uploadDate"`
}

// ParsedResumeData is the parsed artifact the backend keeps next to the file.
type ParsedResumeData struct {
	RawText             string   `json:"rawText"`
	ExtractedSkills     []string `json:"extractedSkills"`
	ExtractedEducation  []string `json:"extractedEducation"`
	ExtractedExperience []string `json:"extractedExperience"`
}

// Project is one portfolio entry.
type Project struct {
	ID            string     `json:"_id,omitempty"`
	ProjectName   string     `json:"projectName"`
	Skills        []string   `json:"skills"`
	SampleBullets []string   `json:"sampleBullets"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// WorkExperience is one employment entry. An empty EndDate means current.
type WorkExperience struct {
	ID            string     `json:"_id,omitempty"`
	Company       string     `json:"company"`
	Position      string     `json:"position,omitempty"`
	StartDate     string     `json:"startDate,omitempty"`
	EndDate       string     `json:"endDate,omitempty"`
	Skills        []string   `json:"skills"`
	SampleBullets []string   `json:"sampleBullets"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// CreateUserRequest seeds a new profile for an identity key.
type CreateUserRequest struct {
	IdentityKey string `json:"clerkUserId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

// UserUpdate is a partial user update. Nil fields are not sent.
type UserUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	University  *string  `json:"university,omitempty"`
	Major       *string  `json:"major,omitempty"`
	GPA         *float64 `json:"gpa,omitempty"`
	LinkedinURL *string  `json:"linkedinUrl,omitempty"`
	GithubURL   *string  `json:"githubUrl,omitempty"`
	WebsiteURL  *string  `json:"websiteUrl,omitempty"`
}

// ProjectInput is the body for project create and update.
type ProjectInput struct {
	ProjectName   string   `json:"projectName" validate:"required"`
	Skills        []string `json:"skills"`
	SampleBullets []string `json:"sampleBullets"`
}

// WorkExperienceInput is the body for work experience create and update.
type WorkExperienceInput struct {
	Company       string   `json:"company" validate:"required"`
	Position      string   `json:"position,omitempty"`
	StartDate     string   `json:"startDate,omitempty"`
	EndDate       string   `json:"endDate,omitempty"`
	Skills        []string `json:"skills"`
	SampleBullets []string `json:"sampleBullets"`
}

// ExtractedEntry is one work or project entry found by the resume parser.
type ExtractedEntry struct {
	Title   string   `json:"title"`
	Dates   string   `json:"dates,omitempty"`
	Bullets []string `json:"bullets"`
}

// ExtractionResult is the parser's payload. It is never stored as-is.
type ExtractionResult struct {
	Name                    string           `json:"name,omitempty"`
	Email                   string           `json:"email,omitempty"`
	Phone                   string           `json:"phone,omitempty"`
	University              string           `json:"university,omitempty"`
	Major                   string           `json:"major,omitempty"`
	GPA                     Text             `json:"gpa,omitempty"`
	LinkedinURL             string           `json:"linkedinUrl,omitempty"`
	ExtractedSkills         []string         `json:"extractedSkills,omitempty"`
	ExtractedWorkExperience []ExtractedEntry `json:"extractedWorkExperience,omitempty"`
	ExtractedProjects       []ExtractedEntry `json:"extractedProjects,omitempty"`
	ExtractedExperience     []string         `json:"extractedExperience,omitempty"`
}

// UploadResponse wraps the extraction returned by the upload endpoint.
type UploadResponse struct {
	Message       string           `json:"message,omitempty"`
	ExtractedData ExtractionResult `json:"extractedData"`
}

// AutomationRequest asks the backend to fill out an external job application.
type AutomationRequest struct {
	IdentityKey string `json:"clerkUserId"`
	JobURL      string `json:"jobUrl"`
}

// AutomationResponse carries the fill report.
type AutomationResponse struct {
	ApplicationID string           `json:"applicationId,omitempty"`
	Result        AutomationResult `json:"result"`
}

// AutomationResult is the report produced by the automation service.
type AutomationResult struct {
	FilledFields []FilledField `json:"filledFields"`
	Errors       []string      `json:"errors"`
	Status       string        `json:"status"`
}

// FilledField is one form field the automation service touched. Either Value or Note is set.
type FilledField struct {
	Field string `json:"field"`
	Value string `json:"value,omitempty"`
	Note  string `json:"note,omitempty"`
}

// ApplicationStatus is the backend's view of an automation job.
type ApplicationStatus struct {
	ApplicationID string           `json:"applicationId"`
	Status        string           `json:"status"`
	Result        AutomationResult `json:"result"`
	UpdatedAt     *time.Time       `json:"updatedAt,omitempty"`
}

// errorBody is the shape of every non-2xx response.
type errorBody struct {
	Message string `json:"message"`
}

// ResumeData is the stored resume file and its parsed artifact.
type ResumeData struct {
	ResumePdf        *ResumePdf        `json:"resumePdf,omitempty"`
	ParsedResumeData *ParsedResumeData `json:"parsedResumeData,omitempty"`
}

// Text is a string that also accepts a bare JSON number, since parsers disagree on how to encode a GPA.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) (err error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return err
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		err = json.Unmarshal(data, &s)
		*t = Text(s)
		return err
	}

	var n json.Number
	err = json.Unmarshal(data, &n)
	*t = Text(n.String())
	return err
}
