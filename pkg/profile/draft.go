package profile

import (
	"strconv"
	"strings"

	"github.com/nikogura/resume-intake/pkg/api"
)

// Draft is the editable, not yet persisted copy of a profile's fields.
type Draft struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	University  string `json:"university"`
	Major       string `json:"major"`
	GPA         string `json:"gpa"`
	LinkedinURL string `json:"linkedinUrl"`
	GithubURL   string `json:"githubUrl"`
	WebsiteURL  string `json:"websiteUrl"`
	Skills      string `json:"skills"`
	Experience  string `json:"experience"`
	Projects    string `json:"projects"`
}

// DraftFromUser seeds a draft from a persisted profile. A nil user gives an empty draft.
func DraftFromUser(user *api.User) (draft Draft) {
	if user == nil {
		return draft
	}

	draft = Draft{
		Name:        user.Name,
		Email:       user.Email,
		Phone:       user.Phone,
		University:  user.University,
		Major:       user.Major,
		LinkedinURL: user.LinkedinURL,
		GithubURL:   user.GithubURL,
		WebsiteURL:  user.WebsiteURL,
	}
	if user.GPA != nil {
		draft.GPA = strconv.FormatFloat(*user.GPA, 'f', -1, 64)
	}
	if user.ParsedResumeData != nil {
		draft.Skills = joinSkills(user.ParsedResumeData.ExtractedSkills)
	}

	return draft
}

// ApplyExtraction fills the draft from a parser payload without clobbering what the user typed.
//
// Scalar fields are copied verbatim, and only into draft fields that are
// the empty string. Skills, work
// experience and projects are full replacements when the extraction has any.
// extractedExperience is informational and never merged.
func ApplyExtraction(draft Draft, extraction api.ExtractionResult) (merged Draft) {
	merged = draft

	fillEmpty(&merged.Name, extraction.Name)
	fillEmpty(&merged.Email, extraction.Email)
	fillEmpty(&merged.Phone, extraction.Phone)
	fillEmpty(&merged.University, extraction.University)
	fillEmpty(&merged.Major, extraction.Major)
	fillEmpty(&merged.GPA, string(extraction.GPA))
	fillEmpty(&merged.LinkedinURL, extraction.LinkedinURL)

	if skills := joinSkills(extraction.ExtractedSkills); skills != "" {
		merged.Skills = skills
	}

	if block := FlattenEntries(extraction.ExtractedWorkExperience); block != "" {
		merged.Experience = block
	}

	if block := FlattenEntries(extraction.ExtractedProjects); block != "" {
		merged.Projects = block
	}

	return merged
}

// FlattenEntries renders entries as text blocks in the order given.
// Each block is the title line followed by one "- " line per bullet; blocks are separated by a blank line.
func FlattenEntries(entries []api.ExtractedEntry) (text string) {
	blocks := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines := make([]string, 0, len(entry.Bullets)+1)

		title := strings.TrimSpace(entry.Title)
		if dates := strings.TrimSpace(entry.Dates); dates != "" {
			if title == "" {
				title = dates
			} else {
				title += " (" + dates + ")"
			}
		}
		if title != "" {
			lines = append(lines, title)
		}

		for _, bullet := range entry.Bullets {
			bullet = strings.TrimSpace(bullet)
			if bullet == "" {
				continue
			}
			lines = append(lines, "- "+bullet)
		}

		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	text = strings.Join(blocks, "\n\n")
	return text
}

// SplitSkills parses a comma separated skills text back into a list.
func SplitSkills(text string) (skills []string) {
	skills = make([]string, 0)
	for _, s := range strings.Split(text, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

func joinSkills(skills []string) (text string) {
	kept := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s != "" {
			kept = append(kept, s)
		}
	}
	text = strings.Join(kept, ", ")
	return text
}

func fillEmpty(field *string, value string) {
	if *field == "" && value != "" {
		*field = value
	}
}
