package extraction

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/pkg/errors"
)

// Load reads an extraction payload from a JSON file.
// The file may hold the bare payload or the upload response that wraps it.
func Load(path string) (result api.ExtractionResult, err error) {
	// Read file
	var fileData []byte
	fileData, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read extraction file: %s", path)
		return result, err
	}

	result, err = Parse(fileData)
	if err != nil {
		err = errors.Wrapf(err, "invalid extraction file: %s", path)
		return result, err
	}

	return result, err
}

// Parse decodes an extraction payload, unwrapping {"extractedData": ...} when present.
func Parse(data []byte) (result api.ExtractionResult, err error) {
	var probe map[string]json.RawMessage
	err = json.Unmarshal(data, &probe)
	if err != nil {
		err = errors.Wrap(err, "failed to parse extraction JSON")
		return result, err
	}

	if wrapped, ok := probe["extractedData"]; ok {
		data = wrapped
	}

	err = json.Unmarshal(data, &result)
	if err != nil {
		err = errors.Wrap(err, "failed to parse extraction JSON")
		return result, err
	}

	err = Validate(result)
	return result, err
}

// Save writes an extraction payload so it can be applied again later.
func Save(path string, result api.ExtractionResult) (err error) {
	var data []byte
	data, err = json.MarshalIndent(result, "", "  ")
	if err != nil {
		err = errors.Wrap(err, "failed to marshal extraction")
		return err
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write extraction file: %s", path)
		return err
	}

	return err
}

// Validate rejects payloads that carry nothing to apply.
func Validate(result api.ExtractionResult) (err error) {
	if IsEmpty(result) {
		err = errors.New("extraction contains no data")
		return err
	}

	for i, entry := range result.ExtractedWorkExperience {
		if entry.Title == "" && entry.Dates == "" && len(entry.Bullets) == 0 {
			err = errors.Errorf("work experience at index %d has no title, dates or bullets", i)
			return err
		}
	}

	for i, entry := range result.ExtractedProjects {
		if entry.Title == "" && entry.Dates == "" && len(entry.Bullets) == 0 {
			err = errors.Errorf("project at index %d has no title, dates or bullets", i)
			return err
		}
	}

	return err
}

// IsEmpty reports whether the payload has no fields at all.
func IsEmpty(result api.ExtractionResult) (empty bool) {
	empty = result.Name == "" &&
		result.Email == "" &&
		result.Phone == "" &&
		result.University == "" &&
		result.Major == "" &&
		result.GPA == "" &&
		result.LinkedinURL == "" &&
		len(result.ExtractedSkills) == 0 &&
		len(result.ExtractedWorkExperience) == 0 &&
		len(result.ExtractedProjects) == 0 &&
		len(result.ExtractedExperience) == 0
	return empty
}

// Summary describes what the parser found. Unclassified experience lines are listed for display only.
func Summary(result api.ExtractionResult) (lines []string) {
	lines = append(lines, fmt.Sprintf("Skills: %d", len(result.ExtractedSkills)))
	lines = append(lines, fmt.Sprintf("Work experience entries: %d", len(result.ExtractedWorkExperience)))
	lines = append(lines, fmt.Sprintf("Project entries: %d", len(result.ExtractedProjects)))

	if len(result.ExtractedExperience) > 0 {
		lines = append(lines, fmt.Sprintf("Unclassified experience (%d, not merged):", len(result.ExtractedExperience)))
		for _, item := range result.ExtractedExperience {
			lines = append(lines, "  "+item)
		}
	}

	return lines
}
