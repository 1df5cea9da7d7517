package request

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// GenerationRequest describes one inbound generation job.
type GenerationRequest struct {
	DocumentTypes   []string `json:"promptType"`
	Temperature     float64  `json:"temperature"`
	Model           string   `json:"model"`
	Resume          string   `json:"resume_string"`
	JobDescription  string   `json:"jobDescription"`
	JobTitle        string   `json:"jobTitle"`
	Company         string   `json:"company_name"`
	InterviewerName string   `json:"interviewerName,omitempty"`
}

// New builds a request with defaults applied and line endings normalized.
func New(types []string, resume, jobDescription, jobTitle, company string) (req GenerationRequest) {
	req = GenerationRequest{
		DocumentTypes:  append([]string(nil), types...),
		Temperature:    DefaultTemperature,
		Model:          DefaultModel,
		Resume:         NormalizeLineEndings(resume),
		JobDescription: NormalizeLineEndings(jobDescription),
		JobTitle:       jobTitle,
		Company:        company,
	}
	return req
}

// ParseJSON validates data against the request schema and decodes it with defaults applied.
// The validation gate is not applied; call Validate once the resume and job description are attached.
func ParseJSON(data []byte) (req GenerationRequest, err error) {
	req, err = ParseJSONWithDefaults(data, DefaultTemperature, DefaultModel)
	return req, err
}

// ParseJSONWithDefaults is ParseJSON with caller-supplied values for an omitted temperature or model.
func ParseJSONWithDefaults(data []byte, temperature float64, model string) (req GenerationRequest, err error) {
	err = CheckSchema(data)
	if err != nil {
		return req, err
	}

	req = GenerationRequest{
		Temperature: temperature,
		Model:       model,
	}

	err = json.Unmarshal(data, &req)
	if err != nil {
		err = errors.Wrap(err, "failed to parse request JSON")
		return req, err
	}

	req.Resume = NormalizeLineEndings(req.Resume)
	req.JobDescription = NormalizeLineEndings(req.JobDescription)

	return req, err
}

// Validate checks that the request is complete enough to generate from.
func (r *GenerationRequest) Validate() (err error) {
	if isBlank(r.Resume) {
		err = errors.New("resume is required")
		return err
	}

	if isBlank(r.JobDescription) {
		err = errors.New("job description is required")
		return err
	}

	if isBlank(r.JobTitle) {
		err = errors.New("job title is required")
		return err
	}

	if isBlank(r.Company) {
		err = errors.New("company is required")
		return err
	}

	if isBlank(r.Model) {
		err = errors.New("model is required")
		return err
	}

	if r.Temperature <= 0 || r.Temperature >= 2 {
		err = errors.Errorf("temperature must be between 0 and 2 (exclusive), got %v", r.Temperature)
		return err
	}

	if len(r.DocumentTypes) == 0 {
		err = errors.New("at least one document type is required")
		return err
	}

	for _, t := range r.DocumentTypes {
		if !IsKnownType(t) {
			err = errors.Errorf("unknown document type: %q", t)
			return err
		}
	}

	return err
}

// Valid reports whether Validate passes.
func (r *GenerationRequest) Valid() (ok bool) {
	ok = r.Validate() == nil
	return ok
}

// NormalizeLineEndings converts CRLF and lone CR line endings to LF.
func NormalizeLineEndings(text string) (normalized string) {
	normalized = strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return normalized
}

// isBlank treats whitespace and the literal "null" sent by some clients as missing.
func isBlank(value string) (blank bool) {
	trimmed := strings.TrimSpace(value)
	blank = trimmed == "" || trimmed == "null"
	return blank
}
