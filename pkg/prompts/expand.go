package prompts

import (
	"sort"
	"strings"
	"time"
)

// Placeholder names understood by the bundled templates.
const (
	KeyResume          = "resume_string"
	KeyJobDescription  = "jd_string"
	KeyJobTitle        = "job_title"
	KeyCompany         = "company"
	KeyToday           = "today"
	KeyInterviewerName = "interviewer_name"
)

// DateLayout formats the {today} placeholder, e.g. "March 05, 2025".
const DateLayout = "January 02, 2006"

// Fields carries the request values substituted into a template.
type Fields struct {
	Resume          string
	JobDescription  string
	JobTitle        string
	Company         string
	InterviewerName string
}

// Variables builds the placeholder map for fields on the given day.
func Variables(fields Fields, today time.Time) (vars map[string]string) {
	vars = map[string]string{
		KeyResume:          fields.Resume,
		KeyJobDescription:  fields.JobDescription,
		KeyJobTitle:        fields.JobTitle,
		KeyCompany:         fields.Company,
		KeyToday:           today.Format(DateLayout),
		KeyInterviewerName: fields.InterviewerName,
	}
	return vars
}

// Expand replaces every {key} in template with vars[key]. Unknown placeholders are left as-is.
func Expand(template string, vars map[string]string) (expanded string) {
	if template == "" {
		return expanded
	}

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Single pass so substituted text is never expanded again
	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", vars[key])
	}

	expanded = strings.NewReplacer(pairs...).Replace(template)
	return expanded
}
