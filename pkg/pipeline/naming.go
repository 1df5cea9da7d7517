package pipeline

import (
	"strings"
)

// StampLayout formats the time stamp embedded in output file names.
const StampLayout = "2006-01-02-03-04"

// pathUnsafe replaces characters that cannot appear inside a single path segment.
var pathUnsafe = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_") //nolint:gochecknoglobals // stateless replacer

// SanitizeSegment makes name safe to use inside a file name. Everything else is kept as given.
func SanitizeSegment(name string) (sanitized string) {
	sanitized = pathUnsafe.Replace(name)
	return sanitized
}

// DocumentBase returns "<type>-<company>-<title>-<stamp>" without an extension.
func DocumentBase(docType, company, title, stamp string) (base string) {
	base = strings.Join([]string{
		SanitizeSegment(docType),
		SanitizeSegment(company),
		SanitizeSegment(title),
		stamp,
	}, "-")
	return base
}

// SuggestionsName returns "<company>-<title>-<stamp>-suggestions.md".
func SuggestionsName(company, title, stamp string) (name string) {
	name = strings.Join([]string{
		SanitizeSegment(company),
		SanitizeSegment(title),
		stamp,
		"suggestions.md",
	}, "-")
	return name
}
