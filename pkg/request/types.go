package request

import (
	"strings"
)

// Document type keys.
const (
	TypeResume               = "resume"
	TypeCover                = "cover"
	TypeSkills               = "skills"
	TypeInterviewHR          = "interview-hr-questions"
	TypeInterviewJobSpecific = "interview-job-specific"
	TypeInterviewReverse     = "interview-reverse"
	TypeColdEmail            = "cold-email"
	TypeColdLinkedInMessage  = "cold-linkedin-message"
	TypeThankYouEmail        = "thank-you-email"
)

// Defaults applied when the caller omits them.
const (
	DefaultTemperature = 0.15
	DefaultModel       = "gemma-3-4b-it"
)

// DocumentTypes returns every recognized document type key.
func DocumentTypes() (types []string) {
	types = []string{
		TypeResume,
		TypeCover,
		TypeSkills,
		TypeInterviewHR,
		TypeInterviewJobSpecific,
		TypeInterviewReverse,
		TypeColdEmail,
		TypeColdLinkedInMessage,
		TypeThankYouEmail,
	}
	return types
}

// IsKnownType reports whether key names a recognized document type, ignoring case.
func IsKnownType(key string) (known bool) {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, t := range DocumentTypes() {
		if t == lower {
			known = true
			return known
		}
	}
	return known
}
