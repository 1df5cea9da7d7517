package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]string
		want     string
	}{
		{
			name:     "known placeholders replaced",
			template: "Role {job_title} at {company}",
			vars:     map[string]string{"job_title": "Eng", "company": "Acme"},
			want:     "Role Eng at Acme",
		},
		{
			name:     "repeated placeholder replaced everywhere",
			template: "{company} / {company}",
			vars:     map[string]string{"company": "Acme"},
			want:     "Acme / Acme",
		},
		{
			name:     "unknown placeholder untouched",
			template: "Hello {unknown_token} from {company}",
			vars:     map[string]string{"company": "Acme"},
			want:     "Hello {unknown_token} from Acme",
		},
		{
			name:     "empty value",
			template: "Dear {interviewer_name},",
			vars:     map[string]string{"interviewer_name": ""},
			want:     "Dear ,",
		},
		{
			name:     "substituted text is not expanded again",
			template: "{resume_string} on {today}",
			vars:     map[string]string{"resume_string": "I wrote {today}", "today": "May 01, 2025"},
			want:     "I wrote {today} on May 01, 2025",
		},
		{
			name:     "empty template",
			template: "",
			vars:     map[string]string{"company": "Acme"},
			want:     "",
		},
		{
			name:     "no variables",
			template: "{company}",
			vars:     nil,
			want:     "{company}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.template, tt.vars)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestVariables(t *testing.T) {
	day := time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC)
	vars := Variables(Fields{
		Resume:         "R",
		JobDescription: "J",
		JobTitle:       "Eng",
		Company:        "Acme",
	}, day)

	if vars[KeyToday] != "March 05, 2025" {
		t.Errorf("Expected 'March 05, 2025', got '%s'", vars[KeyToday])
	}

	if vars[KeyResume] != "R" || vars[KeyJobDescription] != "J" {
		t.Errorf("Expected resume/jd to be carried, got %v", vars)
	}

	value, ok := vars[KeyInterviewerName]
	if !ok || value != "" {
		t.Errorf("Expected empty interviewer name, got %q (present=%v)", value, ok)
	}
}

func TestStoreBundled(t *testing.T) {
	store := NewStore("", nil)

	for _, name := range []string{"resume", "RESUME", "cover", "thank-you-email"} {
		template := store.Load(name)
		if template == "" {
			t.Errorf("Expected bundled template for %s", name)
		}
	}

	resume := store.Load("resume")
	if !strings.Contains(resume, "{resume_string}") || !strings.Contains(resume, "{jd_string}") {
		t.Error("Expected resume template to carry resume and job description placeholders")
	}
}

func TestStoreBundledNames(t *testing.T) {
	store := NewStore("", nil)
	names := store.Names()

	if len(names) != 9 {
		t.Errorf("Expected 9 bundled templates, got %d: %v", len(names), names)
	}
}

func TestStoreExternalOverride(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "resume.md"), []byte("external {company}"), 0600)
	if err != nil {
		t.Fatalf("Failed to write template: %v", err)
	}

	store := NewStore(tmpDir, nil)

	got := store.Load("resume")
	if got != "external {company}" {
		t.Errorf("Expected external template, got %q", got)
	}

	// Missing external files fall back to the bundled copy.
	got = store.Load("cover")
	if !strings.Contains(got, "cover letter") {
		t.Errorf("Expected bundled cover template, got %q", got)
	}
}

func TestStoreExternalDirectoryIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.Mkdir(filepath.Join(tmpDir, "skills.md"), 0750)
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	store := NewStore(tmpDir, nil)
	got := store.Load("skills")
	if !strings.Contains(got, "skill") {
		t.Errorf("Expected bundled skills template, got %q", got)
	}
}

func TestStoreMissing(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	if got := store.Load("does-not-exist"); got != "" {
		t.Errorf("Expected empty template, got %q", got)
	}

	if got := store.Load("   "); got != "" {
		t.Errorf("Expected empty template for blank name, got %q", got)
	}
}
