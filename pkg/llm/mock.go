package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MockModel is reported when the request names no model.
const MockModel = "mistral-mock"

// MockClient produces canned completions without any network I/O.
type MockClient struct {
	// Canned, when set, is returned verbatim as the assistant content for every request.
	Canned string

	now    func() time.Time
	logger *slog.Logger
}

// mockRule pairs a prompt predicate with the canned reply it selects.
type mockRule struct {
	name    string
	matches func(prompt string) bool
	reply   func(today string) string
}

// NewMockClient creates a mock completion backend.
func NewMockClient(logger *slog.Logger) (client *MockClient) {
	if logger == nil {
		logger = slog.Default()
	}
	client = &MockClient{
		now:    time.Now,
		logger: logger,
	}
	return client
}

// Name identifies the backend.
func (m *MockClient) Name() (name string) {
	name = BackendMock
	return name
}

// Complete returns a keyword-appropriate canned response for req.
func (m *MockClient) Complete(_ context.Context, req ChatRequest) (resp *ChatResponse) {
	m.logger.Info("generating mock chat response")

	prompt := req.UserPrompt()
	content := m.Canned
	if content == "" {
		content = m.Generate(prompt)
	}

	model := req.Model
	if model == "" {
		model = MockModel
	}

	promptTokens := EstimateTokens(prompt)
	completionTokens := EstimateTokens(content)

	resp = &ChatResponse{
		ID:      "chatcmpl-mock-" + shortID(),
		Object:  "chat.completion",
		Created: m.now().Unix(),
		Model:   model,
		Choices: []Choice{
			{
				Index:        0,
				FinishReason: "stop",
				Message: &Message{
					Role:    RoleAssistant,
					Content: content,
				},
			},
		},
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		SystemFingerprint: "mock-fp-" + shortID(),
	}

	return resp
}

// Generate picks the canned reply for prompt. The first matching rule wins.
func (m *MockClient) Generate(prompt string) (content string) {
	lower := strings.ToLower(prompt)
	today := m.now().Format("January 02, 2006")

	for _, rule := range mockRules() {
		if rule.matches(lower) {
			m.logger.Debug("mock rule matched", slog.String("rule", rule.name))
			content = rule.reply(today)
			return content
		}
	}

	content = mockGeneric
	return content
}

// EstimateTokens approximates token count as one token per four characters, never less than one.
func EstimateTokens(text string) (tokens int) {
	tokens = max(1, utf8.RuneCountInString(text)/4)
	return tokens
}

// shortID returns the first eight characters of a random UUID.
func shortID() (id string) {
	id = uuid.NewString()[:8]
	return id
}

// containsAll reports whether text contains every word.
func containsAll(words ...string) (match func(string) bool) {
	match = func(text string) bool {
		for _, word := range words {
			if !strings.Contains(text, word) {
				return false
			}
		}
		return true
	}
	return match
}

// fixed returns a reply that ignores the date.
func fixed(text string) (reply func(string) string) {
	reply = func(string) string { return text }
	return reply
}

// dated returns a reply with the date substituted for the single %s verb.
func dated(format string) (reply func(string) string) {
	reply = func(today string) string { return fmt.Sprintf(format, today) }
	return reply
}

// mockRules lists the keyword rules in priority order.
func mockRules() (rules []mockRule) {
	rules = []mockRule{
		{name: "resume", matches: containsAll("resume", "optimize"), reply: dated(mockResume)},
		{name: "cover", matches: containsAll("cover letter"), reply: dated(mockCoverLetter)},
		{name: "interview-hr", matches: containsAll("interview", "hr"), reply: fixed(mockInterviewHR)},
		{name: "interview-job", matches: containsAll("interview", "job"), reply: fixed(mockInterviewJob)},
		{name: "interview-reverse", matches: containsAll("interview", "reverse"), reply: fixed(mockInterviewReverse)},
		{name: "cold-email", matches: containsAll("cold", "email"), reply: fixed(mockColdEmail)},
		{name: "linkedin", matches: containsAll("linkedin"), reply: fixed(mockLinkedIn)},
		{name: "thank-you", matches: containsAll("thank", "you"), reply: dated(mockThankYou)},
		{name: "skills", matches: containsAll("skill"), reply: fixed(mockSkills)},
	}
	return rules
}

const mockResume = "```markdown\n" + `# Professional Resume

## Summary

Experienced engineer with a track record of shipping reliable backend services and leading small teams.

## Professional Experience

### Senior Software Engineer

**Mock Company** | %s

- Led development of distributed services in Go running on Kubernetes
- Mentored junior developers and ran code reviews
- Improved p99 latency by 40%% through profiling and caching
- Built CI/CD pipelines that cut deployment time by 60%%

## Skills

- **Programming**: Go, Python, TypeScript
- **Infrastructure**: Docker, Kubernetes, Terraform
- **Databases**: PostgreSQL, Redis

## Education

**Bachelor of Science in Computer Science**
Mock University | 2018
` + "```" + `

## Additional Suggestions

- Quantify the impact of each role with a number where possible
- Move the skills most relevant to the job description to the top
`

const mockCoverLetter = "```markdown\n" + `%s

Dear Hiring Manager,

I am writing to express my strong interest in the position at your organization. My background in backend
development and my record of delivering dependable systems make me confident I would add value to your team.

Key highlights of my qualifications include:

- Five years building and operating production services
- Strong proficiency in Go and cloud native tooling
- Experience leading projects from design through rollout

I would welcome the chance to discuss how my experience aligns with your needs.

Sincerely,
[Your Name]
` + "```" + `

Additional Suggestions

- Name the hiring manager if you can find them
`

const mockInterviewHR = `# Common HR Interview Questions and Suggested Responses

## 1. Tell me about yourself

**Suggested Response:** I'm a software engineer with five years of backend experience. I enjoy untangling complex
problems and helping teammates grow.

## 2. What are your greatest strengths?

**Suggested Response:** Problem solving and clear communication with technical and non-technical stakeholders.

## 3. What are your weaknesses?

**Suggested Response:** I can over-polish details, so I time-box work and agree on quality bars up front.

## 4. Why do you want to work here?

**Suggested Response:** The team's focus on reliability and craft matches the way I like to work.

## 5. Where do you see yourself in five years?

**Suggested Response:** Leading technical direction for a team while staying hands-on.
`

const mockInterviewJob = `# Job-Specific Technical Interview Questions

## Technical Questions

### 1. Explain your experience with microservices

**Response:** I have designed and operated services that communicate over HTTP and queues, including service
discovery and idempotent retries.

### 2. How do you approach database optimization?

**Response:** I start from query plans, add the right indexes and introduce caching only where measurements show
it pays off.

### 3. Describe your approach to code review

**Response:** I look for correctness first, then clarity and test coverage, and keep feedback constructive.

### 4. What's your experience with CI/CD?

**Response:** I have built pipelines with automated tests, security scanning and progressive rollout.
`

const mockInterviewReverse = `# Questions to Ask the Interviewer

## Team and Culture

1. **Team Structure:** How is the team organized and how do engineers collaborate?

2. **Development Process:** What does a typical change look like from idea to production?

## Technical Environment

3. **Technology Stack:** Which technologies does the team work with day to day?

4. **Technical Challenges:** What is the most interesting problem the team is facing right now?

## Growth and Development

5. **Career Path:** What does progression look like for this role?

## Success Metrics

6. **Success Definition:** How would you define success in the first six months?
`

const mockColdEmail = `Subject: Exploring Opportunities at [Company Name]

Hi [Recipient Name],

I'm a software engineer focused on backend and distributed systems. I've been following [Company Name]'s work in
[specific area] and believe my background in [relevant skills] could contribute to your team.

Would you be open to a brief conversation to explore potential opportunities?

Best regards,
[Your Name]
`

const mockLinkedIn = `# LinkedIn Connection Message

Hi [Name],

I came across your profile while researching [Company Name] and was impressed by your work in [specific area].
I'd love to connect and learn from your experience.

Best,
[Your Name]

---

# Follow-up Message (After Connection)

Hi [Name],

Thanks for connecting! Would you be open to a brief chat about your experience at [Company Name]?

Best regards,
[Your Name]
`

const mockThankYou = `%s

Dear [Interviewer Name],

Thank you for taking the time to meet with me to discuss the [Position] role at [Company Name]. I enjoyed learning
more about the team and the projects you're working on.

Our conversation reinforced my enthusiasm for the opportunity, and I look forward to hearing about next steps.

Best regards,
[Your Name]
`

const mockSkills = `# Technical Skills Assessment

Based on the job description, here are the key skills to highlight:

## Core Technical Skills

- Go and Python
- RESTful API design
- SQL and NoSQL data modelling
- Containers and Kubernetes

## Development Practices

- Test-driven development
- Continuous integration and delivery
- Code review

## Soft Skills

- Problem solving
- Written communication
- Mentoring
`

const mockGeneric = `# Mock LLM Response

This is a simulated response from the mock completion backend.

## Key Points

- Responses are generated locally without network calls
- Responses are selected from the prompt content
- This enables testing without a running model server
`
