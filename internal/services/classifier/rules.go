package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/ternarybob/medgraph/internal/models"
)

// RuleBasedClassifier maps questions to intents with keyword and regex
// patterns, without any model call. Deterministic given the same question,
// and total: anything unmatched classifies as GENERAL.
type RuleBasedClassifier struct{}

// NewRuleBasedClassifier creates a rule-based text classifier
func NewRuleBasedClassifier() *RuleBasedClassifier {
	return &RuleBasedClassifier{}
}

// Patterns are checked in priority order (first match wins). TIMELINE runs
// before DIAGNOSIS so "when was the diabetes diagnosed" routes to the
// chronology path rather than the condition path.
var (
	medicationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmedications?\b`),
		regexp.MustCompile(`(?i)\bprescri(be|bed|ption|ptions)\b`),
		regexp.MustCompile(`(?i)\bdrugs?\b`),
		regexp.MustCompile(`(?i)\b(taking|dosage|dose|refill)\b`),
		regexp.MustCompile(`(?i)\b\w+\s*\d+\s*mg\b`), // "Lisinopril 10mg"
	}

	timelinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bwhen\s+(was|did|were)\b`),
		regexp.MustCompile(`(?i)\b(timeline|chronolog\w*|history\s+of\s+visits?)\b`),
		regexp.MustCompile(`(?i)\b(last|first|most\s+recent|latest)\s+(visit|appointment|admission)\b`),
		regexp.MustCompile(`(?i)\bmedical\s+history\b`),
	}

	labPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\blab\s*(results?|tests?|work|values?)?\b`),
		regexp.MustCompile(`(?i)\b(test\s+results?|blood\s+(test|work|panel)|measurements?)\b`),
		regexp.MustCompile(`(?i)\b(cholesterol|glucose|a1c|hba1c|hemoglobin|creatinine)\b`),
	}

	diagnosisPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bdiagnos(is|es|ed)\b`),
		regexp.MustCompile(`(?i)\bcondition(s)?\b`),
		regexp.MustCompile(`(?i)\bdiseases?\b`),
		regexp.MustCompile(`(?i)\b(diabetes|hypertension|asthma|arthritis|suffering\s+from)\b`),
	}
)

// Classify maps a free-text question to exactly one intent
func (c *RuleBasedClassifier) Classify(ctx context.Context, question string) models.Intent {
	q := strings.TrimSpace(question)
	if q == "" {
		return models.IntentGeneral
	}

	for _, pattern := range medicationPatterns {
		if pattern.MatchString(q) {
			return models.IntentMedication
		}
	}

	for _, pattern := range timelinePatterns {
		if pattern.MatchString(q) {
			return models.IntentTimeline
		}
	}

	for _, pattern := range labPatterns {
		if pattern.MatchString(q) {
			return models.IntentLabResults
		}
	}

	for _, pattern := range diagnosisPatterns {
		if pattern.MatchString(q) {
			return models.IntentDiagnosis
		}
	}

	return models.IntentGeneral
}

// Name identifies this classification capability
func (c *RuleBasedClassifier) Name() string {
	return "rule-based"
}
