package retrieval

import (
	"strings"

	"github.com/ternarybob/medgraph/internal/models"
)

// intentTerms are the structured-search terms implied by each intent,
// applied on top of the question's own content words. MEDICATION terms
// track drug-name context (dosage units, prescription verbs) rather than a
// drug dictionary.
var intentTerms = map[models.Intent][]string{
	models.IntentMedication: {"medication", "prescribed", "prescription", "mg", "dose", "daily", "tablet", "refill"},
	models.IntentDiagnosis:  {"diagnosis", "diagnosed", "condition", "presents with", "assessment"},
	models.IntentLabResults: {"lab", "test", "result", "level", "blood", "panel", "range"},
	models.IntentTimeline:   {"visit", "follow-up", "appointment", "admitted", "discharged"},
}

// stopwords are question words that carry no search signal
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "at": true, "be": true,
	"by": true, "did": true, "do": true, "does": true, "for": true,
	"from": true, "has": true, "have": true, "how": true, "in": true,
	"is": true, "it": true, "me": true, "of": true, "on": true, "or": true,
	"show": true, "taking": true, "the": true, "their": true, "this": true,
	"to": true, "was": true, "were": true, "what": true, "when": true,
	"which": true, "who": true, "with": true, "all": true, "any": true,
	"patient": true, "patients": true, "records": true,
}

// searchTerms derives the structured-store terms for a question and its
// intent: intent-specific terms plus the question's content words.
func searchTerms(question string, intent models.Intent) []string {
	seen := make(map[string]bool)
	var terms []string

	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	for _, term := range intentTerms[intent] {
		add(term)
	}
	for _, word := range contentWords(question) {
		add(word)
	}

	return terms
}

// RelevanceTerms exposes the derived search terms so downstream span
// scoring ranks evidence with the same vocabulary retrieval matched on
func RelevanceTerms(question string, intent models.Intent) []string {
	return searchTerms(question, intent)
}

// contentWords extracts the non-stopword tokens of a question, preserving
// order. Tokens shorter than three characters carry too little signal and
// are dropped.
func contentWords(question string) []string {
	var words []string
	for _, token := range strings.Fields(strings.ToLower(question)) {
		token = strings.Trim(token, ".,;:!?()\"'")
		if len(token) < 3 || stopwords[token] {
			continue
		}
		words = append(words, token)
	}
	return words
}

// keywordStrength measures how strongly a record matches the question's
// content words: the fraction of content words present in the record text
// or its parsed fields. Records reached only through intent terms score a
// floor value so they still rank above nothing.
func keywordStrength(record *models.Record, question string) float64 {
	words := contentWords(question)
	if len(words) == 0 {
		return 0.5
	}

	haystack := strings.ToLower(record.Text + " " +
		record.Medication + " " +
		record.Diagnosis + " " +
		record.LabResult + " " +
		record.PatientName)

	matched := 0
	for _, word := range words {
		if strings.Contains(haystack, word) {
			matched++
		}
	}

	if matched == 0 {
		return 0.25
	}
	return float64(matched) / float64(len(words))
}
