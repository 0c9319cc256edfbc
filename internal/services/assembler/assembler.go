package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/models"
)

// Assembler organizes retrieval candidates into the ordered, trimmed
// context consumed by citation extraction and answer generation. It is
// pure: the same candidates and intent always produce the same context.
type Assembler struct {
	config *common.ContextConfig
	logger arbor.ILogger
}

func NewAssembler(config *common.ContextConfig, logger arbor.ILogger) *Assembler {
	return &Assembler{
		config: config,
		logger: logger,
	}
}

// Assemble builds the structured context for a classified query. Candidates
// arrive ranked by combined score; assembly reorders them chronologically
// and trims to the character budget.
func (a *Assembler) Assemble(candidates []*models.Candidate, intent models.Intent) *models.Context {
	if len(candidates) == 0 {
		return &models.Context{
			Intent:  intent,
			Summary: "No relevant records found.",
		}
	}

	kept := a.trimToBudget(candidates)
	ordered := orderByDate(kept, intent)

	context := &models.Context{
		Intent:       intent,
		Records:      ordered,
		KeyFindings:  keyFindings(ordered, intent),
		PatientGroup: groupByPatient(ordered),
		TotalChars:   totalChars(ordered),
	}
	context.Summary = summarize(ordered)

	a.logger.Debug().
		Str("intent", string(intent)).
		Int("candidates", len(candidates)).
		Int("kept", len(ordered)).
		Int("total_chars", context.TotalChars).
		Msg("Context assembled")

	return context
}

// trimToBudget drops the lowest-combined-score candidates until the record
// text fits the character budget. Records are dropped whole, never cut
// mid-text, and the top candidate is always kept.
func (a *Assembler) trimToBudget(candidates []*models.Candidate) []*models.Candidate {
	byScore := make([]*models.Candidate, len(candidates))
	copy(byScore, candidates)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].Combined > byScore[j].Combined
	})

	kept := make([]*models.Candidate, 0, len(byScore))
	budget := a.config.MaxChars
	used := 0
	for i, candidate := range byScore {
		size := len(candidate.Record.Text)
		if i > 0 && used+size > budget {
			a.logger.Debug().
				Str("record_id", candidate.Record.ID).
				Int("dropped", len(byScore)-i).
				Msg("Character budget reached, dropping remaining candidates")
			break
		}
		kept = append(kept, candidate)
		used += size
	}
	return kept
}

// orderByDate sorts ascending so evidence reads as a history. TIMELINE
// queries ask "what happened recently", so they get most recent first.
func orderByDate(candidates []*models.Candidate, intent models.Intent) []*models.Candidate {
	ordered := make([]*models.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if intent == models.IntentTimeline {
			return ordered[i].Record.Date.After(ordered[j].Record.Date)
		}
		return ordered[i].Record.Date.Before(ordered[j].Record.Date)
	})
	return ordered
}

// keyFindings extracts the intent-specific highlights the answer should
// lead with
func keyFindings(candidates []*models.Candidate, intent models.Intent) []string {
	var findings []string

	switch intent {
	case models.IntentMedication:
		if medications := distinctField(candidates, func(r *models.Record) string { return r.Medication }); len(medications) > 0 {
			findings = append(findings, fmt.Sprintf("Medications found: %s", strings.Join(medications, ", ")))
		}
	case models.IntentDiagnosis:
		if diagnoses := distinctField(candidates, func(r *models.Record) string { return r.Diagnosis }); len(diagnoses) > 0 {
			findings = append(findings, fmt.Sprintf("Diagnoses found: %s", strings.Join(diagnoses, ", ")))
		}
	case models.IntentLabResults:
		labCount := 0
		for _, c := range candidates {
			if c.Record.RecordType == models.RecordTypeLab {
				labCount++
			}
		}
		if labCount > 0 {
			findings = append(findings, fmt.Sprintf("Found %d lab result(s)", labCount))
		}
	case models.IntentTimeline:
		earliest, latest := dateSpan(candidates)
		findings = append(findings, fmt.Sprintf("Records span from %s to %s", earliest, latest))
		findings = append(findings, fmt.Sprintf("Total visits/records: %d", len(candidates)))
	}

	patients := distinctField(candidates, func(r *models.Record) string { return r.PatientName })
	if len(patients) == 1 {
		findings = append(findings, fmt.Sprintf("All records for patient: %s", patients[0]))
	} else {
		findings = append(findings, fmt.Sprintf("Records from %d patient(s)", len(patients)))
	}

	return findings
}

func summarize(candidates []*models.Candidate) string {
	patients := distinctField(candidates, func(r *models.Record) string { return r.PatientName })

	var summary string
	if len(patients) == 1 {
		summary = fmt.Sprintf("Found %d record(s) for %s. ", len(candidates), patients[0])
	} else {
		summary = fmt.Sprintf("Found %d record(s) across %d patient(s). ", len(candidates), len(patients))
	}

	earliest, latest := dateSpan(candidates)
	return summary + fmt.Sprintf("Date range: %s to %s.", earliest, latest)
}

func groupByPatient(candidates []*models.Candidate) map[string][]*models.Candidate {
	groups := make(map[string][]*models.Candidate)
	for _, candidate := range candidates {
		groups[candidate.Record.PatientID] = append(groups[candidate.Record.PatientID], candidate)
	}
	return groups
}

// distinctField collects the non-empty values of one structured field,
// preserving first-seen order
func distinctField(candidates []*models.Candidate, field func(*models.Record) string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, candidate := range candidates {
		value := strings.TrimSpace(field(candidate.Record))
		if value == "" {
			continue
		}
		switch strings.ToLower(value) {
		case "none", "n/a":
			continue
		}
		if !seen[value] {
			seen[value] = true
			values = append(values, value)
		}
	}
	return values
}

func dateSpan(candidates []*models.Candidate) (string, string) {
	earliest := candidates[0].Record.Date
	latest := candidates[0].Record.Date
	for _, candidate := range candidates[1:] {
		if candidate.Record.Date.Before(earliest) {
			earliest = candidate.Record.Date
		}
		if candidate.Record.Date.After(latest) {
			latest = candidate.Record.Date
		}
	}
	return earliest.Format("2006-01-02"), latest.Format("2006-01-02")
}

func totalChars(candidates []*models.Candidate) int {
	total := 0
	for _, candidate := range candidates {
		total += len(candidate.Record.Text)
	}
	return total
}
