package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
)

const noEvidenceAnswer = "I couldn't find any relevant information in the medical records to answer this question."

const systemPrompt = "You are a medical records assistant. Answer the question based ONLY on the provided evidence."

// Service drafts the final answer from assembled evidence. With a working
// LLM it composes a grounded prompt and asks for prose; when the provider
// is disabled or fails, it falls back to a deterministic evidence summary
// so the pipeline always returns something useful.
type Service struct {
	llmService interfaces.LLMService
	logger     arbor.ILogger
}

func NewService(llmService interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llmService: llmService,
		logger:     logger,
	}
}

// GenerateAnswer produces the answer text for a question given its context
// and citations. It never returns an error for provider failures; the
// templated fallback covers those.
func (s *Service) GenerateAnswer(ctx context.Context, question string, queryContext *models.Context, citations []*models.Citation) (string, error) {
	if len(citations) == 0 {
		return noEvidenceAnswer, nil
	}

	if s.llmService.GetMode() != interfaces.LLMModeDisabled {
		reply, err := s.llmService.Chat(ctx, []interfaces.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(question, queryContext, citations)},
		})
		if err == nil {
			return cleanAnswer(reply), nil
		}
		s.logger.Warn().Err(err).Msg("LLM answer generation failed, using evidence summary")
	}

	return templatedAnswer(queryContext, citations), nil
}

// buildPrompt composes the grounded user prompt: summary, key findings,
// and numbered evidence blocks
func buildPrompt(question string, queryContext *models.Context, citations []*models.Citation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Context Summary: %s\n\n", queryContext.Summary)

	if len(queryContext.KeyFindings) > 0 {
		b.WriteString("Key Findings:\n")
		for _, finding := range queryContext.KeyFindings {
			fmt.Fprintf(&b, "- %s\n", finding)
		}
		b.WriteString("\n")
	}

	b.WriteString("Evidence from Medical Records:\n")
	for i, citation := range citations {
		fmt.Fprintf(&b, "\n[Source %d]\nPatient: %s (%s)\nDate: %s\nType: %s\nContent: %s\n",
			i+1, citation.PatientName, citation.PatientID,
			citation.Date.Format("2006-01-02"), citation.RecordType, citation.Text)
	}

	b.WriteString(`
Instructions:
1. Answer the question directly and concisely
2. Use ONLY information from the evidence provided above
3. Be specific - mention patient names, dates, medications, diagnoses, etc.
4. If the evidence shows conflicting information, mention both
5. If the evidence is insufficient, say so clearly
6. Do NOT make up or infer information not in the evidence
7. Keep your answer focused and under 150 words

Answer:`)

	return b.String()
}

// templatedAnswer renders a deterministic summary of the evidence when no
// LLM is available
func templatedAnswer(queryContext *models.Context, citations []*models.Citation) string {
	var b strings.Builder

	b.WriteString(queryContext.Summary)
	for _, finding := range queryContext.KeyFindings {
		b.WriteString(" ")
		b.WriteString(finding)
		b.WriteString(".")
	}

	top := citations[0]
	fmt.Fprintf(&b, " Most relevant: %s (%s, %s): %s",
		top.PatientName, top.Date.Format("2006-01-02"), top.RecordType, top.Text)

	return b.String()
}

// cleanAnswer strips common completion artifacts
func cleanAnswer(reply string) string {
	answer := strings.TrimSpace(reply)
	answer = strings.TrimSpace(strings.TrimPrefix(answer, "Answer:"))
	answer = strings.TrimSpace(strings.TrimPrefix(answer, "Based on the evidence:"))
	return answer
}
