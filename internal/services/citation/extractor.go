package citation

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/models"
	"github.com/ternarybob/medgraph/internal/services/retrieval"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// Extractor turns assembled context records into citations: the most
// relevant span of each record plus a confidence score. It is pure and
// never fails; a record always yields some citation text.
type Extractor struct {
	config *common.CitationConfig
	logger arbor.ILogger
}

func NewExtractor(config *common.CitationConfig, logger arbor.ILogger) *Extractor {
	return &Extractor{
		config: config,
		logger: logger,
	}
}

// Extract builds at most maxSources citations from the assembled context,
// ordered by confidence with recency breaking ties.
func (e *Extractor) Extract(question string, context *models.Context, maxSources int) []*models.Citation {
	if context == nil || len(context.Records) == 0 {
		return nil
	}
	if maxSources <= 0 {
		maxSources = models.DefaultMaxSources
	}

	terms := retrieval.RelevanceTerms(question, context.Intent)

	citations := make([]*models.Citation, 0, len(context.Records))
	for _, candidate := range context.Records {
		citations = append(citations, e.buildCitation(candidate, terms))
	}

	sort.SliceStable(citations, func(i, j int) bool {
		if citations[i].Confidence != citations[j].Confidence {
			return citations[i].Confidence > citations[j].Confidence
		}
		return citations[i].Date.After(citations[j].Date)
	})

	citations = e.capSources(citations, maxSources)

	e.logger.Debug().
		Int("records", len(context.Records)).
		Int("citations", len(citations)).
		Msg("Citations extracted")

	return citations
}

func (e *Extractor) buildCitation(candidate *models.Candidate, terms []string) *models.Citation {
	record := candidate.Record
	span, relevance := e.bestSpan(record.Text, terms)

	confidence := e.config.RetrievalWeight*candidate.Combined + e.config.RelevanceWeight*relevance
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &models.Citation{
		SourceID:    record.ID,
		PatientID:   record.PatientID,
		PatientName: record.PatientName,
		Date:        record.Date,
		RecordType:  record.RecordType,
		Text:        span,
		Confidence:  confidence,
	}
}

// bestSpan picks the sentences that carry the question's terms, joining at
// most two. When no sentence clears the relevance floor the leading
// excerpt stands in, so every citation shows some record text.
func (e *Extractor) bestSpan(text string, terms []string) (string, float64) {
	type scored struct {
		sentence string
		density  float64
	}

	var relevant []scored
	best := 0.0
	for _, sentence := range sentenceBoundary.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		density := termDensity(sentence, terms)
		if density >= e.config.MinSpanRelevance {
			relevant = append(relevant, scored{sentence, density})
			if density > best {
				best = density
			}
		}
	}

	if len(relevant) == 0 {
		return e.leadingExcerpt(text), 0
	}

	span := relevant[0].sentence
	if len(relevant) > 1 {
		span += ". " + relevant[1].sentence
	}
	return span, best
}

func (e *Extractor) leadingExcerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= e.config.ExcerptLength {
		return text
	}
	cut := e.config.ExcerptLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return strings.TrimSpace(text[:cut])
}

// capSources enforces the source limit. A citation below the confidence
// threshold is excluded only when stronger citations already fill every
// slot; while slots remain free weak evidence still surfaces.
func (e *Extractor) capSources(citations []*models.Citation, maxSources int) []*models.Citation {
	strong := 0
	for _, citation := range citations {
		if citation.Confidence >= e.config.LowConfidence {
			strong++
		}
	}

	kept := make([]*models.Citation, 0, maxSources)
	for _, citation := range citations {
		if len(kept) == maxSources {
			break
		}
		if citation.Confidence < e.config.LowConfidence && strong >= maxSources {
			continue
		}
		kept = append(kept, citation)
	}
	return kept
}

// termDensity is the fraction of terms a span contains
func termDensity(span string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(span)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
