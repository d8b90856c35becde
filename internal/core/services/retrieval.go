package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Canned answer text.
const (
	answerPreamble = "Based on the Cyber Laws, "
	notFoundAnswer = "I couldn't find specific information on that topic in the cyber laws database. " +
		"Please try rephrasing your question or contact legal authorities for specific queries."
	disclaimer = "\n\n**Disclaimer**: This information is based on available cyber laws. " +
		"For legal advice, please consult a qualified legal professional."
	unknownTitle = "Unknown"
)

// Audit detail limits on the stored query text.
const (
	maxAuditQueryChars      = 500
	maxAuditErrorQueryChars = 100
)

// leadIns introduce the context block per intent.
var leadIns = map[domain.Intent]string{
	domain.IntentDefinition: "here is how the relevant provisions define it:",
	domain.IntentPenalty:    "here are the applicable penalties and punishments:",
	domain.IntentProcedure:  "here is the applicable procedure:",
	domain.IntentSection:    "here are the relevant sections:",
	domain.IntentGeneral:    "here's the information:",
}

// RetrievalService answers questions from the vector index.
type RetrievalService struct {
	classifier driven.IntentClassifier
	index      driving.VectorIndex
	audit      driving.AuditService
	cfg        domain.RetrievalSettings
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	classifier driven.IntentClassifier,
	index driving.VectorIndex,
	audit driving.AuditService,
	cfg domain.RetrievalSettings,
) *RetrievalService {
	defaults := domain.DefaultAppSettings("").Retrieval
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = defaults.ContextChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &RetrievalService{
		classifier: classifier,
		index:      index,
		audit:      audit,
		cfg:        cfg,
	}
}

// Answer classifies the query, searches the index and synthesises a cited
// answer. Exactly one CHAT_QUERY or CHAT_ERROR event is recorded per call.
func (s *RetrievalService) Answer(ctx context.Context, query string, actor domain.Actor) (*domain.Answer, error) {
	answer, err := s.answer(ctx, query)
	if err != nil {
		s.audit.Log(ctx, domain.AuditEvent{
			Actor:     actor.ID,
			Action:    domain.ActionChatError,
			IPAddress: actor.IPAddress,
			UserAgent: actor.UserAgent,
			Details: map[string]any{
				"error": err.Error(),
				"query": truncateRunes(query, maxAuditErrorQueryChars),
			},
		})
		return nil, err
	}

	s.audit.Log(ctx, domain.AuditEvent{
		Actor:     actor.ID,
		Action:    domain.ActionChatQuery,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
		Details: map[string]any{
			"query":           truncateRunes(query, maxAuditQueryChars),
			"intent":          string(answer.Intent),
			"confidence":      answer.Confidence,
			"sources":         len(answer.Sources),
			"response_length": utf8.RuneCountInString(answer.Answer),
		},
	})
	return answer, nil
}

func (s *RetrievalService) answer(ctx context.Context, query string) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrValidation)
	}

	intent := s.classifier.Classify(query)

	hits, err := s.search(ctx, query, 2*s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	retained := rank(hits, intent, s.cfg.MinScore, s.cfg.TopK)
	if len(retained) == 0 {
		return &domain.Answer{
			Answer:  notFoundAnswer,
			Intent:  intent,
			Sources: []domain.AnswerSource{},
		}, nil
	}

	return synthesise(intent, retained, s.cfg.ContextChars), nil
}

// search bounds the index call by the configured timeout. A search that
// does not finish in time is abandoned and treated as finding nothing;
// cancellation of ctx itself is an error.
func (s *RetrievalService) search(ctx context.Context, query string, k int) ([]domain.ScoredText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resultCh := make(chan []domain.ScoredText, 1)
	go func() {
		resultCh <- s.index.Search(ctx, query, k)
	}()

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	select {
	case hits := <-resultCh:
		return hits, nil
	case <-timer.C:
		logger.Warnw("search degraded: vector index timed out", "timeout", s.cfg.Timeout)
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// rank drops hits at or below minScore, orders the rest by score and keeps
// the best k. For section queries, hits carrying a section title come first
// regardless of score.
func rank(hits []domain.ScoredText, intent domain.Intent, minScore float64, k int) []domain.ScoredText {
	retained := make([]domain.ScoredText, 0, len(hits))
	for _, hit := range hits {
		if hit.Score > minScore {
			retained = append(retained, hit)
		}
	}

	preferSections := intent == domain.IntentSection
	sort.SliceStable(retained, func(i, j int) bool {
		if preferSections {
			hi, hj := retained[i].SectionTitle() != "", retained[j].SectionTitle() != ""
			if hi != hj {
				return hi
			}
		}
		return retained[i].Score > retained[j].Score
	})

	if len(retained) > k {
		retained = retained[:k]
	}
	return retained
}

// synthesise renders the deterministic answer template.
func synthesise(intent domain.Intent, retained []domain.ScoredText, contextChars int) *domain.Answer {
	texts := make([]string, len(retained))
	sources := make([]domain.AnswerSource, len(retained))
	var total float64
	for i, hit := range retained {
		texts[i] = hit.Text
		sources[i] = domain.AnswerSource{
			DocumentID: metaString(hit.Metadata, domain.MetaDocumentID),
			Title:      metaString(hit.Metadata, domain.MetaDocumentTitle),
			Section:    hit.SectionTitle(),
			Confidence: percent(hit.Score),
		}
		if sources[i].Title == "" {
			sources[i].Title = unknownTitle
		}
		total += hit.Score
	}

	leadIn, ok := leadIns[intent]
	if !ok {
		leadIn = leadIns[domain.IntentGeneral]
	}

	var b strings.Builder
	b.WriteString(answerPreamble)
	b.WriteString(leadIn)
	b.WriteString("\n\nContext from relevant laws:\n")
	b.WriteString(truncateRunes(strings.Join(texts, "\n\n"), contextChars))
	b.WriteString(disclaimer)

	return &domain.Answer{
		Answer:      b.String(),
		Intent:      intent,
		Sources:     sources,
		Confidence:  percent(total / float64(len(retained))),
		ContextUsed: len(retained),
	}
}

// percent scales a [0,1] score to a percentage rounded to two decimals.
func percent(score float64) float64 {
	return math.Round(score*100*100) / 100
}

func metaString(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
