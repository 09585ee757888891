package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathanw33/mrsa-kds/internal/model"
)

var ErrExplainUnavailable = errors.New("explanation service not configured")

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, string, error)
}

type RecordLookup interface {
	Get(ctx context.Context, token, key string) (model.HistoryDetailEnvelope, error)
}

// ExplainService produces a plain-language summary of one history record.
type ExplainService struct {
	history RecordLookup
	gen     TextGenerator
}

// NewExplainService - gen may be nil when no GenAI key is configured
func NewExplainService(history RecordLookup, gen TextGenerator) *ExplainService {
	return &ExplainService{history: history, gen: gen}
}

func (s *ExplainService) Explain(ctx context.Context, token, key string) (model.ExplainResponse, error) {
	if s.gen == nil {
		return model.ExplainResponse{}, ErrExplainUnavailable
	}
	env, err := s.history.Get(ctx, token, key)
	if err != nil {
		return model.ExplainResponse{}, err
	}
	text, generatedBy, err := s.gen.Generate(ctx, buildExplainPrompt(*env.Data))
	if err != nil {
		return model.ExplainResponse{}, fmt.Errorf("failed to explain record: %w", err)
	}
	return model.ExplainResponse{
		Status:      "ok",
		Key:         key,
		Model:       generatedBy,
		Explanation: text,
	}, nil
}

func buildExplainPrompt(rec model.AnalysisRecord) string {
	var b strings.Builder
	b.WriteString("Explain this Staphylococcus aureus antibiotic resistance result to a clinician in plain language. ")
	b.WriteString("Keep it under 150 words and do not invent findings.\n\n")
	fmt.Fprintf(&b, "Sample: %s\n", orDash(rec.SampleLabel))
	fmt.Fprintf(&b, "Resistance status: %s\n", rec.Status)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", rec.ConfidencePercent)
	fmt.Fprintf(&b, "Identified genes: %s\n", orDash(strings.Join(rec.IdentifiedGenes, ", ")))
	for _, region := range rec.MatchingRegions {
		fmt.Fprintf(&b, "Alignment: %s query %d-%d identity %.1f%%\n",
			region.GeneName, region.QueryStart, region.QueryEnd, region.PercentIdentity)
	}
	if t := rec.TreatmentRecommendations; t != nil {
		fmt.Fprintf(&b, "Recommended antibiotics: %s\n", orDash(strings.Join(t.RecommendedAntibiotics, ", ")))
		fmt.Fprintf(&b, "Antibiotics to avoid: %s\n", orDash(strings.Join(t.AvoidAntibiotics, ", ")))
		if t.Notes != nil && *t.Notes != "" {
			fmt.Fprintf(&b, "Notes: %s\n", *t.Notes)
		}
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
