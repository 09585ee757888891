package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathanw33/mrsa-kds/internal/fasta"
	"github.com/jonathanw33/mrsa-kds/internal/logger"
	"github.com/jonathanw33/mrsa-kds/internal/metrics"
	"github.com/jonathanw33/mrsa-kds/internal/model"
	"github.com/jonathanw33/mrsa-kds/internal/resultstore"
	"github.com/sirupsen/logrus"
)

const (
	DefaultThreshold = 0.75
	DefaultEvalue    = 1e-10
	DefaultMaxHits   = 10
	maxBlastHits     = 500
)

type AnalysisAPI interface {
	Analyze(ctx context.Context, token, filename string, content []byte, threshold float64) (json.RawMessage, error)
	RunBlast(ctx context.Context, token, filename string, content []byte, evalue float64, maxHits int) (json.RawMessage, error)
	ReferenceGenes(ctx context.Context, token string) (json.RawMessage, error)
}

type ResultSaver interface {
	Save(ctx context.Context, raw resultstore.Raw) (model.AnalysisRecord, error)
}

// Upload - one sequence file received from the caller
type Upload struct {
	Filename string
	Content  []byte
}

type AnalysisService struct {
	api              AnalysisAPI
	store            ResultSaver
	defaultThreshold float64
	log              logrus.FieldLogger
	metrics          *metrics.Metrics
}

func NewAnalysisService(api AnalysisAPI, store ResultSaver, defaultThreshold float64, log logrus.FieldLogger, m *metrics.Metrics) *AnalysisService {
	if defaultThreshold <= 0 || defaultThreshold > 1 {
		defaultThreshold = DefaultThreshold
	}
	if log == nil {
		log = logger.Discard()
	}
	return &AnalysisService{
		api:              api,
		store:            store,
		defaultThreshold: defaultThreshold,
		log:              logger.Component(log, "analysis"),
		metrics:          m,
	}
}

func (s *AnalysisService) DefaultThreshold() float64 {
	return s.defaultThreshold
}

// Analyze validates the upload, runs the resistance analysis and records the
// result in the local history. A nil threshold selects the default. When the
// analysis succeeds but the history write fails, the record is still
// returned with Saved=false and a warning.
func (s *AnalysisService) Analyze(ctx context.Context, token string, upload Upload, threshold *float64) (model.AnalysisResponse, error) {
	if _, err := fasta.Validate(upload.Filename, upload.Content); err != nil {
		s.metrics.AnalysisRequest("invalid")
		return model.AnalysisResponse{}, err
	}

	t := s.defaultThreshold
	if threshold != nil {
		if *threshold < 0 || *threshold > 1 {
			s.metrics.AnalysisRequest("invalid")
			return model.AnalysisResponse{}, fmt.Errorf("%w: threshold must be between 0 and 1", ErrInvalidInput)
		}
		t = *threshold
	}

	body, err := s.api.Analyze(ctx, token, upload.Filename, upload.Content, t)
	if err != nil {
		s.metrics.AnalysisRequest("upstream_error")
		return model.AnalysisResponse{}, fmt.Errorf("%w: analyze sequence: %w", ErrUpstream, err)
	}

	raw, err := resultstore.DecodeRaw(body)
	if err != nil {
		s.metrics.AnalysisRequest("upstream_error")
		return model.AnalysisResponse{}, fmt.Errorf("%w: decode analysis result: %w", ErrUpstream, err)
	}

	rec, err := s.store.Save(ctx, raw)
	if err != nil {
		s.log.WithError(err).WithField("file", upload.Filename).Warn("analysis finished but history write failed")
		s.metrics.AnalysisRequest("unsaved")
		return model.AnalysisResponse{
			Status:  "ok",
			Saved:   false,
			Warning: "result could not be saved to local history",
			Data:    resultstore.Normalize(raw),
		}, nil
	}

	s.log.WithFields(logrus.Fields{
		"file":       upload.Filename,
		"status":     rec.Status,
		"confidence": rec.ConfidencePercent,
	}).Info("analysis saved")
	s.metrics.AnalysisRequest("ok")

	return model.AnalysisResponse{Status: "ok", Saved: true, Data: rec}, nil
}

// RunBlast validates the upload and returns the BLAST search result as
// reported by the backend. Zero values select the defaults.
func (s *AnalysisService) RunBlast(ctx context.Context, token string, upload Upload, evalue float64, maxHits int) (json.RawMessage, error) {
	if _, err := fasta.Validate(upload.Filename, upload.Content); err != nil {
		return nil, err
	}
	if evalue < 0 {
		return nil, fmt.Errorf("%w: evalue must not be negative", ErrInvalidInput)
	}
	if evalue == 0 {
		evalue = DefaultEvalue
	}
	if maxHits < 0 || maxHits > maxBlastHits {
		return nil, fmt.Errorf("%w: max_hits must be between 1 and %d", ErrInvalidInput, maxBlastHits)
	}
	if maxHits == 0 {
		maxHits = DefaultMaxHits
	}

	body, err := s.api.RunBlast(ctx, token, upload.Filename, upload.Content, evalue, maxHits)
	if err != nil {
		return nil, fmt.Errorf("%w: run blast: %w", ErrUpstream, err)
	}
	return body, nil
}

func (s *AnalysisService) ReferenceGenes(ctx context.Context, token string) (json.RawMessage, error) {
	body, err := s.api.ReferenceGenes(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch reference genes: %w", ErrUpstream, err)
	}
	return body, nil
}
