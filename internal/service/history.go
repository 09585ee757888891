package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathanw33/mrsa-kds/internal/client"
	"github.com/jonathanw33/mrsa-kds/internal/logger"
	"github.com/jonathanw33/mrsa-kds/internal/model"
	"github.com/jonathanw33/mrsa-kds/internal/resultstore"
	"github.com/sirupsen/logrus"
)

const remoteUnavailableWarning = "analysis server unavailable, showing locally saved results"

type RemoteHistory interface {
	History(ctx context.Context, token string) ([]json.RawMessage, error)
	Result(ctx context.Context, token, id string) (json.RawMessage, error)
}

type LocalHistory interface {
	List(ctx context.Context) []model.AnalysisRecord
	Get(ctx context.Context, key string) (model.AnalysisRecord, bool)
	Remove(ctx context.Context, key string) (bool, error)
}

// HistoryService reads the server-side history first and falls back to the
// local ResultStore when the server cannot answer. Removal is local only.
type HistoryService struct {
	remote RemoteHistory
	local  LocalHistory
	log    logrus.FieldLogger
}

// NewHistoryService - remote may be nil to serve the local history only
func NewHistoryService(remote RemoteHistory, local LocalHistory, log logrus.FieldLogger) *HistoryService {
	if log == nil {
		log = logger.Discard()
	}
	return &HistoryService{remote: remote, local: local, log: logger.Component(log, "history")}
}

func (s *HistoryService) List(ctx context.Context, token string) model.HistoryListResponse {
	if s.remote != nil {
		items, err := s.remote.History(ctx, token)
		if err == nil {
			return model.HistoryListResponse{
				Status: "ok",
				Source: model.HistorySourceRemote,
				Data:   normalizeRemote(items),
			}
		}
		resp := model.HistoryListResponse{
			Status: "ok",
			Source: model.HistorySourceLocal,
			Data:   s.local.List(ctx),
		}
		// 404 means the server has no history for this user yet.
		if !client.IsStatus(err, http.StatusNotFound) {
			s.log.WithError(err).Warn("remote history unavailable, using local history")
			resp.Warning = remoteUnavailableWarning
		}
		return resp
	}

	return model.HistoryListResponse{
		Status: "ok",
		Source: model.HistorySourceLocal,
		Data:   s.local.List(ctx),
	}
}

func (s *HistoryService) Get(ctx context.Context, token, key string) (model.HistoryDetailEnvelope, error) {
	if s.remote != nil {
		body, err := s.remote.Result(ctx, token, key)
		if err == nil {
			raw, decodeErr := resultstore.DecodeRaw(body)
			if decodeErr == nil {
				rec := resultstore.Normalize(raw)
				return model.HistoryDetailEnvelope{Status: "ok", Source: model.HistorySourceRemote, Data: &rec}, nil
			}
			err = decodeErr
		}
		if !client.IsStatus(err, http.StatusNotFound) {
			s.log.WithError(err).WithField("key", key).Debug("remote result unavailable, using local history")
		}
	}

	rec, found := s.local.Get(ctx, key)
	if !found {
		return model.HistoryDetailEnvelope{}, fmt.Errorf("%w: history record %q", ErrNotFound, key)
	}
	return model.HistoryDetailEnvelope{Status: "ok", Source: model.HistorySourceLocal, Data: &rec}, nil
}

func (s *HistoryService) Remove(ctx context.Context, key string) error {
	found, err := s.local.Remove(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: history record %q", ErrNotFound, key)
	}
	s.log.WithField("key", key).Info("history record removed")
	return nil
}

func normalizeRemote(items []json.RawMessage) []model.AnalysisRecord {
	out := make([]model.AnalysisRecord, 0, len(items))
	for _, item := range items {
		raw, err := resultstore.DecodeRaw(item)
		if err != nil {
			raw = resultstore.Raw{}
		}
		out = append(out, resultstore.Normalize(raw))
	}
	return out
}
