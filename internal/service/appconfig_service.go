package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/careflow/adrenav/internal/pkg/errors"

	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/repo"
)

const appConfigCacheTTL = 30 * time.Second

// AppConfigService holds the clinic-editable settings. With no store
// configured every key reads as unset.
type AppConfigService struct {
	repo  *repo.AppConfigRepo
	cache *expirable.LRU[string, map[string]string]
}

func NewAppConfigService(r *repo.AppConfigRepo) *AppConfigService {
	return &AppConfigService{
		repo:  r,
		cache: expirable.NewLRU[string, map[string]string](1, nil, appConfigCacheTTL),
	}
}

// Map returns the set keys only. Failures degrade to an empty map so a
// chat turn never fails on clinic config.
func (s *AppConfigService) Map(ctx context.Context) map[string]string {
	if s.repo == nil {
		return map[string]string{}
	}
	if cached, ok := s.cache.Get("config"); ok {
		return cached
	}
	entries, err := s.repo.List(ctx, model.AppConfigKeys)
	if err != nil {
		logutil.GetLogger(ctx).Warn("read app config failed", zap.Error(err))
		return map[string]string{}
	}
	values := make(map[string]string, len(entries))
	for _, entry := range entries {
		values[entry.Key] = entry.Value
	}
	s.cache.Add("config", values)
	return values
}

// Public projects the full key set with nulls for unset keys, the
// shape the patient-facing client binds to.
func (s *AppConfigService) Public(ctx context.Context) map[string]*string {
	values := s.Map(ctx)
	out := make(map[string]*string, len(model.AppConfigKeys))
	for _, key := range model.AppConfigKeys {
		if v, ok := values[key]; ok {
			value := v
			out[key] = &value
		} else {
			out[key] = nil
		}
	}
	return out
}

// Entries lists the stored config rows, ordered by key. An empty list
// when no store is configured.
func (s *AppConfigService) Entries(ctx context.Context) ([]model.AppConfigEntry, error) {
	if s.repo == nil {
		return []model.AppConfigEntry{}, nil
	}
	entries, err := s.repo.List(ctx, model.AppConfigKeys)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.AppConfigEntry{}
	}
	return entries, nil
}

// Update writes the given keys. Unknown keys are rejected before any
// write happens.
func (s *AppConfigService) Update(ctx context.Context, values map[string]string) error {
	if s.repo == nil {
		return appErr.ErrNoStore
	}
	for key := range values {
		if !model.IsAppConfigKey(key) {
			return appErr.ErrInvalid
		}
	}
	for key, value := range values {
		entry := &model.AppConfigEntry{Key: key, Value: value, Mtime: time.Now().UnixMilli()}
		if err := s.repo.Upsert(ctx, entry); err != nil {
			return err
		}
	}
	s.cache.Remove("config")
	return nil
}
