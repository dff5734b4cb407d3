package service

import (
	"context"

	"suctracker/backend/services/checkin-service/internal/models"
)

// invalidatingStore runs invalidate after every successful write.
type invalidatingStore struct {
	CheckinStore
	invalidate func(ctx context.Context)
}

// InvalidateOnWrite wraps store so cached aggregations are dropped once new
// check-ins are stored.
func InvalidateOnWrite(store CheckinStore, invalidate func(ctx context.Context)) CheckinStore {
	return &invalidatingStore{CheckinStore: store, invalidate: invalidate}
}

func (s *invalidatingStore) Insert(ctx context.Context, c *models.CheckIn) error {
	if err := s.CheckinStore.Insert(ctx, c); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *invalidatingStore) InsertMany(ctx context.Context, checkins []models.CheckIn) error {
	if err := s.CheckinStore.InsertMany(ctx, checkins); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}
