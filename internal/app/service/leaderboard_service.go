package service

import (
	"context"
	"strconv"

	"codeduel/internal/domain/model"
	"codeduel/internal/domain/repository"
	"codeduel/internal/platform/logging"

	log "github.com/sirupsen/logrus"
)

// BoardCache is a read-through store for computed leaderboards.
type BoardCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// LeaderboardService ranks users by distinct problems solved in practice.
type LeaderboardService struct {
	submissionRepo repository.SubmissionRepository
	cache          BoardCache
	log            *log.Entry
}

func NewLeaderboardService(subRepo repository.SubmissionRepository, cache BoardCache) *LeaderboardService {
	return &LeaderboardService{submissionRepo: subRepo, cache: cache, log: logging.Component("leaderboard")}
}

func (s *LeaderboardService) Global(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	key := "global:" + strconv.Itoa(limit)

	var entries []model.LeaderboardEntry
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, &entries)
		if err != nil {
			s.log.WithError(err).Warn("leaderboard cache read failed")
		} else if hit {
			return entries, nil
		}
	}

	entries, err := s.submissionRepo.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, entries); err != nil {
			s.log.WithError(err).Warn("leaderboard cache write failed")
		}
	}
	return entries, nil
}
