package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeduel/internal/common"
	"codeduel/internal/domain/model"
	"codeduel/internal/domain/repository"
	"codeduel/internal/platform/logging"
	"codeduel/internal/platform/metrics"

	log "github.com/sirupsen/logrus"
)

const streakUpdateAttempts = 3

// UserLocker serializes work per user across processes.
type UserLocker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

type StreakService struct {
	userRepo       repository.UserRepository
	submissionRepo repository.SubmissionRepository
	locker         UserLocker
	loc            *time.Location
	log            *log.Entry
}

// NewStreakService computes calendar days in loc. locker may be nil, in which
// case the optimistic version check alone guards concurrent updates.
func NewStreakService(userRepo repository.UserRepository, subRepo repository.SubmissionRepository, locker UserLocker, loc *time.Location) *StreakService {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakService{
		userRepo:       userRepo,
		submissionRepo: subRepo,
		locker:         locker,
		loc:            loc,
		log:            logging.Component("streak"),
	}
}

type StreakView struct {
	Streak         int             `json:"streak"`
	LastSolvedDate string          `json:"lastSolvedDate"`
	Calendar       map[string]bool `json:"calendar"`
	Timezone       string          `json:"timezone"`
}

// RecordSolve credits one accepted practice submission made at solvedAt.
func (s *StreakService) RecordSolve(ctx context.Context, userID string, solvedAt time.Time) (model.StreakChange, error) {
	var change model.StreakChange
	apply := func(ctx context.Context) error {
		var err error
		change, err = s.applySolve(ctx, userID, solvedAt)
		return err
	}

	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, "user:"+userID, apply)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("recording solve for user %s: %w", userID, err)
	}

	metrics.StreakUpdatesTotal.WithLabelValues(string(change)).Inc()
	s.log.WithFields(log.Fields{"user_id": userID, "change": change}).Debug("streak updated")
	return change, nil
}

// applySolve re-reads the user after a version conflict and applies the rule again.
func (s *StreakService) applySolve(ctx context.Context, userID string, solvedAt time.Time) (model.StreakChange, error) {
	for attempt := 1; attempt <= streakUpdateAttempts; attempt++ {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return "", err
		}
		marked := user.Calendar[model.DayKey(solvedAt, s.loc)]
		change := user.RecordSolve(solvedAt, s.loc)
		if change == model.StreakUnchanged && marked {
			return change, nil
		}
		err = s.userRepo.UpdateStreak(ctx, user)
		if err == nil {
			return change, nil
		}
		if !errors.Is(err, common.ErrConflict) {
			return "", err
		}
		s.log.WithFields(log.Fields{"user_id": userID, "attempt": attempt}).Warn("streak update raced, retrying")
	}
	return "", fmt.Errorf("streak update gave up after %d attempts: %w", streakUpdateAttempts, common.ErrConflict)
}

func (s *StreakService) GetStreak(ctx context.Context, userID string) (*StreakView, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StreakView{
		Streak:         user.Streak,
		LastSolvedDate: user.LastSolvedDate,
		Calendar:       user.Calendar,
		Timezone:       s.loc.String(),
	}, nil
}

// Activity counts accepted submissions per calendar day.
func (s *StreakService) Activity(ctx context.Context, userID string) (map[string]int, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.submissionRepo.CountAcceptedByDay(ctx, userID, s.loc.String())
}
