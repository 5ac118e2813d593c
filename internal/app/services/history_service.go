package services

import (
	"context"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

// HistoryService defines the history view
type HistoryService interface {
	// Get pages participations with pagePart and organized actions with pageOrg
	Get(ctx context.Context, actor auth.Actor, filter dto.ListFilter, pagePart, pageOrg int) (*dto.HistoryResponse, error)
}

type historyServiceImpl struct {
	actions      *actionServiceImpl
	applications *applicationServiceImpl
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(store repositories.Store, logger zerolog.Logger) HistoryService {
	return &historyServiceImpl{
		actions:      &actionServiceImpl{store: store, logger: logger, now: time.Now},
		applications: &applicationServiceImpl{store: store, logger: logger, now: time.Now},
	}
}

func (s *historyServiceImpl) Get(ctx context.Context, actor auth.Actor, filter dto.ListFilter, pagePart, pageOrg int) (*dto.HistoryResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}

	participations, err := s.applications.listParticipation(ctx, actor, filter, pagePart)
	if err != nil {
		return nil, err
	}
	resp := &dto.HistoryResponse{
		Participations: *participations,
		IsOrganizer:    actor.CanOrganize(),
	}
	if resp.IsOrganizer {
		if resp.Organized, err = s.actions.listOrganized(ctx, actor, filter, pageOrg); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
