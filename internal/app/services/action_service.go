package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// Page sizes of the action lists
const (
	ActionListPageSize = 10
	HistoryPageSize    = 5
)

// ActionService defines the action registry operations
type ActionService interface {
	Create(ctx context.Context, actor auth.Actor, req *dto.ActionRequest) (*dto.ActionResponse, error)
	Get(ctx context.Context, actor auth.Actor, id int64) (*dto.ActionResponse, error)
	Update(ctx context.Context, actor auth.Actor, id int64, req *dto.ActionRequest) (*dto.ActionMutationResponse, error)
	Delete(ctx context.Context, actor auth.Actor, id int64) (*dto.DeleteActionResponse, error)
	UpdateNotes(ctx context.Context, actor auth.Actor, id int64, notes *string) (*dto.ActionResponse, error)
	ListUpcoming(ctx context.Context, actor auth.Actor, filter dto.ListFilter, page, size int) (*dto.ActionListResponse, error)
	ListMine(ctx context.Context, actor auth.Actor, filter dto.ListFilter, page, size int) (*dto.ActionListResponse, error)
}

type actionServiceImpl struct {
	store      repositories.Store
	dispatcher NotificationDispatcher
	logger     zerolog.Logger
	now        func() time.Time
}

// NewActionService creates a new ActionService
func NewActionService(store repositories.Store, dispatcher NotificationDispatcher, logger zerolog.Logger) ActionService {
	return &actionServiceImpl{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// validateActionRequest checks what binding tags cannot: the schedule must lie in the
// future and capacity may not drop below the places already taken
func validateActionRequest(req *dto.ActionRequest, now time.Time, occupied int) error {
	fields := map[string]string{}
	if req.Title == "" {
		fields["title"] = "Title is required"
	} else if len([]rune(req.Title)) > models.MaxTitleLength {
		fields["title"] = "Title must be at most 200 characters"
	}
	if req.Description == "" {
		fields["description"] = "Description is required"
	}
	if req.Location == "" {
		fields["location"] = "Location is required"
	} else if len([]rune(req.Location)) > models.MaxLocationLength {
		fields["location"] = "Location must be at most 255 characters"
	}
	if !req.Category.Valid() {
		fields["category"] = "Unknown category"
	}
	switch {
	case req.Capacity < 1:
		fields["capacity"] = "Capacity must be at least 1"
	case req.Capacity < occupied:
		fields["capacity"] = "Capacity cannot be lower than the number of accepted volunteers"
	}
	if req.ScheduledAt.IsZero() {
		fields["scheduledAt"] = "Date and time are required"
	} else if !req.ScheduledAt.After(now) {
		fields["scheduledAt"] = "The action must be scheduled in the future"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

func (s *actionServiceImpl) Create(ctx context.Context, actor auth.Actor, req *dto.ActionRequest) (*dto.ActionResponse, error) {
	if err := auth.ValidateOrganizer(actor); err != nil {
		return nil, err
	}
	req.Normalize()
	now := s.now()
	if err := validateActionRequest(req, now, 0); err != nil {
		return nil, err
	}

	action := &models.Action{OwnerID: actor.UserID}
	req.Apply(action)
	if err := s.store.Actions().Create(ctx, action); err != nil {
		s.logger.Error().Err(err).Int64("ownerID", actor.UserID).Msg("Failed to create action")
		return nil, err
	}
	s.logger.Info().Int64("actionID", action.ID).Int64("ownerID", actor.UserID).Msg("Action created")

	return s.Get(ctx, actor, action.ID)
}

func (s *actionServiceImpl) Get(ctx context.Context, actor auth.Actor, id int64) (*dto.ActionResponse, error) {
	summary, err := s.store.Actions().GetSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.FromActionSummary(summary, actor, s.now())

	if actor.Authenticated() {
		mine, err := s.store.Applications().GetByActionAndVolunteer(ctx, id, actor.UserID)
		switch {
		case err == nil:
			resp.MyApplication = &dto.MyApplicationInfo{ID: mine.ID, Status: mine.Status, StatusLabel: mine.Status.Label()}
		case !errors.Is(err, apperrors.ErrApplicationNotFound):
			return nil, err
		}
	}
	return &resp, nil
}

func (s *actionServiceImpl) Update(ctx context.Context, actor auth.Actor, id int64, req *dto.ActionRequest) (*dto.ActionMutationResponse, error) {
	req.Normalize()
	now := s.now()

	var ob *outbox
	err := s.store.InTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		action, err := tx.Actions().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.ValidateActionManagement(actor, action); err != nil {
			return err
		}
		if action.HasOccurred(now) {
			return apperrors.ErrActionOccurred
		}
		occupied, err := tx.Applications().CountAccepted(ctx, id)
		if err != nil {
			return err
		}
		if err := validateActionRequest(req, now, occupied); err != nil {
			return err
		}

		req.Apply(action)
		if err := tx.Actions().Update(ctx, action); err != nil {
			return err
		}

		volunteers, err := tx.Applications().VolunteersByStatus(ctx, id, models.StatusPending, models.StatusAccepted)
		if err != nil {
			return err
		}
		ob = newOutbox(tx)
		msg := actionChangedMessage(action.Title)
		for _, v := range volunteers {
			if err := ob.notify(ctx, v, msg, models.DetailLink(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error().Err(err).Int64("actionID", id).Msg("Failed to update action")
		}
		return nil, err
	}
	dispatchAfterCommit(ctx, s.dispatcher, ob.created)
	s.logger.Info().Int64("actionID", id).Int("notified", len(ob.created)).Msg("Action updated")

	detail, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &dto.ActionMutationResponse{Action: *detail, NotifiedVolunteers: len(ob.created)}, nil
}

func (s *actionServiceImpl) Delete(ctx context.Context, actor auth.Actor, id int64) (*dto.DeleteActionResponse, error) {
	now := s.now()

	var ob *outbox
	var title string
	err := s.store.InTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		action, err := tx.Actions().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.ValidateActionManagement(actor, action); err != nil {
			return err
		}
		if action.HasOccurred(now) {
			return apperrors.ErrActionOccurred
		}
		title = action.Title

		// Recipients are read before the cascade removes their applications
		volunteers, err := tx.Applications().VolunteersByStatus(ctx, id, models.StatusPending, models.StatusAccepted)
		if err != nil {
			return err
		}
		if err := tx.Actions().Delete(ctx, id); err != nil {
			return err
		}

		ob = newOutbox(tx)
		msg := actionDeletedMessage(title)
		for _, v := range volunteers {
			if err := ob.notify(ctx, v, msg, ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error().Err(err).Int64("actionID", id).Msg("Failed to delete action")
		}
		return nil, err
	}
	dispatchAfterCommit(ctx, s.dispatcher, ob.created)
	s.logger.Info().Int64("actionID", id).Int("notified", len(ob.created)).Msg("Action deleted")

	return &dto.DeleteActionResponse{ID: id, Title: title, NotifiedVolunteers: len(ob.created)}, nil
}

func (s *actionServiceImpl) UpdateNotes(ctx context.Context, actor auth.Actor, id int64, notes *string) (*dto.ActionResponse, error) {
	action, err := s.store.Actions().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.ValidateActionManagement(actor, action); err != nil {
		return nil, err
	}
	if !action.HasOccurred(s.now()) {
		return nil, apperrors.ErrNotYetOccurred
	}

	if err := s.store.Actions().UpdateNotes(ctx, id, trimmedOrNil(notes)); err != nil {
		s.logger.Error().Err(err).Int64("actionID", id).Msg("Failed to save organizer notes")
		return nil, err
	}
	s.logger.Debug().Int64("actionID", id).Msg("Organizer notes saved")
	return s.Get(ctx, actor, id)
}

func (s *actionServiceImpl) ListUpcoming(ctx context.Context, actor auth.Actor, filter dto.ListFilter, page, size int) (*dto.ActionListResponse, error) {
	now := s.now()
	today := helpers.StartOfDay(now)

	f := filter.ActionFilter()
	f.After = &today
	f.Ascending = true
	return s.list(ctx, actor, f, page, size, now)
}

func (s *actionServiceImpl) ListMine(ctx context.Context, actor auth.Actor, filter dto.ListFilter, page, size int) (*dto.ActionListResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}
	f := filter.ActionFilter()
	f.OwnerID = actor.UserID
	return s.list(ctx, actor, f, page, size, s.now())
}

// listOrganized returns the actor's past actions, newest first
func (s *actionServiceImpl) listOrganized(ctx context.Context, actor auth.Actor, filter dto.ListFilter, page int) (*dto.ActionListResponse, error) {
	now := s.now()
	f := filter.ActionFilter()
	f.OwnerID = actor.UserID
	f.Before = &now
	return s.list(ctx, actor, f, page, HistoryPageSize, now)
}

func (s *actionServiceImpl) list(ctx context.Context, actor auth.Actor, f models.ActionFilter, page, size int, now time.Time) (*dto.ActionListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	f.Limit, f.Offset = limit, offset

	items, total, err := s.store.Actions().List(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list actions")
		return nil, err
	}
	resp := &dto.ActionListResponse{
		Actions:    make([]dto.ActionResponse, 0, len(items)),
		Pagination: helpers.NewPaginationInfo(int64(total), page, limit),
	}
	for i := range items {
		resp.Actions = append(resp.Actions, dto.FromActionSummary(&items[i], actor, now))
	}
	return resp, nil
}

// trimmedOrNil stores blank free text as NULL
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// isDomainError reports whether err is an expected outcome rather than a failure worth logging
func isDomainError(err error) bool {
	return apperrors.Is(err, apperrors.ErrResourceNotFound,
		apperrors.ErrPermissionDenied,
		apperrors.ErrValidationFailed,
		apperrors.ErrBadRequest,
		apperrors.ErrConflict,
		apperrors.ErrActionNotFound,
		apperrors.ErrActionOccurred,
		apperrors.ErrNotYetOccurred,
		apperrors.ErrApplicationNotFound,
		apperrors.ErrActionFull,
		apperrors.ErrOwnAction,
		apperrors.ErrAlreadyApplied,
		apperrors.ErrInvalidTransition,
		apperrors.ErrNotificationNotFound,
		apperrors.ErrUnauthenticated,
	)
}
