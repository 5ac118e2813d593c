package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/ledger"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/helpers"
	"github.com/communitylink/communitylink/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

// ApplicationService defines the application ledger operations
type ApplicationService interface {
	Apply(ctx context.Context, actor auth.Actor, actionID int64) (*dto.TransitionResponse, error)
	// Decide runs accept, reject or remove on an application of actionID
	Decide(ctx context.Context, actor auth.Actor, actionID, applicationID int64, event ledger.Event) (*dto.TransitionResponse, error)
	Cancel(ctx context.Context, actor auth.Actor, applicationID int64) (*dto.TransitionResponse, error)
	Get(ctx context.Context, actor auth.Actor, applicationID int64) (*dto.ApplicationResponse, error)
	UpdateComment(ctx context.Context, actor auth.Actor, applicationID int64, comment *string) (*dto.ApplicationResponse, error)
	ListMine(ctx context.Context, actor auth.Actor, filter dto.ListFilter, page, size int) (*dto.ApplicationListResponse, error)
	ManageView(ctx context.Context, actor auth.Actor, actionID int64) (*dto.ManageViewResponse, error)
}

type applicationServiceImpl struct {
	store      repositories.Store
	dispatcher NotificationDispatcher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(
	store repositories.Store,
	dispatcher NotificationDispatcher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) ApplicationService {
	return &applicationServiceImpl{
		store:      store,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// transitionResult collects what happened inside the transaction
type transitionResult struct {
	outcome       ledger.Outcome
	applicationID int64
	ob            *outbox
	retractedFrom int64
}

func (s *applicationServiceImpl) snapshot(ctx context.Context, tx repositories.Store, action *models.Action, volunteerID int64, current *models.ApplicationStatus) (ledger.Snapshot, error) {
	occupied, err := tx.Applications().CountAccepted(ctx, action.ID)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return ledger.Snapshot{
		OwnerID:     action.OwnerID,
		VolunteerID: volunteerID,
		Capacity:    action.Capacity,
		Occupied:    occupied,
		HasOccurred: action.HasOccurred(s.now()),
		Current:     current,
	}, nil
}

func (s *applicationServiceImpl) Apply(ctx context.Context, actor auth.Actor, actionID int64) (*dto.TransitionResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}

	var res transitionResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		action, err := tx.Actions().GetByIDForUpdate(ctx, actionID)
		if err != nil {
			return err
		}

		var current *models.ApplicationStatus
		existing, err := tx.Applications().GetByActionAndVolunteer(ctx, actionID, actor.UserID)
		switch {
		case err == nil:
			current = &existing.Status
			res.applicationID = existing.ID
		case !errors.Is(err, apperrors.ErrApplicationNotFound):
			return err
		}

		snap, err := s.snapshot(ctx, tx, action, actor.UserID, current)
		if err != nil {
			return err
		}
		if res.outcome, err = ledger.Transition(actor, ledger.EventApply, snap); err != nil {
			return err
		}
		if !res.outcome.Changed {
			return nil
		}

		if res.outcome.Create {
			app := &models.Application{ActionID: actionID, VolunteerID: actor.UserID, Status: models.StatusPending}
			if err := tx.Applications().Create(ctx, app); err != nil {
				return err
			}
			res.applicationID = app.ID
		} else if err := s.move(ctx, tx, existing.ID, res.outcome); err != nil {
			return err
		}

		res.ob = newOutbox(tx)
		return s.emit(ctx, res.ob, res.outcome.Effect, action, actor.Username, actor.UserID)
	})

	if errors.Is(err, apperrors.ErrAlreadyApplied) {
		// A concurrent apply won the insert; answer with the row it created
		existing, gerr := s.store.Applications().GetByActionAndVolunteer(ctx, actionID, actor.UserID)
		if gerr != nil {
			return nil, gerr
		}
		st := existing.Status
		res = transitionResult{outcome: ledger.Outcome{From: &st, To: st}, applicationID: existing.ID}
		err = nil
	}
	return s.finish(ctx, ledger.EventApply, res, err, actionID)
}

func (s *applicationServiceImpl) Decide(ctx context.Context, actor auth.Actor, actionID, applicationID int64, event ledger.Event) (*dto.TransitionResponse, error) {
	switch event {
	case ledger.EventAccept, ledger.EventReject, ledger.EventRemove:
	default:
		return nil, apperrors.NewBadRequestError("unsupported decision " + string(event))
	}
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}

	var res transitionResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		// The row lock serializes every decision on this action
		action, err := tx.Actions().GetByIDForUpdate(ctx, actionID)
		if err != nil {
			return err
		}
		if err := auth.ValidateActionManagement(actor, action); err != nil {
			return err
		}
		app, err := tx.Applications().GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.ActionID != actionID {
			return apperrors.ErrApplicationNotFound
		}
		res.applicationID = app.ID

		snap, err := s.snapshot(ctx, tx, action, app.VolunteerID, &app.Status)
		if err != nil {
			return err
		}
		if res.outcome, err = ledger.Transition(actor, event, snap); err != nil {
			return err
		}

		if event == ledger.EventAccept {
			ok, err := tx.Applications().AcceptIfCapacity(ctx, app.ID)
			if err != nil {
				return err
			}
			if !ok {
				return s.explainFailedAccept(ctx, tx, app.ID)
			}
		} else if err := s.move(ctx, tx, app.ID, res.outcome); err != nil {
			return err
		}

		res.ob = newOutbox(tx)
		return s.emit(ctx, res.ob, res.outcome.Effect, action, "", app.VolunteerID)
	})
	return s.finish(ctx, event, res, err, actionID)
}

// explainFailedAccept tells a full action apart from a row changed by someone else
func (s *applicationServiceImpl) explainFailedAccept(ctx context.Context, tx repositories.Store, id int64) error {
	app, err := tx.Applications().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if app.Status == models.StatusPending {
		return apperrors.ErrActionFull
	}
	return apperrors.ErrInvalidTransition
}

func (s *applicationServiceImpl) Cancel(ctx context.Context, actor auth.Actor, applicationID int64) (*dto.TransitionResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}

	var res transitionResult
	var actionID int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		detail, err := tx.Applications().GetDetail(ctx, applicationID)
		if err != nil {
			return err
		}
		if !auth.CanSeeApplication(actor, &detail.Application) {
			return apperrors.ErrApplicationNotFound
		}
		actionID = detail.ActionID
		res.applicationID = detail.ID

		action, err := tx.Actions().GetByIDForUpdate(ctx, detail.ActionID)
		if err != nil {
			return err
		}
		snap, err := s.snapshot(ctx, tx, action, detail.VolunteerID, &detail.Status)
		if err != nil {
			return err
		}
		if res.outcome, err = ledger.Transition(actor, ledger.EventCancel, snap); err != nil {
			return err
		}
		if !res.outcome.Changed {
			return nil
		}
		if err := s.move(ctx, tx, detail.ID, res.outcome); err != nil {
			return err
		}

		if res.outcome.Effect == ledger.EffectRetractApplyNotice {
			removed, err := tx.Notifications().DeleteLatestMatching(ctx, action.OwnerID, action.ManageLink(), applyNoticePrefix(detail.VolunteerUsername))
			if err != nil {
				return err
			}
			if removed {
				res.retractedFrom = action.OwnerID
			}
			return nil
		}
		res.ob = newOutbox(tx)
		return s.emit(ctx, res.ob, res.outcome.Effect, action, detail.VolunteerUsername, detail.VolunteerID)
	})
	return s.finish(ctx, ledger.EventCancel, res, err, actionID)
}

// move persists a decided status change, guarding against a concurrent change of the row
func (s *applicationServiceImpl) move(ctx context.Context, tx repositories.Store, id int64, outcome ledger.Outcome) error {
	from := []models.ApplicationStatus{}
	if outcome.From != nil {
		from = append(from, *outcome.From)
	}
	ok, err := tx.Applications().UpdateStatus(ctx, id, from, outcome.To)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewConflictError("The application was changed meanwhile, please reload and try again.")
	}
	return nil
}

// emit appends the notification an effect asks for
func (s *applicationServiceImpl) emit(ctx context.Context, ob *outbox, effect ledger.Effect, action *models.Action, username string, volunteerID int64) error {
	switch effect {
	case ledger.EffectNotifyOwnerApplied:
		return ob.notify(ctx, action.OwnerID, appliedMessage(username, action.Title), action.ManageLink())
	case ledger.EffectNotifyOwnerReapplied:
		return ob.notify(ctx, action.OwnerID, reappliedMessage(username, action.Title), action.ManageLink())
	case ledger.EffectNotifyVolunteerAccepted:
		return ob.notify(ctx, volunteerID, decisionMessage(action.Title, models.StatusAccepted), action.DetailLink())
	case ledger.EffectNotifyVolunteerRejected:
		return ob.notify(ctx, volunteerID, decisionMessage(action.Title, models.StatusRejected), action.DetailLink())
	case ledger.EffectNotifyVolunteerRemoved:
		return ob.notify(ctx, volunteerID, removedMessage(action.Title), action.DetailLink())
	case ledger.EffectNotifyOwnerCancelled:
		return ob.notify(ctx, action.OwnerID, cancelledMessage(username, action.Title), action.ManageLink())
	}
	return nil
}

// finish records the event, dispatches committed notifications and builds the response
func (s *applicationServiceImpl) finish(ctx context.Context, event ledger.Event, res transitionResult, err error, actionID int64) (*dto.TransitionResponse, error) {
	if err != nil {
		s.metrics.ObserveTransition(string(event), resultLabel(err))
		if isDomainError(err) {
			s.logger.Warn().Err(err).Str("event", string(event)).Int64("actionID", actionID).Msg("Application transition rejected")
		} else {
			s.logger.Error().Err(err).Str("event", string(event)).Int64("actionID", actionID).Msg("Application transition failed")
		}
		return nil, err
	}

	outcome := dto.OutcomeUnchanged
	if res.outcome.Changed {
		outcome = dto.OutcomeChanged
	}
	s.metrics.ObserveTransition(string(event), strings.ToLower(outcome))

	if res.ob != nil {
		dispatchAfterCommit(ctx, s.dispatcher, res.ob.created)
	}
	if res.retractedFrom > 0 && s.dispatcher != nil {
		s.dispatcher.Invalidate(ctx, res.retractedFrom)
	}

	detail, err := s.store.Applications().GetDetail(ctx, res.applicationID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("event", string(event)).
		Int64("applicationID", detail.ID).
		Str("status", string(detail.Status)).
		Bool("changed", res.outcome.Changed).
		Msg("Application transition")

	return &dto.TransitionResponse{
		Outcome:     outcome,
		Message:     transitionMessage(event, res.outcome, detail.ActionTitle),
		Application: dto.FromApplicationDetail(detail, s.now()),
	}, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrActionFull):
		return "full"
	case errors.Is(err, apperrors.ErrActionOccurred):
		return "occurred"
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrPermissionDenied), errors.Is(err, apperrors.ErrOwnAction):
		return "denied"
	case errors.Is(err, apperrors.ErrApplicationNotFound), errors.Is(err, apperrors.ErrActionNotFound):
		return "not_found"
	}
	return "error"
}

// transitionMessage is the confirmation shown to the caller
func transitionMessage(event ledger.Event, o ledger.Outcome, title string) string {
	if !o.Changed {
		switch event {
		case ledger.EventApply:
			return "You have already applied to '" + title + "'. Current status: " + o.To.Label() + "."
		case ledger.EventCancel:
			return "This application is already " + strings.ToLower(o.To.Label()) + "."
		}
		return "Nothing changed."
	}
	switch event {
	case ledger.EventApply:
		return "Your application to '" + title + "' was sent."
	case ledger.EventAccept:
		return "Application accepted."
	case ledger.EventReject:
		return "Application rejected."
	case ledger.EventRemove:
		return "Volunteer removed from the action."
	case ledger.EventCancel:
		return "Your application to '" + title + "' was cancelled."
	}
	return "Done."
}

func (s *applicationServiceImpl) Get(ctx context.Context, actor auth.Actor, applicationID int64) (*dto.ApplicationResponse, error) {
	detail, err := s.store.Applications().GetDetail(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !auth.CanSeeApplication(actor, &detail.Application) {
		return nil, apperrors.ErrApplicationNotFound
	}
	resp := dto.FromApplicationDetail(detail, s.now())
	return &resp, nil
}

func (s *applicationServiceImpl) UpdateComment(ctx context.Context, actor auth.Actor, applicationID int64, comment *string) (*dto.ApplicationResponse, error) {
	detail, err := s.store.Applications().GetDetail(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !auth.CanSeeApplication(actor, &detail.Application) {
		return nil, apperrors.ErrApplicationNotFound
	}
	if !detail.ActionScheduledAt.Before(s.now()) {
		return nil, apperrors.ErrNotYetOccurred
	}
	if err := s.store.Applications().UpdateComment(ctx, applicationID, trimmedOrNil(comment)); err != nil {
		s.logger.Error().Err(err).Int64("applicationID", applicationID).Msg("Failed to save comment")
		return nil, err
	}
	s.logger.Debug().Int64("applicationID", applicationID).Msg("Application comment saved")
	return s.Get(ctx, actor, applicationID)
}

func (s *applicationServiceImpl) ListMine(ctx context.Context, actor auth.Actor, filter dto.ListFilter, page, size int) (*dto.ApplicationListResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}
	f := filter.ApplicationFilter(actor.UserID)
	f.Ascending = true
	return s.list(ctx, f, page, size)
}

// listParticipation returns the actor's past accepted or cancelled applications, newest first
func (s *applicationServiceImpl) listParticipation(ctx context.Context, actor auth.Actor, filter dto.ListFilter, page int) (*dto.ApplicationListResponse, error) {
	now := s.now()
	f := filter.ApplicationFilter(actor.UserID)
	f.Statuses = []models.ApplicationStatus{models.StatusAccepted, models.StatusCancelled}
	f.Before = &now
	return s.list(ctx, f, page, HistoryPageSize)
}

func (s *applicationServiceImpl) list(ctx context.Context, f models.ApplicationFilter, page, size int) (*dto.ApplicationListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	f.Limit, f.Offset = limit, offset

	items, total, err := s.store.Applications().List(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Int64("volunteerID", f.VolunteerID).Msg("Failed to list applications")
		return nil, err
	}
	return &dto.ApplicationListResponse{
		Applications: dto.FromApplicationDetails(items, s.now()),
		Pagination:   helpers.NewPaginationInfo(int64(total), page, limit),
	}, nil
}

func (s *applicationServiceImpl) ManageView(ctx context.Context, actor auth.Actor, actionID int64) (*dto.ManageViewResponse, error) {
	summary, err := s.store.Actions().GetSummary(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if err := auth.ValidateActionManagement(actor, &summary.Action); err != nil {
		return nil, err
	}
	items, err := s.store.Applications().ListByAction(ctx, actionID)
	if err != nil {
		s.logger.Error().Err(err).Int64("actionID", actionID).Msg("Failed to list action applications")
		return nil, err
	}

	now := s.now()
	view := &dto.ManageViewResponse{
		Action:    dto.FromActionSummary(summary, actor, now),
		Pending:   []dto.ApplicationResponse{},
		Accepted:  []dto.ApplicationResponse{},
		Rejected:  []dto.ApplicationResponse{},
		Cancelled: []dto.ApplicationResponse{},
	}
	for i := range items {
		r := dto.FromApplicationDetail(&items[i], now)
		switch r.Status {
		case models.StatusPending:
			view.Pending = append(view.Pending, r)
		case models.StatusAccepted:
			view.Accepted = append(view.Accepted, r)
		case models.StatusRejected:
			view.Rejected = append(view.Rejected, r)
		case models.StatusCancelled:
			view.Cancelled = append(view.Cancelled, r)
		}
	}
	byUsername := func(list []dto.ApplicationResponse) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].VolunteerUsername < list[j].VolunteerUsername })
	}
	byUsername(view.Accepted)
	byUsername(view.Rejected)
	return view, nil
}
