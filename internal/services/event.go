package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventmanager/internal/clock"
	"eventmanager/internal/domain"
)

// ErrLocationBooked is returned when location conflicts are enforced and the window overlaps
// another event at the same location.
var ErrLocationBooked = fmt.Errorf("%w: location already booked for this time", domain.ErrConflict)

// EventServiceDeps collects the collaborators of the event service.
type EventServiceDeps struct {
	Events        domain.EventRepository
	Speakers      domain.SpeakerRepository
	EventSpeakers domain.EventSpeakerRepository
	Locations     domain.LocationRepository
	Registrations domain.RegistrationRepository
	Tx            domain.Transactor
	// Email is optional; without it deletions send no cancellation notices.
	Email   domain.EmailService
	Clock   clock.Clock
	Logger  *slog.Logger
	Timeout time.Duration
	// EnforceLocationConflicts rejects creates and updates that overlap another event at the same location.
	EnforceLocationConflicts bool
}

type eventService struct {
	eventRepo        domain.EventRepository
	speakerRepo      domain.SpeakerRepository
	eventSpeakerRepo domain.EventSpeakerRepository
	locationRepo     domain.LocationRepository
	registrationRepo domain.RegistrationRepository
	tx               domain.Transactor
	emailService     domain.EmailService
	clock            clock.Clock
	logger           *slog.Logger
	contextTimeout   time.Duration
	enforceConflicts bool
}

func NewEventService(deps EventServiceDeps) domain.EventService {
	s := &eventService{
		eventRepo:        deps.Events,
		speakerRepo:      deps.Speakers,
		eventSpeakerRepo: deps.EventSpeakers,
		locationRepo:     deps.Locations,
		registrationRepo: deps.Registrations,
		tx:               deps.Tx,
		emailService:     deps.Email,
		clock:            deps.Clock,
		logger:           deps.Logger,
		contextTimeout:   deps.Timeout,
		enforceConflicts: deps.EnforceLocationConflicts,
	}
	if s.clock == nil {
		s.clock = clock.NewSystem()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *eventService) ListEvents(ctx context.Context, viewer *domain.Principal, filter domain.EventFilter, page domain.PaginationParams) (*domain.EventPage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	page = page.Normalize()
	q := domain.EventQuery{
		Filter:      filter,
		OrganizerID: viewer.ID(),
		Now:         s.clock.Now(),
		ViewerID:    registrationViewer(viewer),
	}
	events, err := s.eventRepo.List(ctx, q, page)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if err := s.hydrateSpeakers(ctx, events...); err != nil {
		return nil, err
	}

	result := &domain.EventPage{Events: events}
	if filter.Limit > 0 {
		return result, nil
	}
	total, err := s.eventRepo.Count(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	result.Pagination = domain.NewPageInfo(page, total)
	return result, nil
}

func (s *eventService) GetEvent(ctx context.Context, viewer *domain.Principal, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.loadEvent(ctx, viewer, id)
}

func (s *eventService) CreateEvent(ctx context.Context, caller *domain.Principal, input domain.EventInput) (*domain.Event, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.clock.Now()
	event := &domain.Event{
		OrganizerID:          caller.UserID,
		Title:                input.Title,
		Type:                 input.Type,
		LocationID:           input.LocationID,
		StartsAt:             input.StartsAt,
		EndsAt:               input.EndsAt,
		Description:          input.Description,
		Capacity:             input.Capacity,
		IsFeatured:           input.IsFeatured,
		RegistrationDeadline: input.RegistrationDeadline,
		Requirements:         input.Requirements,
		Agenda:               input.Agenda,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if input.Audience != nil {
		event.Audience = *input.Audience
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		speakerIDs, err := s.checkReferences(ctx, &event.LocationID, input.SpeakerIDs)
		if err != nil {
			return err
		}
		if err := s.checkLocationFree(ctx, "", event.LocationID, event.StartsAt, event.EndsAt); err != nil {
			return err
		}
		if err := s.eventRepo.Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if err := s.eventSpeakerRepo.Attach(ctx, event.ID, speakerIDs); err != nil {
			return fmt.Errorf("attach speakers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "event created", "event_id", event.ID, "organizer_id", event.OrganizerID)
	return s.loadEvent(ctx, caller, event.ID)
}

func (s *eventService) UpdateEvent(ctx context.Context, caller *domain.Principal, id string, patch domain.EventPatch) (*domain.Event, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.eventRepo.GetByID(ctx, id, "")
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}

		startsAt, endsAt := current.StartsAt, current.EndsAt
		if patch.StartsAt != nil {
			startsAt = *patch.StartsAt
		}
		if patch.EndsAt != nil {
			endsAt = *patch.EndsAt
		}
		verr := domain.NewValidationError()
		if (patch.StartsAt != nil || patch.EndsAt != nil) && !endsAt.After(startsAt) {
			verr.Add("ends_at", domain.RuleAfter)
		}
		deadline := current.RegistrationDeadline
		if patch.RegistrationDeadline != nil {
			deadline = patch.RegistrationDeadline
		}
		if (patch.RegistrationDeadline != nil || patch.StartsAt != nil) && deadline != nil && !deadline.Before(startsAt) {
			verr.Add("registration_deadline", domain.RuleBefore)
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		var requested []string
		if patch.SpeakerIDs != nil {
			requested = *patch.SpeakerIDs
		}
		if patch.LocationID != nil {
			loc := *patch.LocationID
			patch.LocationID = &loc
		}
		speakerIDs, err := s.checkReferences(ctx, patch.LocationID, requested)
		if err != nil {
			return err
		}

		locationID := current.LocationID
		if patch.LocationID != nil {
			locationID = *patch.LocationID
		}
		if patch.LocationID != nil || patch.StartsAt != nil || patch.EndsAt != nil {
			if err := s.checkLocationFree(ctx, id, locationID, startsAt, endsAt); err != nil {
				return err
			}
		}

		if !patch.IsEmpty() {
			if err := s.eventRepo.Update(ctx, id, patch); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("update event: %w", err)
			}
		}
		if patch.SpeakerIDs != nil {
			if err := s.eventSpeakerRepo.Sync(ctx, id, speakerIDs); err != nil {
				return fmt.Errorf("sync speakers: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "event updated", "event_id", id)
	return s.loadEvent(ctx, caller, id)
}

func (s *eventService) DeleteEvent(ctx context.Context, caller *domain.Principal, id string) error {
	if err := authorize(caller); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		event       *domain.Event
		registrants []*domain.Registrant
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.eventRepo.GetByID(ctx, id, "")
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}
		registrants, err = s.registrationRepo.ListRegistrants(ctx, id)
		if err != nil {
			return fmt.Errorf("list registrants: %w", err)
		}
		if _, err := s.registrationRepo.DeleteByEventID(ctx, id); err != nil {
			return fmt.Errorf("delete registrations: %w", err)
		}
		if err := s.eventSpeakerRepo.DetachAll(ctx, id); err != nil {
			return fmt.Errorf("detach speakers: %w", err)
		}
		if err := s.eventRepo.Delete(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "event deleted", "event_id", id, "registrations", len(registrants))
	s.notifyCancelled(ctx, event, registrants)
	return nil
}

func (s *eventService) CheckConflicts(ctx context.Context, caller *domain.Principal, id string) (bool, error) {
	if err := authorize(caller); err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id, "")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("get event: %w", err)
	}
	conflict, err := s.eventRepo.HasConflicts(ctx, event.ID, event.LocationID, event.StartsAt, event.EndsAt)
	if err != nil {
		return false, fmt.Errorf("check conflicts: %w", err)
	}
	return conflict, nil
}

// authorize requires an authenticated caller holding the manage-events capability.
func authorize(caller *domain.Principal) error {
	if caller == nil {
		return domain.ErrUnauthorized
	}
	if !caller.Can(domain.CapabilityManageEvents) {
		return domain.ErrForbidden
	}
	return nil
}

// registrationViewer returns the user whose registrations annotate a read, if any.
func registrationViewer(viewer *domain.Principal) string {
	if viewer.IsAudience() {
		return viewer.UserID
	}
	return ""
}

func (s *eventService) loadEvent(ctx context.Context, viewer *domain.Principal, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id, registrationViewer(viewer))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := s.hydrateSpeakers(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) hydrateSpeakers(ctx context.Context, events ...*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	byEvent, err := s.eventSpeakerRepo.ListByEventIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("list speakers: %w", err)
	}
	for _, e := range events {
		if speakers, ok := byEvent[e.ID]; ok {
			e.Speakers = speakers
		} else {
			e.Speakers = []*domain.Speaker{}
		}
	}
	return nil
}

// checkReferences verifies that the referenced location and speakers exist. Ids are
// compared in canonical UUID form: *locationID is rewritten to it and the returned speaker
// ids are canonical and de-duplicated. Ids that are not UUIDs fail the exists rule. A nil
// locationID skips the location check.
func (s *eventService) checkReferences(ctx context.Context, locationID *string, speakerIDs []string) ([]string, error) {
	verr := domain.NewValidationError()
	if locationID != nil {
		id, ok := canonicalID(*locationID)
		if ok {
			*locationID = id
			exists, err := s.locationRepo.Exists(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("check location: %w", err)
			}
			ok = exists
		}
		if !ok {
			verr.Add("location_id", domain.RuleExists)
		}
	}
	ids, ok := canonicalIDs(speakerIDs)
	if !ok {
		verr.Add("speaker_ids.*", domain.RuleExists)
	} else if len(ids) > 0 {
		missing, err := s.speakerRepo.MissingIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("check speakers: %w", err)
		}
		if len(missing) > 0 {
			verr.Add("speaker_ids.*", domain.RuleExists)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *eventService) checkLocationFree(ctx context.Context, eventID, locationID string, startsAt, endsAt time.Time) error {
	if !s.enforceConflicts {
		return nil
	}
	conflict, err := s.eventRepo.HasConflicts(ctx, eventID, locationID, startsAt, endsAt)
	if err != nil {
		return fmt.Errorf("check conflicts: %w", err)
	}
	if conflict {
		return ErrLocationBooked
	}
	return nil
}

// notifyCancelled emails every registrant of a deleted event. Failures are logged and skipped.
func (s *eventService) notifyCancelled(ctx context.Context, event *domain.Event, registrants []*domain.Registrant) {
	if s.emailService == nil || event == nil {
		return
	}
	for _, r := range registrants {
		if r.Email == "" {
			continue
		}
		err := s.emailService.SendEventCancelled(ctx, &domain.EventCancelledEmailData{
			Email:      r.Email,
			Name:       r.Name,
			EventTitle: event.Title,
			StartsAt:   event.StartsAt,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "cancellation notice failed", "event_id", event.ID, "user_id", r.UserID, "error", err)
		}
	}
}

// canonicalID returns id in lowercase hyphenated UUID form.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// canonicalIDs canonicalizes and de-duplicates ids. It reports false when any id is not
// a UUID. A nil slice stays nil.
func canonicalIDs(ids []string) ([]string, bool) {
	if ids == nil {
		return nil, true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		c, ok := canonicalID(id)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return uniqueIDs(out), true
}

// uniqueIDs drops duplicates while keeping the first occurrence order.
func uniqueIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
