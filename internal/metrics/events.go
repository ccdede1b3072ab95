package metrics

import (
	"context"
	"time"

	"eventmanager/internal/domain"
)

type instrumentedEventService struct {
	next domain.EventService
}

// InstrumentEventService wraps next so every call is counted and timed.
func InstrumentEventService(next domain.EventService) domain.EventService {
	return &instrumentedEventService{next: next}
}

func observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	EventOperationsTotal.WithLabelValues(operation, outcome).Inc()
	EventOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (s *instrumentedEventService) ListEvents(ctx context.Context, viewer *domain.Principal, filter domain.EventFilter, page domain.PaginationParams) (*domain.EventPage, error) {
	start := time.Now()
	result, err := s.next.ListEvents(ctx, viewer, filter, page)
	observe("list", start, err)
	return result, err
}

func (s *instrumentedEventService) GetEvent(ctx context.Context, viewer *domain.Principal, id string) (*domain.Event, error) {
	start := time.Now()
	event, err := s.next.GetEvent(ctx, viewer, id)
	observe("get", start, err)
	return event, err
}

func (s *instrumentedEventService) CreateEvent(ctx context.Context, caller *domain.Principal, input domain.EventInput) (*domain.Event, error) {
	start := time.Now()
	event, err := s.next.CreateEvent(ctx, caller, input)
	observe("create", start, err)
	return event, err
}

func (s *instrumentedEventService) UpdateEvent(ctx context.Context, caller *domain.Principal, id string, patch domain.EventPatch) (*domain.Event, error) {
	start := time.Now()
	event, err := s.next.UpdateEvent(ctx, caller, id, patch)
	observe("update", start, err)
	return event, err
}

func (s *instrumentedEventService) DeleteEvent(ctx context.Context, caller *domain.Principal, id string) error {
	start := time.Now()
	err := s.next.DeleteEvent(ctx, caller, id)
	observe("delete", start, err)
	return err
}

func (s *instrumentedEventService) CheckConflicts(ctx context.Context, caller *domain.Principal, id string) (bool, error) {
	start := time.Now()
	conflicts, err := s.next.CheckConflicts(ctx, caller, id)
	observe("conflicts", start, err)
	return conflicts, err
}

type instrumentedEmailService struct {
	next domain.EmailService
}

// InstrumentEmailService wraps next so cancellation notices are counted by result.
func InstrumentEmailService(next domain.EmailService) domain.EmailService {
	return &instrumentedEmailService{next: next}
}

func (s *instrumentedEmailService) SendEventCancelled(ctx context.Context, data *domain.EventCancelledEmailData) error {
	err := s.next.SendEventCancelled(ctx, data)
	result := "sent"
	if err != nil {
		result = "failed"
	}
	CancellationEmailsTotal.WithLabelValues(result).Inc()
	return err
}
