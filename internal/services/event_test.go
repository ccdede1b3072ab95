package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"eventmanager/internal/clock"
	"eventmanager/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2030, 5, 10, 12, 0, 0, 0, time.UTC)
	organizer = domain.NewPrincipal("org-1", []string{"organizer"})
	attendee  = domain.NewPrincipal("user-1", []string{"audience"})
	errBoom   = errors.New("boom")
)

const (
	locMain  = "6f1c2d3e-0a4b-4c5d-8e6f-7a8b9c0d1e2f"
	locAnnex = "0b7e4a1c-93d2-4f60-a5b8-c1d2e3f4a5b6"
	spAda    = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"
	spGrace  = "b1ffcd88-8d1a-4df9-ac7e-7cca0e491b22"
	spLinus  = "c2aade77-7e2b-4ca0-bd8f-8ddb1f5a2c33"
)

// memStore backs every fake repository so the fake transactor can snapshot and restore it.
type memStore struct {
	events        map[string]*domain.Event
	locations     map[string]bool
	speakers      map[string]*domain.Speaker
	eventSpeakers map[string][]string
	registrations map[string][]*domain.Registrant
	nextID        int
	// failOn makes the named operation return errBoom.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{
		events:        map[string]*domain.Event{},
		locations:     map[string]bool{locMain: true, locAnnex: true},
		speakers:      map[string]*domain.Speaker{spAda: {ID: spAda, Name: "Ada"}, spGrace: {ID: spGrace, Name: "Grace"}, spLinus: {ID: spLinus, Name: "Linus"}},
		eventSpeakers: map[string][]string{},
		registrations: map[string][]*domain.Registrant{},
		nextID:        1,
	}
}

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		return errBoom
	}
	return nil
}

func (m *memStore) snapshot() *memStore {
	c := &memStore{
		events:        map[string]*domain.Event{},
		locations:     m.locations,
		speakers:      m.speakers,
		eventSpeakers: map[string][]string{},
		registrations: map[string][]*domain.Registrant{},
		nextID:        m.nextID,
		failOn:        m.failOn,
	}
	for k, v := range m.events {
		e := *v
		c.events[k] = &e
	}
	for k, v := range m.eventSpeakers {
		c.eventSpeakers[k] = append([]string(nil), v...)
	}
	for k, v := range m.registrations {
		c.registrations[k] = append([]*domain.Registrant(nil), v...)
	}
	return c
}

func (m *memStore) restore(from *memStore) {
	m.events = from.events
	m.eventSpeakers = from.eventSpeakers
	m.registrations = from.registrations
	m.nextID = from.nextID
}

func (m *memStore) addEvent(e *domain.Event) *domain.Event {
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", m.nextID)
		m.nextID++
	}
	if e.OrganizerID == "" {
		e.OrganizerID = "org-1"
	}
	if e.LocationID == "" {
		e.LocationID = locMain
	}
	m.events[e.ID] = e
	return e
}

type fakeTransactor struct {
	store   *memStore
	commits int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := f.store.snapshot()
	if err := fn(ctx); err != nil {
		f.store.restore(snap)
		return err
	}
	f.commits++
	return nil
}

type fakeEventRepo struct{ s *memStore }

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if err := f.s.fail("event.create"); err != nil {
		return err
	}
	stored := *e
	f.s.addEvent(&stored)
	e.ID = stored.ID
	return nil
}

func (f *fakeEventRepo) project(e *domain.Event, viewerID string) *domain.Event {
	out := *e
	out.Speakers = []*domain.Speaker{}
	out.RegistrationsCount = len(f.s.registrations[e.ID])
	out.IsRegistered = nil
	if viewerID != "" {
		registered := false
		for _, r := range f.s.registrations[e.ID] {
			if r.UserID == viewerID {
				registered = true
			}
		}
		out.IsRegistered = &registered
	}
	return &out
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id, viewerID string) (*domain.Event, error) {
	if err := f.s.fail("event.get"); err != nil {
		return nil, err
	}
	e, ok := f.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f.project(e, viewerID), nil
}

func (f *fakeEventRepo) filter(q domain.EventQuery) []*domain.Event {
	var out []*domain.Event
	for _, e := range f.s.events {
		fl := q.Filter
		if fl.Type != "" && e.Type != fl.Type {
			continue
		}
		if fl.Upcoming && !e.StartsAt.After(q.Now) {
			continue
		}
		if fl.OwnEvents && q.OrganizerID != "" && e.OrganizerID != q.OrganizerID {
			continue
		}
		if fl.ExcludeID != "" && e.ID == fl.ExcludeID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}

func (f *fakeEventRepo) List(ctx context.Context, q domain.EventQuery, page domain.PaginationParams) ([]*domain.Event, error) {
	if err := f.s.fail("event.list"); err != nil {
		return nil, err
	}
	all := f.filter(q)
	if q.Filter.Limit > 0 {
		if len(all) > q.Filter.Limit {
			all = all[:q.Filter.Limit]
		}
	} else {
		start := page.Offset()
		if start > len(all) {
			start = len(all)
		}
		end := start + page.PageSize
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	out := make([]*domain.Event, 0, len(all))
	for _, e := range all {
		out = append(out, f.project(e, q.ViewerID))
	}
	return out, nil
}

func (f *fakeEventRepo) Count(ctx context.Context, q domain.EventQuery) (int, error) {
	return len(f.filter(q)), nil
}

func (f *fakeEventRepo) Update(ctx context.Context, id string, p domain.EventPatch) error {
	if err := f.s.fail("event.update"); err != nil {
		return err
	}
	e, ok := f.s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.LocationID != nil {
		e.LocationID = *p.LocationID
	}
	if p.StartsAt != nil {
		e.StartsAt = *p.StartsAt
	}
	if p.EndsAt != nil {
		e.EndsAt = *p.EndsAt
	}
	if p.Audience != nil {
		e.Audience = *p.Audience
	}
	if p.Description != nil {
		e.Description = p.Description
	}
	if p.Capacity != nil {
		e.Capacity = p.Capacity
	}
	if p.IsFeatured != nil {
		e.IsFeatured = *p.IsFeatured
	}
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if err := f.s.fail("event.delete"); err != nil {
		return err
	}
	if _, ok := f.s.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.s.events, id)
	return nil
}

func (f *fakeEventRepo) HasConflicts(ctx context.Context, eventID, locationID string, startsAt, endsAt time.Time) (bool, error) {
	probe := &domain.Event{ID: eventID, LocationID: locationID, StartsAt: startsAt, EndsAt: endsAt}
	if eventID == "" {
		probe.ID = "\x00new"
	}
	for _, e := range f.s.events {
		if probe.Overlaps(e) {
			return true, nil
		}
	}
	return false, nil
}

type fakeSpeakerRepo struct{ s *memStore }

func (f *fakeSpeakerRepo) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	missing := []string{}
	for _, id := range ids {
		if _, ok := f.s.speakers[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type fakeEventSpeakerRepo struct{ s *memStore }

func (f *fakeEventSpeakerRepo) Attach(ctx context.Context, eventID string, ids []string) error {
	if err := f.s.fail("speakers.attach"); err != nil {
		return err
	}
	for _, id := range ids {
		if !contains(f.s.eventSpeakers[eventID], id) {
			f.s.eventSpeakers[eventID] = append(f.s.eventSpeakers[eventID], id)
		}
	}
	return nil
}

func (f *fakeEventSpeakerRepo) Sync(ctx context.Context, eventID string, ids []string) error {
	if err := f.s.fail("speakers.sync"); err != nil {
		return err
	}
	kept := []string{}
	for _, id := range f.s.eventSpeakers[eventID] {
		if contains(ids, id) {
			kept = append(kept, id)
		}
	}
	f.s.eventSpeakers[eventID] = kept
	return f.Attach(ctx, eventID, ids)
}

func (f *fakeEventSpeakerRepo) DetachAll(ctx context.Context, eventID string) error {
	delete(f.s.eventSpeakers, eventID)
	return nil
}

func (f *fakeEventSpeakerRepo) ListByEventIDs(ctx context.Context, eventIDs []string) (map[string][]*domain.Speaker, error) {
	out := map[string][]*domain.Speaker{}
	for _, id := range eventIDs {
		for _, sid := range f.s.eventSpeakers[id] {
			out[id] = append(out[id], f.s.speakers[sid])
		}
	}
	return out, nil
}

type fakeLocationRepo struct{ s *memStore }

func (f *fakeLocationRepo) Exists(ctx context.Context, id string) (bool, error) {
	return f.s.locations[id], nil
}

type fakeRegistrationRepo struct{ s *memStore }

func (f *fakeRegistrationRepo) ListRegistrants(ctx context.Context, eventID string) ([]*domain.Registrant, error) {
	return append([]*domain.Registrant{}, f.s.registrations[eventID]...), nil
}

func (f *fakeRegistrationRepo) DeleteByEventID(ctx context.Context, eventID string) (int64, error) {
	if err := f.s.fail("registrations.delete"); err != nil {
		return 0, err
	}
	n := len(f.s.registrations[eventID])
	delete(f.s.registrations, eventID)
	return int64(n), nil
}

type fakeEmailService struct {
	sent []*domain.EventCancelledEmailData
	err  error
}

func (f *fakeEmailService) SendEventCancelled(ctx context.Context, data *domain.EventCancelledEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, data)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type serviceFixture struct {
	store *memStore
	tx    *fakeTransactor
	email *fakeEmailService
	svc   domain.EventService
}

func newFixture(enforceConflicts bool) *serviceFixture {
	store := newMemStore()
	tx := &fakeTransactor{store: store}
	email := &fakeEmailService{}
	svc := NewEventService(EventServiceDeps{
		Events:                   &fakeEventRepo{s: store},
		Speakers:                 &fakeSpeakerRepo{s: store},
		EventSpeakers:            &fakeEventSpeakerRepo{s: store},
		Locations:                &fakeLocationRepo{s: store},
		Registrations:            &fakeRegistrationRepo{s: store},
		Tx:                       tx,
		Email:                    email,
		Clock:                    clock.NewFixed(testNow),
		Logger:                   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout:                  5 * time.Second,
		EnforceLocationConflicts: enforceConflicts,
	})
	return &serviceFixture{store: store, tx: tx, email: email, svc: svc}
}

func validInput() domain.EventInput {
	audience := domain.ParseAudienceSet([]string{"vip", "students"})
	return domain.EventInput{
		Title:      "GopherCon",
		Type:       domain.EventTypeConference,
		LocationID: locMain,
		StartsAt:   testNow.Add(48 * time.Hour),
		EndsAt:     testNow.Add(56 * time.Hour),
		Audience:   &audience,
		SpeakerIDs: []string{spGrace, spAda, spGrace},
	}
}

func violations(t *testing.T, err error) []domain.FieldViolation {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Violations
}

func TestEventService_CreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(false)
		ev, err := f.svc.CreateEvent(ctx, organizer, validInput())
		require.NoError(t, err)
		require.NotEmpty(t, ev.ID)
		assert.Equal(t, "org-1", ev.OrganizerID)
		assert.Equal(t, 9, ev.AudienceMask())
		assert.Equal(t, testNow, ev.CreatedAt)
		require.Len(t, ev.Speakers, 2)
		assert.Equal(t, spGrace, ev.Speakers[0].ID)
		assert.Equal(t, spAda, ev.Speakers[1].ID)
		assert.Nil(t, ev.IsRegistered, "organizers get no registration flag")
		assert.Equal(t, 1, f.tx.commits)
	})

	t.Run("organizer id is forced to the caller", func(t *testing.T) {
		f := newFixture(false)
		other := domain.NewPrincipal("org-2", []string{"organizer"})
		ev, err := f.svc.CreateEvent(ctx, other, validInput())
		require.NoError(t, err)
		assert.Equal(t, "org-2", f.store.events[ev.ID].OrganizerID)
	})

	t.Run("no audience yields empty set", func(t *testing.T) {
		f := newFixture(false)
		in := validInput()
		in.Audience = nil
		in.SpeakerIDs = nil
		ev, err := f.svc.CreateEvent(ctx, organizer, in)
		require.NoError(t, err)
		assert.Equal(t, 0, ev.AudienceMask())
		assert.Equal(t, []*domain.Speaker{}, ev.Speakers)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newFixture(false)
		_, err := f.svc.CreateEvent(ctx, nil, validInput())
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("audience member is forbidden before any write", func(t *testing.T) {
		f := newFixture(false)
		in := validInput()
		in.LocationID = "nowhere"
		_, err := f.svc.CreateEvent(ctx, attendee, in)
		require.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, f.store.events)
	})

	t.Run("unknown location and speaker", func(t *testing.T) {
		f := newFixture(false)
		in := validInput()
		in.LocationID = "d3bbef66-6f3c-4db1-8e90-9eec2a6b3d44"
		in.SpeakerIDs = []string{spAda, "e4ccf055-5a4d-4ec2-9fa1-afed3b7c4e55"}
		_, err := f.svc.CreateEvent(ctx, organizer, in)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.ElementsMatch(t, []domain.FieldViolation{
			{Field: "location_id", Rule: domain.RuleExists},
			{Field: "speaker_ids.*", Rule: domain.RuleExists},
		}, violations(t, err))
		assert.Empty(t, f.store.events)
	})

	t.Run("mixed-case ids resolve to their canonical form", func(t *testing.T) {
		f := newFixture(false)
		in := validInput()
		in.LocationID = strings.ToUpper(locMain)
		in.SpeakerIDs = []string{strings.ToUpper(spAda), spAda, "{" + spGrace + "}"}
		ev, err := f.svc.CreateEvent(ctx, organizer, in)
		require.NoError(t, err)
		assert.Equal(t, locMain, f.store.events[ev.ID].LocationID)
		assert.Equal(t, []string{spAda, spGrace}, f.store.eventSpeakers[ev.ID])
	})

	t.Run("non-uuid references fail the exists rule", func(t *testing.T) {
		f := newFixture(false)
		in := validInput()
		in.LocationID = "abc"
		in.SpeakerIDs = []string{spAda, "42"}
		_, err := f.svc.CreateEvent(ctx, organizer, in)
		assert.ElementsMatch(t, []domain.FieldViolation{
			{Field: "location_id", Rule: domain.RuleExists},
			{Field: "speaker_ids.*", Rule: domain.RuleExists},
		}, violations(t, err))
		assert.Empty(t, f.store.events)
	})

	t.Run("speaker attach failure rolls back the insert", func(t *testing.T) {
		f := newFixture(false)
		f.store.failOn = "speakers.attach"
		_, err := f.svc.CreateEvent(ctx, organizer, validInput())
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, domain.KindInternal, domain.KindOf(err))
		assert.Empty(t, f.store.events)
		assert.Empty(t, f.store.eventSpeakers)
	})

	t.Run("conflicts ignored when not enforced", func(t *testing.T) {
		f := newFixture(false)
		in := validInput()
		f.store.addEvent(&domain.Event{Title: "Existing", StartsAt: in.StartsAt, EndsAt: in.EndsAt})
		_, err := f.svc.CreateEvent(ctx, organizer, in)
		require.NoError(t, err)
		assert.Len(t, f.store.events, 2)
	})

	t.Run("conflicts rejected when enforced", func(t *testing.T) {
		f := newFixture(true)
		in := validInput()
		f.store.addEvent(&domain.Event{Title: "Existing", StartsAt: in.EndsAt, EndsAt: in.EndsAt.Add(time.Hour)})
		_, err := f.svc.CreateEvent(ctx, organizer, in)
		require.ErrorIs(t, err, domain.ErrConflict)
		assert.Len(t, f.store.events, 1)
	})
}

func TestEventService_ListEvents(t *testing.T) {
	ctx := context.Background()

	seed := func(f *serviceFixture) {
		f.store.addEvent(&domain.Event{ID: "past", Title: "Past", Type: domain.EventTypeMeetup, StartsAt: testNow.Add(-24 * time.Hour), EndsAt: testNow.Add(-23 * time.Hour)})
		f.store.addEvent(&domain.Event{ID: "later", Title: "Later", Type: domain.EventTypeWorkshop, StartsAt: testNow.Add(72 * time.Hour), EndsAt: testNow.Add(73 * time.Hour)})
		f.store.addEvent(&domain.Event{ID: "soon", Title: "Soon", Type: domain.EventTypeMeetup, StartsAt: testNow.Add(time.Hour), EndsAt: testNow.Add(2 * time.Hour), OrganizerID: "org-2"})
		f.store.eventSpeakers["soon"] = []string{spAda}
		f.store.registrations["soon"] = []*domain.Registrant{{UserID: "user-1", Email: "u1@example.com"}}
	}

	t.Run("upcoming ordered by start with page meta", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		page, err := f.svc.ListEvents(ctx, nil, domain.EventFilter{Upcoming: true}, domain.PaginationParams{})
		require.NoError(t, err)
		require.Len(t, page.Events, 2)
		assert.Equal(t, "soon", page.Events[0].ID)
		assert.Equal(t, "later", page.Events[1].ID)
		assert.Equal(t, &domain.PageInfo{Page: 1, PageSize: 15, Total: 2, TotalPages: 1}, page.Pagination)
		assert.Equal(t, []*domain.Speaker{{ID: spAda, Name: "Ada"}}, page.Events[0].Speakers)
		assert.Equal(t, []*domain.Speaker{}, page.Events[1].Speakers)
		assert.Equal(t, 1, page.Events[0].RegistrationsCount)
		assert.Nil(t, page.Events[0].IsRegistered)
	})

	t.Run("limit returns no page meta", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		page, err := f.svc.ListEvents(ctx, nil, domain.EventFilter{Limit: 2}, domain.PaginationParams{Page: 3, PageSize: 1})
		require.NoError(t, err)
		assert.Len(t, page.Events, 2)
		assert.Nil(t, page.Pagination)
	})

	t.Run("page size is capped", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		page, err := f.svc.ListEvents(ctx, nil, domain.EventFilter{}, domain.PaginationParams{Page: 1, PageSize: 1000})
		require.NoError(t, err)
		assert.Equal(t, domain.MaxPageSize, page.Pagination.PageSize)
	})

	t.Run("audience viewer sees registration flag", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		page, err := f.svc.ListEvents(ctx, attendee, domain.EventFilter{Type: domain.EventTypeMeetup}, domain.PaginationParams{Page: 1, PageSize: 15})
		require.NoError(t, err)
		require.Len(t, page.Events, 2)
		byID := map[string]*domain.Event{}
		for _, e := range page.Events {
			require.NotNil(t, e.IsRegistered)
			byID[e.ID] = e
		}
		assert.True(t, *byID["soon"].IsRegistered)
		assert.False(t, *byID["past"].IsRegistered)
	})

	t.Run("own events", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		page, err := f.svc.ListEvents(ctx, organizer, domain.EventFilter{OwnEvents: true, ExcludeID: "past"}, domain.PaginationParams{})
		require.NoError(t, err)
		require.Len(t, page.Events, 1)
		assert.Equal(t, "later", page.Events[0].ID)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newFixture(false)
		f.store.failOn = "event.list"
		_, err := f.svc.ListEvents(ctx, nil, domain.EventFilter{}, domain.PaginationParams{})
		require.ErrorIs(t, err, errBoom)
	})
}

func TestEventService_GetEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	f.store.addEvent(&domain.Event{ID: "ev-1", Title: "One", StartsAt: testNow, EndsAt: testNow.Add(time.Hour)})
	f.store.eventSpeakers["ev-1"] = []string{spLinus}

	ev, err := f.svc.GetEvent(ctx, attendee, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "One", ev.Title)
	assert.Equal(t, []*domain.Speaker{{ID: spLinus, Name: "Linus"}}, ev.Speakers)
	require.NotNil(t, ev.IsRegistered)
	assert.False(t, *ev.IsRegistered)

	_, err = f.svc.GetEvent(ctx, nil, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventService_UpdateEvent(t *testing.T) {
	ctx := context.Background()
	start := testNow.Add(24 * time.Hour)

	seed := func(f *serviceFixture) {
		f.store.addEvent(&domain.Event{
			ID: "ev-1", Title: "Old", Type: domain.EventTypeMeetup, StartsAt: start, EndsAt: start.Add(2 * time.Hour),
			Audience: domain.NewAudienceSet(domain.AudienceStudents),
		})
		f.store.eventSpeakers["ev-1"] = []string{spAda, spGrace}
	}

	t.Run("partial update re-encodes audience", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		title := "New"
		audience := domain.ParseAudienceSet([]string{"general", "vip"})
		ev, err := f.svc.UpdateEvent(ctx, organizer, "ev-1", domain.EventPatch{Title: &title, Audience: &audience})
		require.NoError(t, err)
		assert.Equal(t, "New", ev.Title)
		assert.Equal(t, 12, ev.AudienceMask())
		assert.Equal(t, domain.EventTypeMeetup, ev.Type)
		assert.Len(t, ev.Speakers, 2, "speakers untouched without a list")
	})

	t.Run("speaker list replaces the set", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		ids := []string{spGrace, spLinus}
		ev, err := f.svc.UpdateEvent(ctx, organizer, "ev-1", domain.EventPatch{SpeakerIDs: &ids})
		require.NoError(t, err)
		assert.Equal(t, []string{spGrace, spLinus}, f.store.eventSpeakers["ev-1"])
		assert.Len(t, ev.Speakers, 2)
	})

	t.Run("uppercase location is stored canonically", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		loc := strings.ToUpper(locAnnex)
		_, err := f.svc.UpdateEvent(ctx, organizer, "ev-1", domain.EventPatch{LocationID: &loc})
		require.NoError(t, err)
		assert.Equal(t, locAnnex, f.store.events["ev-1"].LocationID)
		assert.Equal(t, strings.ToUpper(locAnnex), loc, "caller's value is left alone")
	})

	t.Run("empty speaker list detaches all", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		ids := []string{}
		_, err := f.svc.UpdateEvent(ctx, organizer, "ev-1", domain.EventPatch{SpeakerIDs: &ids})
		require.NoError(t, err)
		assert.Empty(t, f.store.eventSpeakers["ev-1"])
	})

	t.Run("merged window must stay ordered", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		ends := start.Add(-time.Hour)
		_, err := f.svc.UpdateEvent(ctx, organizer, "ev-1", domain.EventPatch{EndsAt: &ends})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, []domain.FieldViolation{{Field: "ends_at", Rule: domain.RuleAfter}}, violations(t, err))
	})

	t.Run("unknown speaker", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		ids := []string{"e4ccf055-5a4d-4ec2-9fa1-afed3b7c4e55"}
		_, err := f.svc.UpdateEvent(ctx, organizer, "ev-1", domain.EventPatch{SpeakerIDs: &ids})
		assert.Equal(t, []domain.FieldViolation{{Field: "speaker_ids.*", Rule: domain.RuleExists}}, violations(t, err))
		assert.Equal(t, []string{spAda, spGrace}, f.store.eventSpeakers["ev-1"])
	})

	t.Run("sync failure rolls back column changes", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		f.store.failOn = "speakers.sync"
		title := "New"
		ids := []string{spLinus}
		_, err := f.svc.UpdateEvent(ctx, organizer, "ev-1", domain.EventPatch{Title: &title, SpeakerIDs: &ids})
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, "Old", f.store.events["ev-1"].Title)
		assert.Equal(t, []string{spAda, spGrace}, f.store.eventSpeakers["ev-1"])
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(false)
		title := "New"
		_, err := f.svc.UpdateEvent(ctx, organizer, "missing", domain.EventPatch{Title: &title})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("forbidden", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		title := "New"
		_, err := f.svc.UpdateEvent(ctx, attendee, "ev-1", domain.EventPatch{Title: &title})
		require.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, "Old", f.store.events["ev-1"].Title)
	})

	t.Run("moving onto a booked location is rejected when enforced", func(t *testing.T) {
		f := newFixture(true)
		seed(f)
		f.store.addEvent(&domain.Event{ID: "ev-2", LocationID: locAnnex, StartsAt: start.Add(time.Hour), EndsAt: start.Add(3 * time.Hour)})
		loc := locAnnex
		_, err := f.svc.UpdateEvent(ctx, organizer, "ev-1", domain.EventPatch{LocationID: &loc})
		require.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, locMain, f.store.events["ev-1"].LocationID)
	})
}

func TestEventService_DeleteEvent(t *testing.T) {
	ctx := context.Background()

	seed := func(f *serviceFixture) {
		f.store.addEvent(&domain.Event{ID: "ev-1", Title: "Doomed", StartsAt: testNow.Add(time.Hour), EndsAt: testNow.Add(2 * time.Hour)})
		f.store.addEvent(&domain.Event{ID: "ev-2", Title: "Kept", StartsAt: testNow.Add(time.Hour), EndsAt: testNow.Add(2 * time.Hour)})
		f.store.eventSpeakers["ev-1"] = []string{spAda}
		f.store.registrations["ev-1"] = []*domain.Registrant{
			{UserID: "u1", Name: "Ada", Email: "ada@example.com"},
			{UserID: "u2", Name: "Grace", Email: "grace@example.com"},
		}
		f.store.registrations["ev-2"] = []*domain.Registrant{{UserID: "u1", Email: "ada@example.com"}}
	}

	t.Run("cascades and notifies registrants", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		require.NoError(t, f.svc.DeleteEvent(ctx, organizer, "ev-1"))
		assert.NotContains(t, f.store.events, "ev-1")
		assert.NotContains(t, f.store.registrations, "ev-1")
		assert.NotContains(t, f.store.eventSpeakers, "ev-1")
		assert.Len(t, f.store.registrations["ev-2"], 1)
		require.Len(t, f.email.sent, 2)
		assert.Equal(t, "ada@example.com", f.email.sent[0].Email)
		assert.Equal(t, "Doomed", f.email.sent[0].EventTitle)
	})

	t.Run("email failure does not fail the delete", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		f.email.err = errBoom
		require.NoError(t, f.svc.DeleteEvent(ctx, organizer, "ev-1"))
		assert.NotContains(t, f.store.events, "ev-1")
	})

	t.Run("failure rolls back registrations", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		f.store.failOn = "event.delete"
		err := f.svc.DeleteEvent(ctx, organizer, "ev-1")
		require.ErrorIs(t, err, errBoom)
		assert.Contains(t, f.store.events, "ev-1")
		assert.Len(t, f.store.registrations["ev-1"], 2)
		assert.Equal(t, []string{spAda}, f.store.eventSpeakers["ev-1"])
		assert.Empty(t, f.email.sent)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(false)
		require.ErrorIs(t, f.svc.DeleteEvent(ctx, organizer, "missing"), domain.ErrNotFound)
	})

	t.Run("forbidden", func(t *testing.T) {
		f := newFixture(false)
		seed(f)
		require.ErrorIs(t, f.svc.DeleteEvent(ctx, attendee, "ev-1"), domain.ErrForbidden)
		assert.Contains(t, f.store.events, "ev-1")
	})
}

func TestEventService_CheckConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	f.store.addEvent(&domain.Event{ID: "a", LocationID: locMain, StartsAt: testNow, EndsAt: testNow.Add(2 * time.Hour)})
	f.store.addEvent(&domain.Event{ID: "b", LocationID: locMain, StartsAt: testNow.Add(time.Hour), EndsAt: testNow.Add(3 * time.Hour)})
	f.store.addEvent(&domain.Event{ID: "c", LocationID: locAnnex, StartsAt: testNow, EndsAt: testNow.Add(time.Hour)})

	got, err := f.svc.CheckConflicts(ctx, organizer, "a")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = f.svc.CheckConflicts(ctx, organizer, "c")
	require.NoError(t, err)
	assert.False(t, got)

	_, err = f.svc.CheckConflicts(ctx, organizer, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CheckConflicts(ctx, attendee, "a")
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCanonicalIDs(t *testing.T) {
	ids, ok := canonicalIDs(nil)
	assert.True(t, ok)
	assert.Nil(t, ids)

	ids, ok = canonicalIDs([]string{strings.ToUpper(spAda), spAda})
	assert.True(t, ok)
	assert.Equal(t, []string{spAda}, ids)

	_, ok = canonicalIDs([]string{spAda, "ghost"})
	assert.False(t, ok)
}

func TestUniqueIDs(t *testing.T) {
	assert.Nil(t, uniqueIDs(nil))
	assert.Equal(t, []string{"b", "a"}, uniqueIDs([]string{"b", "a", "b"}))
}
