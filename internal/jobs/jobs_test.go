package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wchic_backend/internal/podio"
	"wchic_backend/internal/statussync"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	campinasAppID  = "10777978"
	franchisePhone = "+5519990001111"
	itemID         = int64(777)
)

type finished struct {
	id     int64
	status string
}

type testStore struct {
	jobs     []Job
	target   Target
	finishes []finished
	retries  []time.Time
	logs     []string
	times    LeadTimes
	timesErr error
	planned  map[string]time.Time
}

func (s *testStore) Claim(context.Context, int) ([]Job, error) {
	jobs := s.jobs
	s.jobs = nil
	return jobs, nil
}

func (s *testStore) Finish(_ context.Context, job Job, status string) error {
	s.finishes = append(s.finishes, finished{id: job.ID, status: status})
	return nil
}

func (s *testStore) Retry(_ context.Context, _ Job, runAt time.Time, _ string) error {
	s.retries = append(s.retries, runAt)
	return nil
}

func (s *testStore) Log(_ context.Context, _ int64, message string) error {
	s.logs = append(s.logs, message)
	return nil
}

func (s *testStore) Target(context.Context, uuid.UUID) (Target, error) {
	return s.target, nil
}

func (s *testStore) LeadTimes(context.Context, uuid.UUID) (LeadTimes, error) {
	return s.times, s.timesErr
}

func (s *testStore) Schedule(_ context.Context, _ uuid.UUID, jobType string, runAt time.Time) error {
	if s.planned == nil {
		s.planned = map[string]time.Time{}
	}
	s.planned[jobType] = runAt
	return nil
}

type testItems struct {
	item *podio.Item
	err  error
}

func (i testItems) GetItem(context.Context, podio.WorkspaceKey, int64) (*podio.Item, error) {
	return i.item, i.err
}

type testMessenger struct {
	to   []string
	text []string
}

func (m *testMessenger) SendToOps(_ context.Context, to, text string) error {
	m.to = append(m.to, to)
	m.text = append(m.text, text)
	return nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func category(field, label string) podio.ItemField {
	return podio.ItemField{
		ExternalID: field,
		Type:       "category",
		Values:     []map[string]any{{"value": map[string]any{"id": 1, "text": label}}},
	}
}

func newTestRunner(t *testing.T, store *testStore, items testItems, msg Messenger) *Runner {
	t.Helper()
	reg, err := podio.LoadRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	mapper, err := statussync.NewMapper(reg)
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}
	r := NewRunner(store, reg, NewChecker(items, mapper), msg, 10, time.Hour, logger.New("development"))
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func routedTarget() Target {
	return Target{
		LeadID:              uuid.New(),
		FranchisePhone:      strPtr(franchisePhone),
		PodioItemIDFranquia: int64Ptr(itemID),
		FranchisePodioAppID: strPtr(campinasAppID),
	}
}

func TestRunDueChargesFranchiseWhenNotContacted(t *testing.T) {
	store := &testStore{
		jobs:   []Job{{ID: 1, Type: TypeSLA24h, LeadID: uuid.New()}},
		target: routedTarget(),
	}
	item := &podio.Item{Fields: []podio.ItemField{category("status-da-prospeccao", "")}}
	msg := &testMessenger{}

	n, err := newTestRunner(t, store, testItems{item: item}, msg).RunDue(context.Background())
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 claimed job, got %d", n)
	}
	if len(msg.to) != 1 || msg.to[0] != franchisePhone {
		t.Fatalf("expected charge to franchise phone, got %v", msg.to)
	}
	if !strings.HasPrefix(msg.text[0], "SLA 24h:") {
		t.Errorf("unexpected charge text %q", msg.text[0])
	}
	if len(store.finishes) != 1 || store.finishes[0].status != StatusDone {
		t.Errorf("expected job done, got %v", store.finishes)
	}
}

func TestRunDueSkipsChargeWithoutMessenger(t *testing.T) {
	store := &testStore{
		jobs:   []Job{{ID: 5, Type: TypeSLA24h, LeadID: uuid.New()}},
		target: routedTarget(),
	}
	item := &podio.Item{Fields: []podio.ItemField{category("status-da-prospeccao", "")}}

	if _, err := newTestRunner(t, store, testItems{item: item}, nil).RunDue(context.Background()); err != nil {
		t.Fatalf("run due: %v", err)
	}
	if len(store.finishes) != 1 || store.finishes[0].status != StatusSkipped {
		t.Fatalf("expected job skipped, got %v", store.finishes)
	}
	if last := store.logs[len(store.logs)-1]; !strings.Contains(last, "WhatsApp not configured") {
		t.Errorf("expected skip reason logged, got %v", store.logs)
	}
}

func TestRunDueAcceptsProgressedStatus(t *testing.T) {
	store := &testStore{
		jobs:   []Job{{ID: 2, Type: TypeSLA24h, LeadID: uuid.New()}},
		target: routedTarget(),
	}
	item := &podio.Item{Fields: []podio.ItemField{category("status-da-prospeccao", "Orçamento enviado")}}
	msg := &testMessenger{}

	if _, err := newTestRunner(t, store, testItems{item: item}, msg).RunDue(context.Background()); err != nil {
		t.Fatalf("run due: %v", err)
	}
	if len(msg.to) != 0 {
		t.Errorf("expected no charge, got %v", msg.text)
	}
	if len(store.logs) != 1 || store.logs[0] != "SLA 24h ok" {
		t.Errorf("unexpected job logs %v", store.logs)
	}
}

func TestRunDueSkipsWithoutFranchiseData(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Target)
		log    string
	}{
		{name: "no phone", mutate: func(tg *Target) { tg.FranchisePhone = nil }, log: "No franchise phone configured"},
		{name: "no item", mutate: func(tg *Target) { tg.PodioItemIDFranquia = nil }, log: "No Podio item id for franchise"},
		{name: "unknown app", mutate: func(tg *Target) { tg.FranchisePodioAppID = strPtr("1") }, log: "Unknown Podio app 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := routedTarget()
			tt.mutate(&target)
			store := &testStore{jobs: []Job{{ID: 3, Type: TypeSLA7d}}, target: target}
			msg := &testMessenger{}

			if _, err := newTestRunner(t, store, testItems{}, msg).RunDue(context.Background()); err != nil {
				t.Fatalf("run due: %v", err)
			}
			if len(store.finishes) != 1 || store.finishes[0].status != StatusSkipped {
				t.Fatalf("expected skipped, got %v", store.finishes)
			}
			if len(store.logs) != 1 || store.logs[0] != tt.log {
				t.Errorf("expected log %q, got %v", tt.log, store.logs)
			}
		})
	}
}

func TestRunDueRetriesOnPodioFailure(t *testing.T) {
	store := &testStore{
		jobs:   []Job{{ID: 4, Type: TypePostEvento}},
		target: routedTarget(),
	}
	r := newTestRunner(t, store, testItems{err: errors.New("podio down")}, &testMessenger{})

	if _, err := r.RunDue(context.Background()); err != nil {
		t.Fatalf("run due: %v", err)
	}
	if len(store.finishes) != 0 {
		t.Errorf("expected no finish, got %v", store.finishes)
	}
	want := r.now().Add(time.Hour)
	if len(store.retries) != 1 || !store.retries[0].Equal(want) {
		t.Errorf("expected retry at %s, got %v", want, store.retries)
	}
}

func TestCheckCountsMissingPostEventFields(t *testing.T) {
	store := &testStore{
		jobs:   []Job{{ID: 5, Type: TypePostEvento}},
		target: routedTarget(),
	}
	item := &podio.Item{Fields: []podio.ItemField{{
		ExternalID: "valor-do-contrato",
		Type:       "money",
		Values:     []map[string]any{{"value": "1500.00"}},
	}}}
	msg := &testMessenger{}

	if _, err := newTestRunner(t, store, testItems{item: item}, msg).RunDue(context.Background()); err != nil {
		t.Fatalf("run due: %v", err)
	}
	if len(msg.text) != 1 || !strings.Contains(msg.text[0], "(1)") {
		t.Errorf("expected one pending field in charge, got %v", msg.text)
	}
}

func TestCheckSLA7dPassesWhenStageFilled(t *testing.T) {
	store := &testStore{
		jobs:   []Job{{ID: 6, Type: TypeSLA7d}},
		target: routedTarget(),
	}
	item := &podio.Item{Fields: []podio.ItemField{category("etapa", "Pré-evento")}}
	msg := &testMessenger{}

	if _, err := newTestRunner(t, store, testItems{item: item}, msg).RunDue(context.Background()); err != nil {
		t.Fatalf("run due: %v", err)
	}
	if len(msg.text) != 0 {
		t.Errorf("expected no charge, got %v", msg.text)
	}
}

func TestScheduleLeadJobsComputesRunTimes(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	store := &testStore{times: LeadTimes{CreatedAt: created, EventStart: &start}}

	if err := NewScheduler(store, logger.New("development")).ScheduleLeadJobs(context.Background(), uuid.New()); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	want := map[string]time.Time{
		TypeSLA24h:     created.Add(24 * time.Hour),
		TypeSLA7d:      start.Add(-7 * 24 * time.Hour),
		TypePostEvento: start.Add(24 * time.Hour),
	}
	for jobType, at := range want {
		if got, ok := store.planned[jobType]; !ok || !got.Equal(at) {
			t.Errorf("%s: expected %s, got %s", jobType, at, got)
		}
	}
}

func TestScheduleLeadJobsWithoutEventDate(t *testing.T) {
	store := &testStore{times: LeadTimes{CreatedAt: time.Now()}}

	if err := NewScheduler(store, logger.New("development")).ScheduleLeadJobs(context.Background(), uuid.New()); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(store.planned) != 1 {
		t.Fatalf("expected only SLA_24H, got %v", store.planned)
	}
}

func TestScheduleLeadJobsIgnoresMissingLead(t *testing.T) {
	store := &testStore{timesErr: ErrLeadNotFound}

	if err := NewScheduler(store, logger.New("development")).ScheduleLeadJobs(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected nil for missing lead, got %v", err)
	}
}
