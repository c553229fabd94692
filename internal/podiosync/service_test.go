package podiosync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wchic_backend/internal/podio"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	testExternalID = "wchic:wa:+5511999999999:2026-05-10"
	campinasAppID  = "10777978"
)

type testStore struct {
	snap  Snapshot
	err   error
	saved map[podio.WorkspaceKey]int64
	reads int
}

func (s *testStore) GetSnapshot(context.Context, uuid.UUID) (Snapshot, error) {
	s.reads++
	return s.snap, s.err
}

func (s *testStore) SaveItemID(_ context.Context, _ uuid.UUID, key podio.WorkspaceKey, itemID int64) error {
	if s.saved == nil {
		s.saved = map[podio.WorkspaceKey]int64{}
	}
	s.saved[key] = itemID
	return nil
}

type testUpserter struct {
	calls  []podio.WorkspaceKey
	leads  []podio.CanonicalLead
	failOn podio.WorkspaceKey
}

func (u *testUpserter) Upsert(_ context.Context, key podio.WorkspaceKey, lead podio.CanonicalLead) (podio.UpsertResult, error) {
	u.calls = append(u.calls, key)
	u.leads = append(u.leads, lead)
	if key == u.failOn {
		return podio.UpsertResult{}, errors.New("podio down")
	}
	return podio.UpsertResult{Workspace: key, OK: true, Action: podio.ActionCreated, ItemID: int64(len(u.calls)) * 100}, nil
}

// testItemWriter records the translated payload each workspace receives.
type testItemWriter struct {
	created map[podio.WorkspaceKey]map[string]any
	nextID  int64
}

func (w *testItemWriter) GetItemByExternalID(context.Context, podio.WorkspaceKey, string) (*podio.Item, error) {
	return nil, &podio.APIError{StatusCode: 404, Method: "GET", Path: "/item/app/x/external_id/y"}
}

func (w *testItemWriter) CreateItem(_ context.Context, key podio.WorkspaceKey, _ string, fields map[string]any) (int64, error) {
	if w.created == nil {
		w.created = map[podio.WorkspaceKey]map[string]any{}
	}
	w.created[key] = fields
	w.nextID++
	return w.nextID, nil
}

func (w *testItemWriter) UpdateItem(context.Context, podio.WorkspaceKey, int64, string, map[string]any) error {
	return nil
}

func mustRegistry(t *testing.T) *podio.Registry {
	t.Helper()
	reg, err := podio.LoadRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return reg
}

func strPtr(s string) *string { return &s }

func routedSnapshot(appID string) Snapshot {
	franchiseID := uuid.New()
	start := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	guests := 120
	decisor := true
	return Snapshot{
		LeadID:           uuid.New(),
		ExternalID:       testExternalID,
		PhoneE164:        strPtr("+5511999999999"),
		Source:           "whatsapp",
		FranchiseID:      &franchiseID,
		Status:           "new",
		Cidade:           strPtr("Campinas"),
		Estado:           strPtr("SP"),
		IBGECode:         strPtr("3509502"),
		EventStartDate:   &start,
		PerfilEvento:     strPtr("Casamento"),
		PessoasEstimadas: &guests,
		Decisor:          &decisor,
		PodioAppID:       strPtr(appID),
	}
}

func TestSyncWritesHeadOfficeBeforeFranchise(t *testing.T) {
	store := &testStore{snap: routedSnapshot(campinasAppID)}
	up := &testUpserter{}
	svc := NewService(store, mustRegistry(t), up, logger.New("development"))

	res, err := svc.SyncLead(context.Background(), store.snap.LeadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK || res.Action != ActionSynced || len(res.Results) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(up.calls) != 2 || up.calls[0] != podio.Franqueadora || up.calls[1] != podio.Campinas {
		t.Fatalf("expected franqueadora then campinas, got %v", up.calls)
	}
	if store.saved[podio.Franqueadora] != 100 || store.saved[podio.Campinas] != 200 {
		t.Errorf("expected both item ids persisted, got %v", store.saved)
	}
}

func TestSyncHeadOfficeFailureSkipsFranchise(t *testing.T) {
	store := &testStore{snap: routedSnapshot(campinasAppID)}
	up := &testUpserter{failOn: podio.Franqueadora}
	svc := NewService(store, mustRegistry(t), up, logger.New("development"))

	if _, err := svc.SyncLead(context.Background(), store.snap.LeadID); err == nil {
		t.Fatalf("expected head-office failure to propagate")
	}
	if len(up.calls) != 1 {
		t.Fatalf("expected no franchise write after head-office failure, got %v", up.calls)
	}
	if len(store.saved) != 0 {
		t.Errorf("expected nothing persisted, got %v", store.saved)
	}
}

func TestSyncHeadOfficeRoutedWritesOnce(t *testing.T) {
	store := &testStore{snap: routedSnapshot("10094649")}
	up := &testUpserter{}
	svc := NewService(store, mustRegistry(t), up, logger.New("development"))

	res, err := svc.SyncLead(context.Background(), store.snap.LeadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(up.calls) != 1 || len(res.Results) != 1 {
		t.Fatalf("expected a single head-office write, got %v", up.calls)
	}
}

func TestSyncNotRoutedMakesNoVendorCalls(t *testing.T) {
	snap := routedSnapshot(campinasAppID)
	snap.FranchiseID = nil
	store := &testStore{snap: snap}
	up := &testUpserter{}
	svc := NewService(store, mustRegistry(t), up, logger.New("development"))

	res, err := svc.SyncLead(context.Background(), snap.LeadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonNotRouted {
		t.Fatalf("expected not_routed, got %+v", res)
	}
	if len(up.calls) != 0 {
		t.Errorf("expected zero vendor calls, got %v", up.calls)
	}
}

func TestSyncUnknownWorkspace(t *testing.T) {
	store := &testStore{snap: routedSnapshot("999")}
	up := &testUpserter{}
	svc := NewService(store, mustRegistry(t), up, logger.New("development"))

	res, err := svc.SyncLead(context.Background(), store.snap.LeadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonUnknownWorkspace || !strings.Contains(res.Detail, "podio_app_id=999") {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(up.calls) != 0 {
		t.Errorf("expected zero vendor calls, got %v", up.calls)
	}
}

func TestSyncDisabledWithoutUpserter(t *testing.T) {
	store := &testStore{snap: routedSnapshot(campinasAppID)}
	svc := NewService(store, mustRegistry(t), nil, logger.New("development"))

	res, err := svc.SyncLead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonPodioDisabled {
		t.Fatalf("expected podio_disabled, got %+v", res)
	}
	if store.reads != 0 {
		t.Errorf("expected no database read when disabled")
	}
}

func TestSyncMissingLead(t *testing.T) {
	store := &testStore{err: ErrLeadNotFound}
	svc := NewService(store, mustRegistry(t), &testUpserter{}, logger.New("development"))

	_, err := svc.SyncLead(context.Background(), uuid.New())
	if !IsLeadNotFound(err) {
		t.Fatalf("expected lead not found, got %v", err)
	}
}

func TestSyncCampinasScenarioPayloads(t *testing.T) {
	reg := mustRegistry(t)
	writer := &testItemWriter{}
	store := &testStore{snap: routedSnapshot(campinasAppID)}
	svc := NewService(store, reg, podio.NewUpserter(writer, reg, logger.New("development")), logger.New("development"))
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 15, 30, 0, 0, time.UTC) }

	if _, err := svc.SyncLead(context.Background(), store.snap.LeadID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	head := writer.created[podio.Franqueadora]
	camp := writer.created[podio.Campinas]
	if head == nil || camp == nil {
		t.Fatalf("expected writes to both workspaces, got %v", writer.created)
	}

	if head["title"] != "Lead WA +5511999999999 — Campinas (2026-05-10)" {
		t.Errorf("unexpected title %v", head["title"])
	}
	if _, ok := head["area-da-franquia"]; !ok {
		t.Errorf("expected area-da-franquia on head office")
	}
	if head["codigo-ibge-2"] != "3509502" || head["cidade"] != "Campinas" {
		t.Errorf("unexpected head-office location fields %v %v", head["codigo-ibge-2"], head["cidade"])
	}
	if head["estado"] != "São Paulo" {
		t.Errorf("expected expanded state text, got %v", head["estado"])
	}
	if head["publico-do-evento-qtde-pessoas"] != "120" {
		t.Errorf("unexpected guests %v", head["publico-do-evento-qtde-pessoas"])
	}
	if head["data-do-contato"] != (podio.DateValue{Start: "2026-04-01 00:00:00"}) {
		t.Errorf("unexpected contact date %v", head["data-do-contato"])
	}

	for _, absent := range []string{"status-da-prospeccao", "area-da-franquia", "encaminhado", "cidade", "codigo-ibge-2"} {
		if _, ok := camp[absent]; ok {
			t.Errorf("campinas must not receive %q", absent)
		}
	}
	if camp["cidade-do-evento"] != "Campinas" || camp["codigo-ibge"] != "3509502" {
		t.Errorf("expected campinas aliases, got %v %v", camp["cidade-do-evento"], camp["codigo-ibge"])
	}
	if _, ok := camp["estado"].(int64); !ok {
		t.Errorf("expected campinas estado resolved to an option id, got %T", camp["estado"])
	}
	if camp["data-do-evento"] != (podio.DateValue{Start: "2026-05-10 00:00:00"}) {
		t.Errorf("unexpected event date %v", camp["data-do-evento"])
	}
	if store.saved[podio.Franqueadora] != 1 || store.saved[podio.Campinas] != 2 {
		t.Errorf("unexpected persisted ids %v", store.saved)
	}
}

func TestSyncWritesStatusLabelPerWorkspace(t *testing.T) {
	snap := routedSnapshot("12876626")
	snap.Status = "routed"
	store := &testStore{snap: snap}
	up := &testUpserter{}
	svc := NewService(store, mustRegistry(t), up, logger.New("development"))

	if _, err := svc.SyncLead(context.Background(), snap.LeadID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(up.leads) != 2 {
		t.Fatalf("expected two upserts, got %d", len(up.leads))
	}
	if got := up.leads[0].Fields["status"]; got != "Encaminhado" {
		t.Errorf("expected head office Encaminhado, got %v", got)
	}
	// rio_bh has no routed label and falls back to the default.
	if got := up.leads[1].Fields["status"]; got != podio.DefaultStatusLabel {
		t.Errorf("expected rio_bh %s, got %v", podio.DefaultStatusLabel, got)
	}
}
