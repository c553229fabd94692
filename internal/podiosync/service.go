// Package podiosync writes leads into the head-office workspace and the
// workspace of the franchise they were routed to.
package podiosync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wchic_backend/internal/podio"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Short-circuit reasons.
const (
	ReasonPodioDisabled    = "podio_disabled"
	ReasonNotRouted        = "not_routed"
	ReasonUnknownWorkspace = "unknown_workspace"

	ActionSynced = "synced"
)

var syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "podio_syncs_total",
	Help: "Lead sync invocations by outcome.",
}, []string{"result"})

// Result is the outcome of one sync. Short-circuits carry a Reason and are not errors.
type Result struct {
	OK      bool                 `json:"ok"`
	Action  string               `json:"action,omitempty"`
	Reason  string               `json:"reason,omitempty"`
	Detail  string               `json:"detail,omitempty"`
	Results []podio.UpsertResult `json:"results,omitempty"`
}

type SnapshotStore interface {
	GetSnapshot(ctx context.Context, leadID uuid.UUID) (Snapshot, error)
	SaveItemID(ctx context.Context, leadID uuid.UUID, key podio.WorkspaceKey, itemID int64) error
}

type Upserter interface {
	Upsert(ctx context.Context, key podio.WorkspaceKey, lead podio.CanonicalLead) (podio.UpsertResult, error)
}

type WorkspaceResolver interface {
	ByAppIDString(appID string) (*podio.WorkspaceMapping, bool)
	Workspace(key podio.WorkspaceKey) (*podio.WorkspaceMapping, error)
}

type Service struct {
	store      SnapshotStore
	workspaces WorkspaceResolver
	upserter   Upserter
	log        *logger.Logger
	now        func() time.Time
}

// NewService builds the orchestrator. A nil upserter means Podio is not
// configured and every sync reports podio_disabled.
func NewService(store SnapshotStore, workspaces WorkspaceResolver, upserter Upserter, log *logger.Logger) *Service {
	return &Service{store: store, workspaces: workspaces, upserter: upserter, log: log, now: time.Now}
}

// SyncLead upserts the lead into the head office and then, when different,
// into the routed franchise workspace. A head-office failure stops the sync
// before the franchise write.
func (s *Service) SyncLead(ctx context.Context, leadID uuid.UUID) (Result, error) {
	ctx = logger.ContextWithLeadID(ctx, leadID.String())
	log := s.log.WithContext(ctx)

	if s.upserter == nil {
		log.Warn("podio not configured, sync skipped")
		syncsTotal.WithLabelValues(ReasonPodioDisabled).Inc()
		return Result{Reason: ReasonPodioDisabled}, nil
	}

	snap, err := s.store.GetSnapshot(ctx, leadID)
	if err != nil {
		return Result{}, err
	}

	if snap.FranchiseID == nil {
		log.Info("lead not routed yet, podio sync skipped")
		syncsTotal.WithLabelValues(ReasonNotRouted).Inc()
		return Result{Reason: ReasonNotRouted}, nil
	}

	appID := nonEmpty(snap.PodioAppID)
	var routed *podio.WorkspaceMapping
	if appID != "" {
		routed, _ = s.workspaces.ByAppIDString(appID)
	}
	if routed == nil {
		log.Warn("franchise podio app id unknown", "franchise_id", snap.FranchiseID, "podio_app_id", appID)
		syncsTotal.WithLabelValues(ReasonUnknownWorkspace).Inc()
		return Result{
			Reason: ReasonUnknownWorkspace,
			Detail: fmt.Sprintf("franchise_id=%s, podio_app_id=%s", snap.FranchiseID, appID),
		}, nil
	}

	canonical := BuildCanonical(snap, routed.WorkspaceKey, s.now())
	log.Info("podio sync started", "external_id", snap.ExternalID, "workspace", routed.WorkspaceKey)

	targets := []podio.WorkspaceKey{podio.HeadOffice}
	if routed.WorkspaceKey != podio.HeadOffice {
		targets = append(targets, routed.WorkspaceKey)
	}

	results := make([]podio.UpsertResult, 0, len(targets))
	for _, key := range targets {
		lead := canonical
		if ws, err := s.workspaces.Workspace(key); err == nil {
			lead = ForWorkspace(canonical, ws, snap.Status)
		}
		res, err := s.upserter.Upsert(ctx, key, lead)
		if err != nil {
			syncsTotal.WithLabelValues("error").Inc()
			return Result{}, fmt.Errorf("podio upsert %s: %w", key, err)
		}
		if err := s.store.SaveItemID(ctx, leadID, key, res.ItemID); err != nil {
			log.DatabaseError("podiosync.SaveItemID", err)
			return Result{}, err
		}
		results = append(results, res)
	}

	syncsTotal.WithLabelValues(ActionSynced).Inc()
	log.Info("podio sync finished", "workspaces", len(results))
	return Result{OK: true, Action: ActionSynced, Results: results}, nil
}

// IsLeadNotFound reports whether err means the lead does not exist.
func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}
