package statussync

import (
	"context"
	"errors"
	"strings"

	"wchic_backend/internal/leads/domain"
	"wchic_backend/internal/podio"
	"wchic_backend/platform/apperr"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Push outcomes per workspace.
const (
	PushWritten   = "written"
	PushUnmapped  = "unmapped"
	PushFailed    = "failed"
	PushNoItem    = "no_item"
	PushSkipped   = "podio_disabled"
	PushNoMapping = "unknown_workspace"
)

// Reconcile outcomes.
const (
	OutcomeUpdated          = "updated"
	OutcomeUnchanged        = "unchanged"
	OutcomeUnknownItem      = "unknown_item"
	OutcomeUnknownWorkspace = "unknown_workspace"
	OutcomeUnmappedLabel    = "unmapped_label"
	OutcomeFetchFailed      = "fetch_failed"
	OutcomeStoreFailed      = "store_failed"
)

var (
	statusPushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podio_status_pushes_total",
		Help: "Outbound status writes by workspace and outcome.",
	}, []string{"workspace", "outcome"})

	statusReconcilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podio_status_reconciles_total",
		Help: "Inbound status reconciliations by outcome.",
	}, []string{"outcome"})
)

type Store interface {
	GetLeadRef(ctx context.Context, leadID uuid.UUID) (LeadRef, error)
	FindByItemID(ctx context.Context, itemID int64) (LeadRef, error)
	UpdateStatus(ctx context.Context, leadID uuid.UUID, status string) error
}

// ItemAPI is the part of the Podio client status sync uses.
type ItemAPI interface {
	GetItem(ctx context.Context, key podio.WorkspaceKey, itemID int64) (*podio.Item, error)
	UpdateFieldValue(ctx context.Context, key podio.WorkspaceKey, itemID int64, field string, value any) error
	ValidateHook(ctx context.Context, key podio.WorkspaceKey, hookID int64, code string) error
}

// InboundHook is an item event delivered by Podio. AppID and Workspace are
// optional hints for the emitting workspace.
type InboundHook struct {
	ItemID    int64  `json:"itemId"`
	AppID     int64  `json:"appId,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

type WorkspacePush struct {
	Workspace podio.WorkspaceKey `json:"workspace"`
	ItemID    int64              `json:"itemId,omitempty"`
	Label     string             `json:"label,omitempty"`
	Outcome   string             `json:"outcome"`
	Error     string             `json:"error,omitempty"`
}

type PushResult struct {
	OK         bool            `json:"ok"`
	LeadID     uuid.UUID       `json:"lead_id"`
	Status     domain.Status   `json:"status"`
	Workspaces []WorkspacePush `json:"workspaces"`
}

type Service struct {
	store    Store
	registry *podio.Registry
	mapper   *Mapper
	api      ItemAPI
	log      *logger.Logger
}

// NewService builds the reconciler. api is nil when Podio is disabled; status
// changes are then stored locally only.
func NewService(store Store, registry *podio.Registry, mapper *Mapper, api ItemAPI, log *logger.Logger) *Service {
	return &Service{store: store, registry: registry, mapper: mapper, api: api, log: log}
}

// PushStatus persists a canonical status and writes the matching label to
// every workspace item the lead has.
func (s *Service) PushStatus(ctx context.Context, leadID uuid.UUID, status domain.Status) (PushResult, error) {
	ctx = logger.ContextWithLeadID(ctx, leadID.String())
	log := s.log.WithContext(ctx)

	ref, err := s.store.GetLeadRef(ctx, leadID)
	if errors.Is(err, ErrLeadNotFound) {
		return PushResult{}, apperr.NotFound("Lead não encontrado").WithOp("statussync.PushStatus")
	}
	if err != nil {
		return PushResult{}, err
	}
	if err := s.store.UpdateStatus(ctx, leadID, string(status)); err != nil {
		return PushResult{}, err
	}
	log.Info("lead status changed", "from", ref.Status, "to", status)

	result := PushResult{OK: true, LeadID: leadID, Status: status}
	for _, target := range s.itemTargets(ref) {
		push := s.pushOne(ctx, target, status)
		statusPushesTotal.WithLabelValues(string(push.Workspace), push.Outcome).Inc()
		result.Workspaces = append(result.Workspaces, push)
	}
	return result, nil
}

type itemTarget struct {
	key    podio.WorkspaceKey
	itemID *int64
	known  bool
}

func (s *Service) itemTargets(ref LeadRef) []itemTarget {
	targets := []itemTarget{{key: podio.HeadOffice, itemID: ref.PodioItemIDFranqueadora, known: true}}
	if ref.FranchisePodioAppID == nil {
		return targets
	}
	m, ok := s.registry.ByAppIDString(*ref.FranchisePodioAppID)
	switch {
	case !ok:
		targets = append(targets, itemTarget{key: podio.WorkspaceKey(*ref.FranchisePodioAppID), itemID: ref.PodioItemIDFranquia})
	case m.WorkspaceKey != podio.HeadOffice:
		targets = append(targets, itemTarget{key: m.WorkspaceKey, itemID: ref.PodioItemIDFranquia, known: true})
	}
	return targets
}

func (s *Service) pushOne(ctx context.Context, t itemTarget, status domain.Status) WorkspacePush {
	log := s.log.WithContext(ctx)
	push := WorkspacePush{Workspace: t.key}

	switch {
	case !t.known:
		push.Outcome = PushNoMapping
		log.Warn("status push skipped, unknown franchise app", "podio_app_id", t.key)
		return push
	case t.itemID == nil || *t.itemID == 0:
		push.Outcome = PushNoItem
		return push
	}
	push.ItemID = *t.itemID

	out, ok := s.mapper.Outbound(t.key, status)
	if !ok {
		push.Outcome = PushUnmapped
		log.Info("status has no label in workspace", "workspace", t.key, "status", status)
		return push
	}
	push.Label = out.Label

	if s.api == nil {
		push.Outcome = PushSkipped
		return push
	}
	if err := s.api.UpdateFieldValue(ctx, t.key, push.ItemID, out.Field, []int64{out.OptionID}); err != nil {
		push.Outcome = PushFailed
		push.Error = err.Error()
		log.Error("status push failed", "workspace", t.key, "item_id", push.ItemID, "error", err)
		return push
	}
	push.Outcome = PushWritten
	log.Info("status pushed", "workspace", t.key, "item_id", push.ItemID, "label", out.Label)
	return push
}

// Reconcile applies a Podio item update to the canonical status. Every
// unresolved lookup is logged and reported as an outcome, never as an error.
func (s *Service) Reconcile(ctx context.Context, hook InboundHook) string {
	outcome := s.reconcile(ctx, hook)
	statusReconcilesTotal.WithLabelValues(outcome).Inc()
	return outcome
}

func (s *Service) reconcile(ctx context.Context, hook InboundHook) string {
	log := s.log.WithContext(ctx)

	ref, err := s.store.FindByItemID(ctx, hook.ItemID)
	if err != nil {
		if !errors.Is(err, ErrLeadNotFound) {
			log.DatabaseError("statussync.FindByItemID", err)
			return OutcomeStoreFailed
		}
		log.Info("podio hook for unknown item", "item_id", hook.ItemID)
		return OutcomeUnknownItem
	}
	ctx = logger.ContextWithLeadID(ctx, ref.ID.String())
	log = s.log.WithContext(ctx)

	key, ok := s.resolveWorkspace(hook, ref)
	if !ok {
		log.Warn("podio hook from unknown workspace", "item_id", hook.ItemID, "app_id", hook.AppID, "workspace", hook.Workspace)
		return OutcomeUnknownWorkspace
	}

	field := s.mapper.StatusField(key)
	if field == "" || s.api == nil {
		return OutcomeUnmappedLabel
	}
	item, err := s.api.GetItem(ctx, key, hook.ItemID)
	if err != nil {
		log.Error("podio item fetch failed", "workspace", key, "item_id", hook.ItemID, "error", err)
		return OutcomeFetchFailed
	}

	label := strings.TrimSpace(item.CategoryLabel(field))
	// Hooks echo our own writes; a label we would write ourselves is no change.
	if written, ok := s.mapper.WrittenLabel(key, domain.Status(ref.Status)); ok && written == label {
		return OutcomeUnchanged
	}
	status, ok := s.mapper.Inbound(key, label)
	if !ok {
		log.Info("podio status label not mapped", "workspace", key, "label", label)
		return OutcomeUnmappedLabel
	}
	if string(status) == ref.Status {
		return OutcomeUnchanged
	}

	if err := s.store.UpdateStatus(ctx, ref.ID, string(status)); err != nil {
		log.DatabaseError("statussync.UpdateStatus", err)
		return OutcomeStoreFailed
	}
	log.Info("lead status reconciled from podio", "workspace", key, "from", ref.Status, "to", status, "label", label)
	return OutcomeUpdated
}

// resolveWorkspace prefers the app id sent with the hook, then the workspace
// hint, then the column the item id was found in.
func (s *Service) resolveWorkspace(hook InboundHook, ref LeadRef) (podio.WorkspaceKey, bool) {
	if hook.AppID != 0 {
		m, ok := s.registry.ByAppID(hook.AppID)
		if !ok {
			return "", false
		}
		return m.WorkspaceKey, true
	}
	if hook.Workspace != "" {
		m, err := s.registry.Workspace(podio.WorkspaceKey(hook.Workspace))
		if err != nil {
			return "", false
		}
		return m.WorkspaceKey, true
	}
	if ref.PodioItemIDFranqueadora != nil && *ref.PodioItemIDFranqueadora == hook.ItemID {
		return podio.HeadOffice, true
	}
	if ref.FranchisePodioAppID != nil {
		if m, ok := s.registry.ByAppIDString(*ref.FranchisePodioAppID); ok {
			return m.WorkspaceKey, true
		}
	}
	return "", false
}

// ValidateHook answers a hook.verify challenge. Without a workspace hint each
// workspace is tried until Podio accepts the code.
func (s *Service) ValidateHook(ctx context.Context, workspace string, hookID int64, code string) error {
	if s.api == nil {
		return podio.ErrDisabled
	}
	keys := s.registry.Keys()
	if workspace != "" {
		keys = []podio.WorkspaceKey{podio.WorkspaceKey(workspace)}
	}

	var errs []error
	for _, key := range keys {
		err := s.api.ValidateHook(ctx, key, hookID, code)
		if err == nil {
			s.log.WithContext(ctx).Info("podio hook verified", "hook_id", hookID, "workspace", key)
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
