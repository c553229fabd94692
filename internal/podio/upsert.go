package podio

import (
	"context"
	"errors"
	"fmt"

	"wchic_backend/platform/logger"
)

// Upsert actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// ItemWriter is the part of the Podio API the upsert needs.
type ItemWriter interface {
	GetItemByExternalID(ctx context.Context, key WorkspaceKey, externalID string) (*Item, error)
	CreateItem(ctx context.Context, key WorkspaceKey, externalID string, fields map[string]any) (int64, error)
	UpdateItem(ctx context.Context, key WorkspaceKey, itemID int64, externalID string, fields map[string]any) error
}

var _ ItemWriter = (*Client)(nil)

// UpsertResult reports the outcome of one workspace write.
type UpsertResult struct {
	Workspace WorkspaceKey `json:"workspace"`
	OK        bool         `json:"ok"`
	Action    string       `json:"action"`
	AppID     int64        `json:"appId"`
	ItemID    int64        `json:"itemId"`
	Dropped   []string     `json:"dropped,omitempty"`
}

// Upserter writes canonical leads into workspaces keyed by external id.
type Upserter struct {
	api      ItemWriter
	registry *Registry
	log      *logger.Logger
}

func NewUpserter(api ItemWriter, registry *Registry, log *logger.Logger) *Upserter {
	return &Upserter{api: api, registry: registry, log: log}
}

// Upsert updates the item carrying lead.ExternalID, or creates it when Podio
// answers 404. Any other failure is returned unchanged.
func (u *Upserter) Upsert(ctx context.Context, key WorkspaceKey, lead CanonicalLead) (UpsertResult, error) {
	mapping, err := u.registry.Workspace(key)
	if err != nil {
		return UpsertResult{}, err
	}

	tr := Translate(mapping, lead)
	result := UpsertResult{Workspace: key, AppID: mapping.AppID}
	for _, d := range tr.DroppedFor(DropUnknownOption, DropUnsupportedValue) {
		fieldsDroppedTotal.WithLabelValues(string(key), d.Field, d.Reason).Inc()
		result.Dropped = append(result.Dropped, d.Field)
		u.log.WithContext(ctx).Warn("podio field dropped",
			"workspace", key, "field", d.Field, "reason", d.Reason, "value", d.Value)
	}

	existing, err := u.api.GetItemByExternalID(ctx, key, lead.ExternalID)
	switch {
	case err == nil:
		if existing.ItemID == 0 {
			return UpsertResult{}, errors.New("podio item exists but item_id is missing")
		}
		if err := u.api.UpdateItem(ctx, key, existing.ItemID, lead.ExternalID, tr.Fields); err != nil {
			return UpsertResult{}, err
		}
		result.Action = ActionUpdated
		result.ItemID = existing.ItemID
	case IsNotFound(err):
		itemID, err := u.api.CreateItem(ctx, key, lead.ExternalID, tr.Fields)
		if err != nil {
			return UpsertResult{}, err
		}
		if itemID == 0 {
			return UpsertResult{}, fmt.Errorf("podio create in %s returned no item_id", key)
		}
		result.Action = ActionCreated
		result.ItemID = itemID
	default:
		return UpsertResult{}, err
	}

	result.OK = true
	upsertsTotal.WithLabelValues(string(key), result.Action).Inc()
	u.log.WithContext(ctx).Info("podio item upserted",
		"workspace", key,
		"action", result.Action,
		"item_id", result.ItemID,
		"external_id", lead.ExternalID,
	)
	return result, nil
}
