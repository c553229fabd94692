package podioapps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"wchic_backend/internal/adapters/storage"
	"wchic_backend/internal/podio"
	"wchic_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const (
	HookTypeItemUpdate = "item.update"

	exportConcurrency = 2
)

// PodioAPI is the slice of the Podio client used for app export and hooks.
type PodioAPI interface {
	AppID(key podio.WorkspaceKey) string
	GetApp(ctx context.Context, key podio.WorkspaceKey) (json.RawMessage, error)
	ListHooks(ctx context.Context, key podio.WorkspaceKey) ([]podio.Hook, error)
	CreateHook(ctx context.Context, key podio.WorkspaceKey, hookURL, hookType string) (int64, error)
}

type ExportedApp struct {
	Workspace podio.WorkspaceKey `json:"workspace"`
	AppID     string             `json:"appId"`
	Object    string             `json:"object,omitempty"`
	Skipped   string             `json:"skipped,omitempty"`
}

type HookResult struct {
	Workspace podio.WorkspaceKey `json:"workspace"`
	AppID     string             `json:"appId,omitempty"`
	Outcome   string             `json:"outcome"`
	HookID    int64              `json:"hookId,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Hook registration outcomes.
const (
	HookCreated = "created"
	HookExists  = "exists"
	HookSkipped = "skipped"
	HookFailed  = "error"
)

type Service struct {
	api      PodioAPI
	storage  storage.StorageService
	bucket   string
	registry *podio.Registry
	log      *logger.Logger
}

func NewService(api PodioAPI, store storage.StorageService, bucket string, registry *podio.Registry, log *logger.Logger) *Service {
	return &Service{api: api, storage: store, bucket: bucket, registry: registry, log: log}
}

// ObjectKey names the stored export of one app.
func ObjectKey(key podio.WorkspaceKey, appID string) string {
	return fmt.Sprintf("%s.app.%s.json", key, appID)
}

// ExportApps fetches every configured app definition and stores it in the
// bucket. Workspaces without an app id are reported as skipped.
func (s *Service) ExportApps(ctx context.Context) ([]ExportedApp, error) {
	if err := s.storage.EnsureBucketExists(ctx, s.bucket); err != nil {
		return nil, err
	}

	keys := s.registry.Keys()
	out := make([]ExportedApp, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for i, key := range keys {
		appID := s.api.AppID(key)
		out[i] = ExportedApp{Workspace: key, AppID: appID}
		if appID == "" {
			out[i].Skipped = "app not configured"
			continue
		}
		g.Go(func() error {
			raw, err := s.api.GetApp(gctx, key)
			if err != nil {
				return fmt.Errorf("export %s: %w", key, err)
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				return fmt.Errorf("export %s: %w", key, err)
			}
			objectKey := ObjectKey(key, appID)
			if err := s.storage.PutObject(gctx, s.bucket, objectKey, "application/json", &pretty, int64(pretty.Len())); err != nil {
				return err
			}
			out[i].Object = objectKey
			s.log.Info("podio app exported", "workspace", key, "app_id", appID, "object", objectKey)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestExport reads the newest stored export of a workspace. Object keys
// sort by app id, so the last key wins when an app was replaced.
func (s *Service) LatestExport(ctx context.Context, key podio.WorkspaceKey) ([]byte, error) {
	objects, err := s.storage.ListObjects(ctx, s.bucket, string(key)+".app.")
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, o := range objects {
		if strings.HasSuffix(o.Key, ".json") {
			keys = append(keys, o.Key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no exported app for workspace %s in bucket %s", key, s.bucket)
	}
	sort.Strings(keys)

	rc, err := s.storage.GetObject(ctx, s.bucket, keys[len(keys)-1])
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// RegisterHooks makes sure every configured app has an item.update hook
// pointing at hookURL. Failures are reported per workspace.
func (s *Service) RegisterHooks(ctx context.Context, hookURL string) []HookResult {
	var results []HookResult
	for _, key := range s.registry.Keys() {
		results = append(results, s.registerHook(ctx, key, hookURL))
	}
	return results
}

func (s *Service) registerHook(ctx context.Context, key podio.WorkspaceKey, hookURL string) HookResult {
	res := HookResult{Workspace: key, AppID: s.api.AppID(key)}
	if res.AppID == "" {
		res.Outcome = HookSkipped
		return res
	}

	hooks, err := s.api.ListHooks(ctx, key)
	if err != nil {
		return s.hookFailed(res, err)
	}
	for _, h := range hooks {
		if h.URL == hookURL && h.Type == HookTypeItemUpdate {
			res.Outcome = HookExists
			res.HookID = h.HookID
			return res
		}
	}

	id, err := s.api.CreateHook(ctx, key, hookURL, HookTypeItemUpdate)
	if err != nil {
		return s.hookFailed(res, err)
	}
	res.Outcome = HookCreated
	res.HookID = id
	s.log.Info("podio hook registered", "workspace", key, "hook_id", id)
	return res
}

func (s *Service) hookFailed(res HookResult, err error) HookResult {
	s.log.Error("podio hook registration failed", "workspace", res.Workspace, "error", err)
	res.Outcome = HookFailed
	res.Error = err.Error()
	return res
}
