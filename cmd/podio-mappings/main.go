// Command podio-mappings regenerates the embedded workspace mappings from
// Podio app definitions. Definitions come from the live API, the latest
// MinIO export, or a local directory of exported files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"wchic_backend/internal/adapters/storage"
	"wchic_backend/internal/podio"
	"wchic_backend/internal/podioapps"
	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"
)

const (
	sourcePodio = "podio"
	sourceMinIO = "minio"
	sourceLocal = "local"
)

// appSource returns the raw app definition of one workspace.
type appSource func(ctx context.Context, key podio.WorkspaceKey, appID string) ([]byte, error)

func main() {
	source := flag.String("source", sourcePodio, "where app definitions come from: podio, minio or local")
	inDir := flag.String("in", "podio-apps", "directory of exported {workspace}.app.{id}.json files (source=local)")
	outDir := flag.String("out", "internal/podio/mappings", "directory the mapping files are written to")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	registry, err := podio.LoadRegistry()
	if err != nil {
		panic("failed to load current mappings: " + err.Error())
	}

	fetch, err := newSource(*source, *inDir, cfg, registry, log)
	if err != nil {
		log.Error("invalid source", "source", *source, "error", err)
		os.Exit(2)
	}

	apps := cfg.GetPodioApps()
	failed := 0
	for _, key := range registry.Keys() {
		previous, _ := registry.Workspace(key)
		appID := apps[string(key)].AppID
		if appID == "" {
			log.Warn("workspace has no app id, skipping", "workspace", key)
			continue
		}

		raw, err := fetch(ctx, key, appID)
		if err != nil {
			log.Error("failed to load app definition", "workspace", key, "app_id", appID, "error", err)
			failed++
			continue
		}

		name := ""
		if previous != nil {
			name = previous.WorkspaceName
		}
		mapping, out, err := podioapps.GenerateMapping(raw, key, name, previous, time.Now())
		if err != nil {
			log.Error("failed to generate mapping", "workspace", key, "error", err)
			failed++
			continue
		}

		path := filepath.Join(*outDir, string(key)+".json")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			log.Error("failed to write mapping", "path", path, "error", err)
			failed++
			continue
		}
		log.Info("mapping written", "workspace", key, "path", path, "fields", len(mapping.Fields), "categories", len(mapping.Categories))
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func newSource(name, inDir string, cfg *config.Config, registry *podio.Registry, log *logger.Logger) (appSource, error) {
	switch name {
	case sourcePodio:
		client := podio.NewClient(cfg, log)
		if client == nil {
			return nil, fmt.Errorf("PODIO_CLIENT_ID/PODIO_CLIENT_SECRET not configured")
		}
		return func(ctx context.Context, key podio.WorkspaceKey, _ string) ([]byte, error) {
			return client.GetApp(ctx, key)
		}, nil

	case sourceMinIO:
		store, err := storage.NewMinIOService(cfg)
		if err != nil {
			return nil, err
		}
		svc := podioapps.NewService(nil, store, cfg.GetMinioBucketPodioApps(), registry, log)
		return func(ctx context.Context, key podio.WorkspaceKey, _ string) ([]byte, error) {
			return svc.LatestExport(ctx, key)
		}, nil

	case sourceLocal:
		return func(_ context.Context, key podio.WorkspaceKey, appID string) ([]byte, error) {
			return readLocalExport(inDir, key, appID)
		}, nil
	}
	return nil, fmt.Errorf("unknown source %q", name)
}

// readLocalExport prefers the exact export name and falls back to the last
// file for the workspace in lexical order.
func readLocalExport(dir string, key podio.WorkspaceKey, appID string) ([]byte, error) {
	exact := filepath.Join(dir, podioapps.ObjectKey(key, appID))
	if raw, err := os.ReadFile(exact); err == nil {
		return raw, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, string(key)+".app.*.json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no export for %s in %s", key, dir)
	}
	sort.Strings(matches)
	return os.ReadFile(matches[len(matches)-1])
}
