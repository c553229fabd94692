// Command podio-hooks registers the item.update webhook on every configured
// Podio app. Running it again leaves existing hooks untouched.
package main

import (
	"context"
	"os"
	"time"

	"wchic_backend/internal/podio"
	"wchic_backend/internal/podioapps"
	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	hookURL := cfg.GetPodioWebhookURL()
	if hookURL == "" {
		log.Error("PODIO_WEBHOOK_URL not configured")
		os.Exit(2)
	}

	client := podio.NewClient(cfg, log)
	if client == nil {
		log.Error("PODIO_CLIENT_ID/PODIO_CLIENT_SECRET not configured")
		os.Exit(2)
	}

	registry, err := podio.LoadRegistry()
	if err != nil {
		panic("failed to load podio mappings: " + err.Error())
	}
	if err := registry.CheckAppIDs(cfg.GetPodioApps()); err != nil {
		panic(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svc := podioapps.NewService(client, nil, "", registry, log)
	failed := false
	for _, res := range svc.RegisterHooks(ctx, hookURL) {
		log.Info("podio hook", "workspace", res.Workspace, "app_id", res.AppID, "outcome", res.Outcome, "hook_id", res.HookID, "error", res.Error)
		if res.Outcome == podioapps.HookFailed {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
