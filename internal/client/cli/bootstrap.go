package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/kumo/internal/client/avatars"
	"github.com/dmitrijs2005/kumo/internal/client/client"
	"github.com/dmitrijs2005/kumo/internal/client/config"
	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/gateway/memory"
	"github.com/dmitrijs2005/kumo/internal/client/gateway/postgres"
	"github.com/dmitrijs2005/kumo/internal/client/gateway/rest"
	"github.com/dmitrijs2005/kumo/internal/client/notifier"
	"github.com/dmitrijs2005/kumo/internal/client/responder"
	"github.com/dmitrijs2005/kumo/internal/client/sessionvault"
	"github.com/dmitrijs2005/kumo/internal/client/stores"
	"github.com/dmitrijs2005/kumo/internal/logging"
)

// Demo account seeded into the in-memory backend.
const (
	DemoEmail    = "demo@kumo.app"
	DemoPassword = "kumo-demo"
)

// Bootstrap opens local storage, picks the backend described by cfg and
// builds an App over it. cleanup closes the stores, drains queued webhooks
// and closes the databases; call it once Run returns.
func Bootstrap(ctx context.Context, cfg *config.Config, log logging.Logger) (_ *App, _ func(), err error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	defer func() {
		if err != nil {
			closeAll()
		}
	}()

	db, err := client.OpenDataDir(ctx, cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open local storage: %w", err)
	}
	closers = append(closers, func() { _ = db.Close() })

	hc := &http.Client{Timeout: cfg.RequestTimeout}

	auth, rows, pg, err := openBackend(ctx, cfg, db, hc, log)
	if err != nil {
		return nil, nil, err
	}
	if pg != nil {
		closers = append(closers, func() { _ = pg.Close() })
	}

	webhook := notifier.NewWebhook(cfg.WebhookURL, cfg.WebhookTestURL, &http.Client{Timeout: cfg.WebhookTimeout})
	disp := notifier.NewDispatcher(webhook, cfg.WebhookTimeout, log)
	closers = append(closers, disp.Close)

	opts := []stores.Option{stores.WithLogger(log)}
	if cfg.WebhookURL != "" {
		opts = append(opts, stores.WithSink(disp))
	}

	var reply responder.Responder = responder.Template{}
	if cfg.OpenAI.APIKey != "" {
		reply = responder.NewOpenAI(responder.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}, nil, log)
	}

	var avatarStore stores.AvatarStorage
	if cfg.S3.Bucket != "" {
		s3, err := avatars.NewS3Storage(ctx, avatars.Config{
			Region:        cfg.S3.Region,
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			Bucket:        cfg.S3.Bucket,
			PublicBaseURL: cfg.S3.PublicBaseURL,
		}, hc)
		if err != nil {
			log.Warn(ctx, "avatar storage disabled", "error", err)
		} else {
			avatarStore = s3
		}
	}

	d := Deps{
		Auth:         auth,
		Session:      stores.NewSessionStore(auth, rows, avatarStore, opts...),
		Conversation: stores.NewConversationStore(rows, reply, opts...),
		Tasks:        stores.NewTaskStore(rows, opts...),
		Moods:        stores.NewMoodStore(rows, opts...),
		Webhooks:     disp,
		Log:          log,
	}
	closers = append(closers, d.Session.Close, d.Conversation.Close, d.Tasks.Close, d.Moods.Close)

	return NewApp(d), closeAll, nil
}

// openBackend returns the auth and table gateways. Table calls go to
// Postgres when a DSN is configured; pg is that connection, or nil.
func openBackend(ctx context.Context, cfg *config.Config, local *sql.DB, hc *http.Client, log logging.Logger) (gateway.Auth, gateway.Rows, *sql.DB, error) {
	if cfg.Demo {
		gw := memory.New()
		gw.AddAccount(DemoEmail, DemoPassword, map[string]any{"full_name": "Kumo Demo"})
		log.Info(ctx, "using in-memory backend", "email", DemoEmail)
		return gw, gw, nil, nil
	}

	rc, err := rest.New(rest.Config{
		BaseURL:       cfg.BackendURL,
		AnonKey:       cfg.AnonKey,
		HTTPClient:    hc,
		Storage:       sessionvault.New(local, cfg.SessionSecret),
		RefreshMargin: cfg.RefreshMargin,
		Logger:        log,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	rc.StartAutoRefresh(ctx, cfg.RefreshMargin/2)

	if cfg.PostgresDSN == "" {
		return rc, rc, nil, nil
	}

	pg, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.PostgresMigrate {
		if err := postgres.RunMigrations(ctx, pg); err != nil {
			_ = pg.Close()
			return nil, nil, nil, err
		}
	}
	return rc, postgres.NewStore(pg, rc.AccessToken, log), pg, nil
}
