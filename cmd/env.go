package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/velasur/inventory-cli/internal/catalog"
	"github.com/velasur/inventory-cli/internal/notify"
	"github.com/velasur/inventory-cli/internal/source"
	"github.com/velasur/inventory-cli/internal/store"
	"github.com/velasur/inventory-cli/internal/sync"
	"github.com/velasur/inventory-cli/pkg/dropbox"
	"github.com/velasur/inventory-cli/pkg/holded"
)

// env holds the wired-up subsystems a command needs.
type env struct {
	Store    store.Store
	Client   holded.Client
	Source   source.Source
	Notifier notify.Notifier
	Runner   *sync.Runner
}

// Close releases held resources.
func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initEnv builds the full runtime from config: store, source driver, ERP
// client, notifiers, and the runner tying them together.
func initEnv(ctx context.Context, dryRun bool) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	src, err := buildSource()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	client := holded.NewClient(cfg.Holded.APIKey,
		holded.WithBaseURL(cfg.Holded.BaseURL),
		holded.WithRateLimit(cfg.Holded.RatePerSec),
	)

	aliases, err := loadAliases()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	notifier := buildNotifier()
	runner := sync.NewRunner(src, client, st, notifier, sync.Options{
		TempDir:           cfg.Source.TempDir,
		AllowedExtensions: cfg.Source.AllowedExtensions,
		MaxFileSizeMB:     cfg.Source.MaxFileSizeMB,
		WarehouseID:       cfg.Sync.WarehouseID,
		Aliases:           aliases,
		DryRun:            dryRun,
	})

	return &env{
		Store:    st,
		Client:   client,
		Source:   src,
		Notifier: notifier,
		Runner:   runner,
	}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case "sqlite", "":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func buildSource() (source.Source, error) {
	switch cfg.Source.Driver {
	case "dropbox", "":
		if cfg.Dropbox.AccessToken == "" {
			return nil, eris.New("dropbox.access_token is required")
		}
		client := dropbox.NewClient(cfg.Dropbox.AccessToken)
		return source.NewDropboxSource(client, cfg.Dropbox.FolderPath), nil
	case "ftp":
		return source.NewFTPSource(source.FTPOptions{
			Host:     cfg.FTP.Host,
			User:     cfg.FTP.User,
			Password: cfg.FTP.Password,
			Folder:   cfg.FTP.FolderPath,
			Timeout:  time.Duration(cfg.FTP.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, eris.Errorf("unknown source driver %q", cfg.Source.Driver)
	}
}

func loadAliases() (catalog.AliasTable, error) {
	if cfg.Sync.AliasFile == "" {
		return catalog.DefaultAliases(), nil
	}
	return catalog.LoadAliases(cfg.Sync.AliasFile)
}

func buildNotifier() notify.Notifier {
	var notifiers notify.Multi
	if cfg.SMTP.Host != "" && len(cfg.SMTP.To) > 0 {
		notifiers = append(notifiers, notify.NewEmailNotifier(notify.EmailOptions{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		}))
	}
	if cfg.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Webhook.URL))
	}
	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}
