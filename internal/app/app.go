package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/store"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/store/drivers/sqlite"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/cryptox"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/mindtree"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
	"golang.org/x/time/rate"
)

// BuildVersion is stamped into log records. The CLI sets it from its own
// ldflags-provided version before building the application.
var BuildVersion = "dev"

// Application wires the persistent store and the session client for the CLI.
type Application struct {
	cfg    Config
	logger *slog.Logger
	out    io.Writer

	db     store.Store
	client *mindtree.Client
}

// New opens the store and builds the client. Notices are printed to out.
func New(cfg Config, out io.Writer) (*Application, error) {
	if out == nil {
		out = os.Stdout
	}

	app := &Application{
		cfg:    cfg,
		out:    out,
		logger: NewLogger(cfg),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initClient(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "mindtree-cli",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// initStore opens the database, applies migrations and seals values when a
// master key is configured.
func (app *Application) initStore() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	sealer, err := app.loadSealer()
	if err != nil {
		_ = db.Close()
		return err
	}

	if sealer != nil {
		app.db = store.NewSealed(db, sealer, app.logger.With("component", "store"))
		app.logger.Debug("stored values are sealed")
	} else {
		app.db = db
	}
	return nil
}

func (app *Application) loadSealer() (*cryptox.Sealer, error) {
	switch {
	case app.cfg.MasterKey != "":
		return cryptox.NewSealer([]byte(app.cfg.MasterKey))
	case app.cfg.MasterKeyPath != "":
		return cryptox.NewSealerFromFile(app.cfg.MasterKeyPath)
	default:
		return nil, nil
	}
}

func (app *Application) initClient() error {
	client, err := mindtree.New(mindtree.Config{
		BaseURL:          app.cfg.BaseURL,
		Storage:          app.db,
		Logger:           app.logger,
		Notifier:         mindtree.NotifierFunc(app.printNotice),
		Navigator:        mindtree.NavigatorFunc(func() { app.logger.Info("session ended, log in again to continue") }),
		RequestTimeout:   app.cfg.RequestTimeout,
		RenewTimeout:     app.cfg.RenewTimeout,
		RenewBefore:      app.cfg.RenewBefore,
		RefreshPath:      app.cfg.RefreshPath,
		PushBackoffFloor: app.cfg.PushBackoffFloor,
		PushBackoffCap:   app.cfg.PushBackoffCap,
		RateLimit:        rate.Limit(app.cfg.RateLimit),
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	app.client = client
	return nil
}

func (app *Application) printNotice(n mindtree.Notice) {
	fmt.Fprintf(app.out, "[%s] %s\n", n.Level, n.Message)
}

// Client returns the session client.
func (app *Application) Client() *mindtree.Client { return app.client }

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Store returns the persistent store.
func (app *Application) Store() store.Store { return app.db }

// Close stops the client and closes the database.
func (app *Application) Close() error {
	app.client.Close()
	return app.db.Close()
}
