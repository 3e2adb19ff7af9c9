package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/config"
	"github.com/km-arc/go-assemble/framework/meta"
	"github.com/km-arc/go-assemble/framework/processors"
	"github.com/km-arc/go-assemble/framework/routing"
)

const shutdownTimeout = 10 * time.Second

// Application owns one assembly session and the HTTP server in front of the
// assembled components.
//
//	application := app.New(cfg, logger)
//	application.Scan(demo.Root, meta.NewCatalogScanner(demo.Catalog()))
//	if err := application.Run(ctx); err != nil { ... }
type Application struct {
	Config      *config.Config
	Logger      *zap.Logger
	Router      *routing.Router
	Dispatchers processors.Dispatchers

	ini       *assembly.Initializer
	destroyer *assembly.Destroyer
	server    *http.Server
}

// New creates the application and registers the framework core in a fixed
// order: the default processors, the route processor, then the config, the
// logger and the router as components.
func New(cfg *config.Config, logger *zap.Logger, opts ...assembly.Option) *Application {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := []assembly.Option{
		assembly.WithOptions(Options(cfg.Assembly)),
		assembly.WithLogger(logger),
	}
	ini := assembly.New(append(base, opts...)...)

	a := &Application{
		Config: cfg,
		Logger: logger,
		Router: routing.New(logger),
		ini:    ini,
	}
	a.Dispatchers = processors.Install(ini)
	ini.AddProcessor(&routing.Processor{})
	ini.AddComponent(cfg, logger, a.Router)
	return a
}

// Options converts loaded configuration into session options.
func Options(c config.AssemblyConfig) assembly.Options {
	o := assembly.DefaultOptions()
	o.IterationLimit = c.IterationLimit
	o.CreateMissingDependencies = c.CreateMissingDependencies
	o.RetainContext = c.RetainContext
	o.RetainProcessors = c.RetainProcessors
	o.StrictConstructors = c.StrictConstructors
	return o
}

// Scan adds a scanning root.
func (a *Application) Scan(root reflect.Type, scanner meta.Scanner) *Application {
	a.ini.AddScanner(root, scanner)
	return a
}

// Register adds pre-built components.
func (a *Application) Register(components ...any) *Application {
	a.ini.AddComponent(components...)
	return a
}

// Initializer exposes the session for custom processors and markers.
func (a *Application) Initializer() *assembly.Initializer { return a.ini }

// Boot runs the assembly session.
func (a *Application) Boot(ctx context.Context) error {
	if a.destroyer != nil {
		return nil
	}
	d, err := a.ini.Initiate(ctx)
	if err != nil {
		return fmt.Errorf("app: boot: %w", err)
	}
	a.destroyer = d
	if !a.IsProduction() {
		a.logRoutes()
	}
	return nil
}

func (a *Application) logRoutes() {
	routes, err := a.Router.Routes()
	if err != nil {
		a.Logger.Warn("listing routes", zap.Error(err))
		return
	}
	for _, r := range routes {
		a.Logger.Debug("route", zap.String("method", r.Method), zap.String("pattern", r.Pattern))
	}
}

// Booted reports whether Boot succeeded.
func (a *Application) Booted() bool { return a.destroyer != nil }

// Handler returns the HTTP entry point.
func (a *Application) Handler() http.Handler { return a.Router }

// Run boots the application if needed and serves HTTP until ctx is done,
// then shuts down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(ctx); err != nil {
		return err
	}

	addr := net.JoinHostPort("", a.Config.App.Port)
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening",
			zap.String("app", a.Config.App.Name),
			zap.String("addr", addr),
			zap.String("env", a.Environment()),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the server, if running, and fires the destruction ledger.
func (a *Application) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	if a.destroyer != nil {
		a.destroyer.Fire()
	}
	return err
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }

// IsProduction reports whether the application runs in production.
func (a *Application) IsProduction() bool { return a.Environment() == "production" }
