package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-assemble/framework/app"
	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/config"
	"github.com/km-arc/go-assemble/framework/markers"
	"github.com/km-arc/go-assemble/framework/meta"
	"github.com/km-arc/go-assemble/framework/routing"
)

type pinger struct {
	Config *config.Config `assemble:"inject"`
	closed bool
}

func (p *pinger) Ping(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("pong from " + p.Config.App.Name))
}

func (p *pinger) Close() error {
	p.closed = true
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "kernel-test", Env: "testing", Port: "0"},
		Log: config.LogConfig{Level: "info", Format: "json"},
		Assembly: config.AssemblyConfig{
			IterationLimit:            10,
			CreateMissingDependencies: true,
		},
	}
}

func newApp(t *testing.T, opts ...assembly.Option) (*app.Application, *pinger) {
	t.Helper()
	return newAppWith(t, testConfig(), zap.NewNop(), opts...)
}

func newAppWith(t *testing.T, cfg *config.Config, logger *zap.Logger, opts ...assembly.Option) (*app.Application, *pinger) {
	t.Helper()
	p := &pinger{}
	catalog := markers.NewCatalog().MustAdd(
		meta.Describe[*pinger]().
			Mark(markers.Dispose{}).
			Method("Ping", routing.Route{Method: http.MethodGet, Pattern: "/ping"}),
	)
	a := app.New(cfg, logger, opts...).
		Scan(reflect.TypeFor[*pinger](), meta.NewCatalogScanner(catalog)).
		Register(p)
	d, _ := catalog.Lookup(reflect.TypeFor[*pinger]())
	a.Initializer().AddDescriptor(d)
	return a, p
}

func TestApplication_BootServesAndShutsDown(t *testing.T) {
	a, p := newApp(t)
	require.False(t, a.Booted())
	require.NoError(t, a.Boot(context.Background()))
	require.True(t, a.Booted())
	require.NoError(t, a.Boot(context.Background()), "boot is idempotent")

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong from kernel-test", rr.Body.String())

	assert.False(t, p.closed)
	require.NoError(t, a.Shutdown(context.Background()))
	assert.True(t, p.closed)
}

func TestApplication_BootFailure(t *testing.T) {
	a := app.New(testConfig(), nil)
	err := a.Boot(context.Background())
	require.ErrorIs(t, err, assembly.ErrNoScannersConfigured)
	assert.False(t, a.Booted())
}

func TestApplication_RunStopsWithContext(t *testing.T) {
	a, p := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, p.closed)
}

func TestOptions(t *testing.T) {
	o := app.Options(config.AssemblyConfig{
		IterationLimit:     7,
		RetainContext:      true,
		StrictConstructors: true,
	})
	assert.Equal(t, 7, o.IterationLimit)
	assert.True(t, o.RetainContext)
	assert.True(t, o.StrictConstructors)
	assert.False(t, o.CreateMissingDependencies)
	assert.False(t, o.RetainProcessors)
	assert.NotNil(t, o.Logger)
}

func TestApplication_LogsRoutesOutsideProduction(t *testing.T) {
	for _, env := range []string{"testing", "production"} {
		t.Run(env, func(t *testing.T) {
			cfg := testConfig()
			cfg.App.Env = env
			core, logs := observer.New(zap.DebugLevel)
			a, _ := newAppWith(t, cfg, zap.New(core))
			assert.Equal(t, env, a.Environment())
			require.NoError(t, a.Boot(context.Background()))

			routes := logs.FilterMessage("route").All()
			if a.IsProduction() {
				assert.Empty(t, routes)
				return
			}
			require.Len(t, routes, 1)
			assert.Equal(t, "/ping", routes[0].ContextMap()["pattern"])
		})
	}
}
