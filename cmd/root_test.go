package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-assemble/framework/routing"
)

func runInspect(t *testing.T, args ...string) report {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"inspect", "--env-file", "testdata/none.env"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})

	require.NoError(t, Execute())

	var r report
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	return r
}

func TestInspect_ReportsComponentsAndRoutes(t *testing.T) {
	r := runInspect(t, "--manifest", "../demo/components.yaml", "--config", "testdata/strict.yaml")

	require.NotEmpty(t, r.Session)
	require.Contains(t, r.Components, "github.com/km-arc/go-assemble/demo.ItemController")
	require.Contains(t, r.Components, "github.com/km-arc/go-assemble/demo.ItemStore")
	require.Contains(t, r.Components, "github.com/km-arc/go-assemble/demo.AuditLog")
	require.Equal(t, 9, r.Processors, "eight defaults plus the route processor")

	require.Contains(t, r.Routes, routing.RouteInfo{Method: http.MethodGet, Pattern: "/items"})
	require.Contains(t, r.Routes, routing.RouteInfo{Method: http.MethodGet, Pattern: "/items/{id}"})
	require.Contains(t, r.Routes, routing.RouteInfo{Method: http.MethodPost, Pattern: "/items"})

	require.Equal(t, "inventory-test", cfg.App.Name)
	require.Equal(t, 5, cfg.Assembly.IterationLimit)
}
