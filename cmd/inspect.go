package cmd

import (
	"encoding/json"
	"slices"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/meta"
	"github.com/km-arc/go-assemble/framework/routing"
)

// report is the JSON printed by inspect.
type report struct {
	Session    string              `json:"session"`
	Components []string            `json:"components"`
	Processors int                 `json:"processors"`
	Routes     []routing.RouteInfo `json:"routes"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Assemble the components, print the result as JSON and tear down",
	Long: `Runs one assembly session with the registry retained and prints the
registered component types and routes as JSON. The destruction ledger fires
before the command exits.

Examples:
  assemble inspect
  assemble inspect --manifest demo/components.yaml | jq '.routes'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApplication(
			assembly.WithRetainContext(true),
			assembly.WithRetainProcessors(true),
		)
		if err != nil {
			return err
		}
		if err := application.Boot(cmd.Context()); err != nil {
			return err
		}
		defer func() { _ = application.Shutdown(cmd.Context()) }()

		ini := application.Initializer()
		var components []string
		for _, t := range ini.Context().Types() {
			components = append(components, meta.TypeName(t))
		}
		slices.Sort(components)

		routes, err := application.Router.Routes()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report{
			Session:    ini.ID(),
			Components: components,
			Processors: len(ini.Processors()),
			Routes:     routes,
		})
	},
}
