package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/solsim/internal/config"
	"github.com/aretw0/solsim/internal/presentation/tui"
	"github.com/aretw0/solsim/internal/viz"
)

func newViewCommand(g *globalFlags) *cobra.Command {
	var (
		addr      string
		printOnly bool
	)
	cmd := &cobra.Command{
		Use:   "view [results.feather]",
		Short: "Browse simulation results",
		Long: fmt.Sprintf(`Serves a results file over HTTP until interrupted. The file defaults
to the path in %s, which is how run --viz-results hands its table over.`, config.ResultsPathEnv),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			path := os.Getenv(config.ResultsPathEnv)
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no results file: pass a path or set %s", config.ResultsPathEnv)
			}
			table, err := viz.ReadFile(path)
			if err != nil {
				return err
			}

			if printOnly {
				return tui.RenderTable(cmd.OutOrStdout(), table)
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Viz.Addr
			}

			sm := viz.NewSignalManager(cmd.Context())
			defer sm.Stop()
			tui.PrintBanner(cmd.ErrOrStderr())
			return viz.Serve(sm.Context(), addr, viz.NewHandler(table), logger, func(bound string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Viewing %d rows at http://%s (Ctrl+C to stop)\n", table.Len(), bound)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address of the viewer")
	cmd.Flags().BoolVar(&printOnly, "print", false, "Render the table in the terminal and exit")
	return cmd
}
