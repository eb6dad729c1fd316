package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/solsim/internal/viz"
	"github.com/aretw0/solsim/pkg/adapters/process"
	"github.com/aretw0/solsim/pkg/adapters/rpc"
)

func newLocalnetCommand(g *globalFlags) *cobra.Command {
	var (
		reuse     bool
		killStale bool
	)
	cmd := &cobra.Command{
		Use:   "localnet",
		Short: "Start a local validator and keep it running until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			pc := cfg.Process()
			if cmd.Flags().Changed("reuse") {
				pc.ReuseRunning = reuse
			}
			sup := process.NewSupervisor(pc, process.WithLogger(logger))

			sm := viz.NewSignalManager(cmd.Context())
			defer sm.Stop()
			ctx := sm.Context()

			if killStale {
				return sup.KillStale(ctx)
			}

			h, err := sup.Acquire(ctx, nil)
			if err != nil {
				return err
			}
			// Adopted validators belong to whoever started them.
			if h.Spawned() {
				defer func() {
					if terr := sup.Terminate(context.WithoutCancel(ctx), h, pc.TerminateTimeout); terr != nil {
						err = terr
					}
				}()
			}

			client := rpc.New(cfg.Localnet.RPCURL, rpc.WithLogger(logger))
			defer client.Close()
			if herr := client.GetHealth(ctx); herr != nil {
				logger.Warn("validator is not healthy yet", "endpoint", client.Endpoint(), "error", herr)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "localnet ready (pid %d) at %s, Ctrl+C to stop\n", h.PID, client.Endpoint())
			select {
			case <-ctx.Done():
			case <-h.Done():
				if exitErr := h.ExitErr(); exitErr != nil {
					return fmt.Errorf("validator exited: %w", exitErr)
				}
				return errors.New("validator exited")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reuse, "reuse", false, "Adopt a running validator instead of replacing it")
	cmd.Flags().BoolVar(&killStale, "kill-stale", false, "Only kill leftover validators and exit")
	return cmd
}
