package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/solsim/pkg/ports"
)

func newResultsCommand(g *globalFlags) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect stored simulation results",
	}
	cmd.PersistentFlags().StringVar(&dsn, "store", "", "Result store (memory:, file:dir, sqlite:path, redis://...); defaults to the configured store")

	withStore := func(cmd *cobra.Command, fn func(ctx context.Context, store ports.ResultStore) error) error {
		cfg, err := g.load()
		if err != nil {
			return err
		}
		if dsn == "" {
			dsn = cfg.Store
		}
		if dsn == "" {
			return errors.New("no result store: pass --store or set store in the configuration")
		}
		store, closer, err := openStore(cmd.Context(), dsn, cfg.StoreKey)
		if err != nil {
			return err
		}
		defer closer.Close()
		return fn(cmd.Context(), store)
	}

	var format, output string
	show := &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Print stored results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store ports.ResultStore) error {
				table, err := store.Load(ctx, args[0])
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				return writeResults(cmd, table, output, format)
			})
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "", "Output format: table, csv, json or feather")
	show.Flags().StringVarP(&output, "output", "o", "", "Write results to this file instead of stdout")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored execution IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store ports.ResultStore) error {
				ids, err := store.List(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <execution-id>",
		Short: "Delete stored results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store ports.ResultStore) error {
				return store.Delete(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
