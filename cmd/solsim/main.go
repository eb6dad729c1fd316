// Command solsim runs Lua-scripted simulations, optionally against a local
// Solana validator, and hosts the results viewer.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/aretw0/solsim/internal/cli"
	"github.com/aretw0/solsim/pkg/adapters/localnet"
	"github.com/aretw0/solsim/pkg/adapters/lua"
	"github.com/aretw0/solsim/pkg/domain"
)

func main() {
	root := cli.NewRootCommand("solsim", "Simulate systems step by step and collect their quantities", buildScript)
	root.Version = version
	os.Exit(cli.Execute(context.Background(), root))
}

// buildScript loads the script named on the command line or in the
// configuration. The watchlist comes from the configuration, else from the
// script's `watch` global.
func buildScript(_ context.Context, env cli.Env) (cli.Target, error) {
	path := env.Config.Script
	if len(env.Args) > 0 {
		path = env.Args[0]
	}
	if path == "" {
		return cli.Target{}, errors.New("no script: pass a .lua file or set script in the configuration")
	}
	script, err := lua.LoadFile(path)
	if err != nil {
		return cli.Target{}, err
	}

	watch := env.Config.Watch
	if len(watch) == 0 {
		watch = script.Watch()
	}
	target := cli.Target{
		System:    script,
		Watchlist: domain.NewWatchlist(watch...),
		Close:     script.Close,
	}

	if env.Config.Localnet.Enabled {
		ln := env.Config.Localnet
		opts := []localnet.Option{
			localnet.WithEndpoint(ln.RPCURL),
			localnet.WithWorkspace(ln.Workspace),
			localnet.WithLogger(env.Logger),
		}
		if env.Supervisor != nil {
			opts = append(opts, localnet.WithSupervisor(env.Supervisor))
		}
		backend := localnet.New(env.Config.Process(), opts...)
		target.System = lua.NewProcessScript(script, backend, env.Config.Commitment())
	}
	return target, nil
}
