/*
Package solsim runs Monte Carlo style simulations of systems, optionally
backed by a local Solana validator, and collects the quantities they expose
into a results table.

# Concept

A system produces an initial state and then, step by step, updates to it.
The simulation runs the system several times from scratch, records the
watched quantities of every step, and returns one flat table indexed by run
and step. Plain systems are synchronous Go code. Process-backed systems own
an external process (a test validator) that is started before each run and
torn down after it, whatever happens during the run.

# Usage

	func main() {
		sys := ports.StepFunc{
			Initial: func() (domain.State, error) { return domain.State{"prey": 10.0}, nil },
			Next: func(s domain.State, _ domain.History) (domain.State, error) {
				return domain.State{"prey": s["prey"].(float64) * 1.1}, nil
			},
		}
		sim := solsim.New(sys, []string{"prey"})
		table, err := sim.Run(context.Background(), 5, 100, false)
		if err != nil {
			log.Fatal(err)
		}
		_ = table.WriteCSV(os.Stdout)
	}

Calling sim.Main() instead gives the simulation a command line with `run`,
`view`, `localnet` and `results` subcommands.

# Process-backed systems

Embed *localnet.Backend in a type implementing InitialStep(ctx) and
Step(ctx, state, history). The backend starts `anchor localnet` (or adopts a
running validator), waits for it to report a processed slot, opens an RPC
client and the Anchor workspace, and stops the whole process tree after
every run.
*/
package solsim
