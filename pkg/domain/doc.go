/*
Package domain contains the core models of the solsim stepping engine.

It is kept free of I/O and process control so that systems, the engine and
the adapters can share one vocabulary.

# Key Entities

  - State: a snapshot of named quantities, derived step by step with Merge.
  - History: the states recorded so far in the current run.
  - Watchlist: the quantities kept in the result table.
  - LifecycleHooks: observability callbacks fired by the engine.
*/
package domain
