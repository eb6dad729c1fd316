/*
Package ports defines the boundaries between the solsim engine and the
outside world.

# Key Interfaces

  - System, Stepper, ProcessSystem: the contract a simulated system fulfils.
  - Lifecycle: setup, teardown and cleanup of process-backed systems.
  - ResultStore: persistence of finished result tables.
  - Viewer: hand-off of a result table to an interactive explorer.
*/
package ports
