/*
Package types provides the core interfaces and data structures shared across
PersistFS components.

# Architecture Overview

PersistFS turns an unreliable, multi-step "attach remote storage" operation
into an idempotent, concurrency-safe boolean result, with a reconciliation
fallback that ships data to the bucket through the storage API when a
filesystem attach is not possible:

	┌─────────────────────────────────────────────┐
	│           Startup Orchestrator              │
	│          (internal/startup)                 │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│          SingleFlight Guard                 │
	│           (internal/flight)                 │
	└─────────────────────────────────────────────┘
	          │                       │
	┌─────────┴──────────┐  ┌─────────┴──────────┐
	│  Strategy Chain    │  │    Reconciler      │
	│ (internal/mount)   │  │(internal/reconcile)│
	└────────────────────┘  └────────────────────┘
	          │                       │
	┌─────────┴──────────┐  ┌─────────┴──────────┐
	│   Process Probe    │  │   Object Client    │
	│ (internal/probe)   │  │(internal/storage)  │
	└────────────────────┘  └────────────────────┘

# Core Interfaces

Attacher wraps the managed mount call whose success/failure reports are
advisory only. MountVerifier is the singular ground truth for attachment
state. ObjectPutter is the mount-free upload capability used by the fallback
reconciliation path.

All value types in this package are attempt-scoped: constructed fresh per
attempt, never shared, never mutated after return.
*/
package types
