// Package devbackend provides the public API for embedding the console's
// development backend. This is the stable API for external consumers.
package devbackend

import (
	"github.com/sablewing/agent-console/internal/devserver"
)

// Backend is the main entry point for running the development backend.
// See internal/devserver.Backend for full documentation.
type Backend = devserver.Backend

// Option is a functional option for configuring a Backend.
type Option = devserver.Option

// New creates a new Backend with the given options.
// Example:
//
//	b, err := devbackend.New(
//	    devbackend.WithSQLite("./console-dev.db"),
//	    devbackend.WithSeed("agent_demo", 7),
//	)
var New = devserver.NewBackend

// Configuration options
var (
	// Server
	WithAddr   = devserver.WithAddr
	WithAPIKey = devserver.WithAPIKey
	WithLogger = devserver.WithLogger

	// Storage
	WithMemory     = devserver.WithMemory
	WithSQLite     = devserver.WithSQLite
	WithEventStore = devserver.WithEventStore

	// Fixture data
	WithSeed      = devserver.WithSeed
	WithSimulator = devserver.WithSimulator
)
