package main

import (
	"log/slog"

	"platter/internal/config"
	"platter/internal/encoding"
	"platter/internal/identification"
	"platter/internal/organizer"
	"platter/internal/queue"
	"platter/internal/ripping"
	"platter/internal/workflow"
)

// buildSupervisor wires the four stage handlers into a workflow supervisor.
// Handlers degrade individually (a missing binary surfaces through health
// checks and stage failures), so construction never errors.
func buildSupervisor(cfg *config.Config, store *queue.Store, logger *slog.Logger) *workflow.Supervisor {
	handlers := workflow.Handlers{
		Ripper:     ripping.NewRipper(cfg, store, logger),
		Encoder:    encoding.NewEncoder(cfg, store, logger),
		Identifier: identification.NewIdentifier(cfg, store, logger),
		Mover:      organizer.NewMover(cfg, store, logger),
	}
	return workflow.NewSupervisor(cfg, store, logger, handlers)
}
