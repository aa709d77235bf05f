package download

import (
	"context"
	"log/slog"
)

// Backend lists remote files for an accession and transfers them to a local
// directory. Backends return errors; they never abort the process.
type Backend interface {
	Name() string
	List(ctx context.Context, accession string) ([]RemoteFile, error)
	Fetch(ctx context.Context, files []RemoteFile, destDir string) error
}

// Orchestrator populates a local directory from a remote repository, trying
// the primary backend first and falling back to the secondary on any error.
type Orchestrator struct {
	primary   Backend
	secondary Backend
	logger    *slog.Logger
}

// NewOrchestrator constructs an orchestrator over the two backends.
func NewOrchestrator(primary, secondary Backend, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Run lists and fetches the accession's files into destDir. It returns the
// name of the backend that succeeded. When both backends fail the returned
// error carries both causes; the caller is never left with a silent partial
// state.
func (o *Orchestrator) Run(ctx context.Context, accession, destDir string) (string, error) {
	primaryErr := o.runBackend(ctx, o.primary, accession, destDir)
	if primaryErr == nil {
		return o.primary.Name(), nil
	}

	o.logger.Warn("Primary download backend failed, falling back.",
		"accession", accession, "error", primaryErr)

	secondaryErr := o.runBackend(ctx, o.secondary, accession, destDir)
	if secondaryErr == nil {
		return o.secondary.Name(), nil
	}

	return "", &FallbackError{PrimaryErr: primaryErr, SecondaryErr: secondaryErr}
}

// runBackend performs one backend's list-then-fetch sequence. The listing
// audit file is written by List, so provenance survives even when the
// subsequent transfer fails.
func (o *Orchestrator) runBackend(ctx context.Context, backend Backend, accession, destDir string) error {
	files, err := backend.List(ctx, accession)
	if err != nil {
		return err
	}
	return backend.Fetch(ctx, files, destDir)
}
