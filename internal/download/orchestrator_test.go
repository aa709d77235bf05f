package download

import (
	"context"
	"errors"
	"testing"
)

// stubBackend is a canned Backend implementation.
type stubBackend struct {
	name     string
	files    []RemoteFile
	listErr  error
	fetchErr error
	listed   int
	fetched  int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) List(ctx context.Context, accession string) ([]RemoteFile, error) {
	s.listed++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.files, nil
}

func (s *stubBackend) Fetch(ctx context.Context, files []RemoteFile, destDir string) error {
	s.fetched++
	return s.fetchErr
}

func TestOrchestratorUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &stubBackend{name: "primary", files: []RemoteFile{{Name: "a.raw"}}}
	secondary := &stubBackend{name: "secondary"}

	orch := NewOrchestrator(primary, secondary, discardLogger())
	downloader, err := orch.Run(context.Background(), "PXD000020", t.TempDir())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if downloader != "primary" {
		t.Errorf("expected primary downloader, got %s", downloader)
	}
	if secondary.listed != 0 || secondary.fetched != 0 {
		t.Error("secondary must not run when the primary succeeds")
	}
}

func TestOrchestratorFallsBackOnListError(t *testing.T) {
	primary := &stubBackend{name: "primary", listErr: errors.New("api down")}
	secondary := &stubBackend{name: "secondary", files: []RemoteFile{{Name: "a.raw"}}}

	orch := NewOrchestrator(primary, secondary, discardLogger())
	downloader, err := orch.Run(context.Background(), "PXD000021", t.TempDir())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if downloader != "secondary" {
		t.Errorf("expected secondary downloader, got %s", downloader)
	}
}

func TestOrchestratorFallsBackOnFetchError(t *testing.T) {
	primary := &stubBackend{name: "primary", files: []RemoteFile{{Name: "a.raw"}}, fetchErr: errors.New("transfer reset")}
	secondary := &stubBackend{name: "secondary", files: []RemoteFile{{Name: "a.raw"}}}

	orch := NewOrchestrator(primary, secondary, discardLogger())
	downloader, err := orch.Run(context.Background(), "PXD000022", t.TempDir())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if downloader != "secondary" {
		t.Errorf("expected secondary downloader, got %s", downloader)
	}
}

func TestOrchestratorAggregatesBothFailures(t *testing.T) {
	primaryErr := errors.New("api down")
	secondaryErr := errors.New("mirror empty")
	primary := &stubBackend{name: "primary", listErr: primaryErr}
	secondary := &stubBackend{name: "secondary", listErr: secondaryErr}

	orch := NewOrchestrator(primary, secondary, discardLogger())
	_, err := orch.Run(context.Background(), "PXD000023", t.TempDir())
	if err == nil {
		t.Fatal("expected error when both backends fail")
	}

	var fallbackErr *FallbackError
	if !errors.As(err, &fallbackErr) {
		t.Fatalf("expected *FallbackError, got %T", err)
	}
	if !errors.Is(err, primaryErr) || !errors.Is(err, secondaryErr) {
		t.Error("expected aggregated error to carry both causes")
	}
}
