package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// protocolLocations maps a transfer protocol to the location label used by
// the archive's file listing API.
var protocolLocations = map[string]string{
	"ftp":    "FTP Protocol",
	"aspera": "Aspera Protocol",
	"globus": "Globus Protocol",
	"s3":     "S3 Protocol",
}

// projectFile mirrors one entry of the archive files API response.
type projectFile struct {
	FileName            string `json:"fileName"`
	FileSizeBytes       int64  `json:"fileSizeBytes"`
	Checksum            string `json:"checksum"`
	PublicFileLocations []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"publicFileLocations"`
}

// PrideBackend is the primary download backend. It lists a project's files
// through the archive REST API, persists the listing for audit, and performs
// a resumable batch transfer over HTTPS.
type PrideBackend struct {
	apiBase string
	cfg     Config
	client  *http.Client
	logger  *slog.Logger
}

// NewPrideBackend constructs the primary backend.
func NewPrideBackend(apiBase string, cfg Config, logger *slog.Logger) (*PrideBackend, error) {
	client, err := newHTTPClient(cfg.ProxyURL, cfg.Timeout())
	if err != nil {
		return nil, err
	}
	return &PrideBackend{
		apiBase: strings.TrimRight(apiBase, "/"),
		cfg:     cfg,
		client:  client,
		logger:  logger.With("backend", "primary"),
	}, nil
}

// Name identifies the backend in download reports.
func (b *PrideBackend) Name() string { return "primary" }

// List fetches the raw-file listing for an accession and writes the audit
// file `<accession>.primary_file_list.json` with names and sizes.
func (b *PrideBackend) List(ctx context.Context, accession string) ([]RemoteFile, error) {
	location, ok := protocolLocations[b.cfg.Protocol]
	if !ok {
		return nil, fmt.Errorf("invalid protocol %q", b.cfg.Protocol)
	}

	listURL := fmt.Sprintf("%s/files/byProject?accession=%s", b.apiBase, url.QueryEscape(accession))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing request for %s returned status %d", accession, resp.StatusCode)
	}

	var entries []projectFile
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("could not decode listing response: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w for accession %s", ErrEmptyListing, accession)
	}

	var files []RemoteFile
	var totalBytes int64
	for _, entry := range entries {
		file := RemoteFile{
			Name:     entry.FileName,
			Size:     entry.FileSizeBytes,
			Checksum: entry.Checksum,
		}
		for _, loc := range entry.PublicFileLocations {
			if loc.Name == location {
				file.URL = loc.Value
				break
			}
		}
		totalBytes += file.Size
		files = append(files, file)
	}

	if err := writeListingAudit(b.cfg.LogDir, accession+".primary_file_list.json", files); err != nil {
		return nil, err
	}
	b.logger.Info("Listed project files.", "accession", accession, "count", len(files), "total_bytes", totalBytes)

	return files, nil
}

// Fetch performs the batch transfer. Files already present on disk with the
// advertised size are skipped, which makes an interrupted batch resumable.
func (b *PrideBackend) Fetch(ctx context.Context, files []RemoteFile, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("could not create download directory %s: %w", destDir, err)
	}

	for i, file := range files {
		localPath := filepath.Join(destDir, file.Name)

		if info, err := os.Stat(localPath); err == nil && info.Size() == file.Size && file.Size > 0 {
			b.logger.Info("Skipping already-downloaded file.", "file", file.Name, "size", file.Size)
			continue
		}

		b.logger.Info("Downloading file.", "file", file.Name, "index", i+1, "total", len(files))
		if err := b.fetchWithRetry(ctx, file, localPath); err != nil {
			return fmt.Errorf("failed to download %s: %w", file.Name, err)
		}
	}

	return nil
}

// fetchWithRetry downloads one file with exponential backoff and jitter.
func (b *PrideBackend) fetchWithRetry(ctx context.Context, file RemoteFile, localPath string) error {
	var lastErr error
	for attempt := 0; attempt <= b.cfg.RetryLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDuration(attempt)):
			}
			b.logger.Warn("Retrying download.", "file", file.Name, "attempt", attempt+1)
		}

		if err := b.fetchOnce(ctx, file, localPath); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("download failed after %d attempts: %w", b.cfg.RetryLimit+1, lastErr)
}

// fetchOnce streams one file to a temporary path and renames it into place.
func (b *PrideBackend) fetchOnce(ctx context.Context, file RemoteFile, localPath string) error {
	fetchURL, err := transferURL(file.URL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build transfer request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("transfer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transfer of %s returned status %d", file.Name, resp.StatusCode)
	}

	tempPath := localPath + ".tmp"
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, copyErr := io.Copy(tempFile, resp.Body)
	closeErr := tempFile.Close()
	if copyErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", tempPath, copyErr)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", tempPath, closeErr)
	}

	if b.cfg.VerifyChecksum && file.Checksum != "" {
		actual, err := sha1File(tempPath)
		if err != nil {
			os.Remove(tempPath)
			return fmt.Errorf("failed to checksum %s: %w", tempPath, err)
		}
		if !strings.EqualFold(actual, file.Checksum) {
			os.Remove(tempPath)
			return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", file.Name, file.Checksum, actual)
		}
	}

	if err := os.Rename(tempPath, localPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move temp file into place: %w", err)
	}

	return nil
}

// transferURL rewrites a listing URL to one fetchable over HTTPS. The archive
// exposes its FTP tree through the same host over HTTPS.
func transferURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("listing entry carries no download location")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("could not parse download location %q: %w", raw, err)
	}
	if parsed.Scheme == "ftp" {
		parsed.Scheme = "https"
	}
	return parsed.String(), nil
}

// backoffDuration computes exponential backoff with jitter, capped at 60s.
func backoffDuration(attempt int) time.Duration {
	backoffSeconds := math.Min(math.Pow(2, float64(attempt)), 60)
	base := time.Duration(backoffSeconds) * time.Second
	jitter := time.Duration(rand.Float64() * 0.5 * float64(base))
	if rand.Float64() < 0.5 {
		jitter = -jitter
	}
	return base + jitter
}

// sha1File computes the hex SHA-1 digest of a file, the checksum algorithm
// used by the archive listing.
func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeListingAudit persists a listing snapshot for provenance.
func writeListingAudit(logDir, name string, files []RemoteFile) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("could not create log directory %s: %w", logDir, err)
	}

	data, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal listing audit: %w", err)
	}

	path := filepath.Join(logDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write listing audit %s: %w", path, err)
	}
	return nil
}
