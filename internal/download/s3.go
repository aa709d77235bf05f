package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pxdflow/pxdflow/internal/rawfile"
)

// ObjectStore is the slice of object-store behaviour the secondary backend
// needs. The AWS client satisfies it; tests substitute a fake.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]StoredObject, error)
	Download(ctx context.Context, bucket, key, localPath string) error
}

// StoredObject is one object in the open-data mirror.
type StoredObject struct {
	Key  string
	Size int64
}

// AWSObjectStore implements ObjectStore using the AWS SDK.
type AWSObjectStore struct {
	client *s3.Client
}

// NewAWSObjectStore builds an object store client for the given region using
// anonymous-friendly default credentials resolution.
func NewAWSObjectStore(ctx context.Context, region string) (*AWSObjectStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &AWSObjectStore{client: s3.NewFromConfig(cfg)}, nil
}

// ListObjects lists every object under prefix, following pagination.
func (s *AWSObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]StoredObject, error) {
	var objects []StoredObject
	var continuationToken *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: aws.String(prefix),
		}
		if continuationToken != nil {
			input.ContinuationToken = continuationToken
		}

		result, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s with prefix %s: %w", bucket, prefix, err)
		}

		for _, obj := range result.Contents {
			objects = append(objects, StoredObject{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}

		if !aws.ToBool(result.IsTruncated) || result.NextContinuationToken == nil {
			break
		}
		continuationToken = result.NextContinuationToken
	}

	return objects, nil
}

// Download streams one object to a temporary path and renames it into place.
func (s *AWSObjectStore) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", localPath, err)
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucket, err)
	}
	defer result.Body.Close()

	tempPath := localPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file %s: %w", tempPath, err)
	}

	_, copyErr := io.Copy(file, result.Body)
	closeErr := file.Close()
	if copyErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write data to %s: %w", tempPath, copyErr)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", tempPath, closeErr)
	}

	if err := os.Rename(tempPath, localPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move temporary file to %s: %w", localPath, err)
	}

	return nil
}

// MirrorBackend is the secondary download backend. It lists the open-data
// object-store mirror independently of the REST API, keeps every object that
// matches a known vendor format family plus the companions of two-part
// primaries, and downloads each file individually.
type MirrorBackend struct {
	store  ObjectStore
	bucket string
	prefix string
	cfg    Config
	logger *slog.Logger
}

// NewMirrorBackend constructs the secondary backend.
func NewMirrorBackend(store ObjectStore, bucket, prefix string, cfg Config, logger *slog.Logger) *MirrorBackend {
	return &MirrorBackend{
		store:  store,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		cfg:    cfg,
		logger: logger.With("backend", "secondary"),
	}
}

// Name identifies the backend in download reports.
func (b *MirrorBackend) Name() string { return "secondary" }

// List enumerates the mirror for an accession, computes the wanted set and
// writes the audit file `<accession>.secondary_selected_files.json`.
func (b *MirrorBackend) List(ctx context.Context, accession string) ([]RemoteFile, error) {
	prefix := path.Join(b.prefix, accession) + "/"

	objects, err := b.store.ListObjects(ctx, b.bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("mirror listing failed: %w", err)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w for accession %s", ErrEmptyListing, accession)
	}

	byName := make(map[string]StoredObject, len(objects))
	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		name := path.Base(obj.Key)
		byName[name] = obj
		names = append(names, name)
	}

	wanted := rawfile.WantedSet(names)

	var files []RemoteFile
	for name := range wanted {
		obj := byName[name]
		files = append(files, RemoteFile{
			Name: name,
			Size: obj.Size,
			URL:  obj.Key,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	if err := writeListingAudit(b.cfg.LogDir, accession+".secondary_selected_files.json", files); err != nil {
		return nil, err
	}
	b.logger.Info("Selected mirror files.", "accession", accession, "count", len(files))

	return files, nil
}

// Fetch downloads each selected file individually, skipping files already on
// disk with the advertised size.
func (b *MirrorBackend) Fetch(ctx context.Context, files []RemoteFile, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("could not create download directory %s: %w", destDir, err)
	}

	for i, file := range files {
		localPath := filepath.Join(destDir, file.Name)

		if info, err := os.Stat(localPath); err == nil && info.Size() == file.Size && file.Size > 0 {
			b.logger.Info("Skipping already-downloaded file.", "file", file.Name)
			continue
		}

		b.logger.Info("Downloading file.", "file", file.Name, "index", i+1, "total", len(files))
		fileCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout())
		err := b.store.Download(fileCtx, b.bucket, file.URL, localPath)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", file.Name, err)
		}
	}

	return nil
}
