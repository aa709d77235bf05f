package download

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidProtocols are the transfer protocols the primary backend understands.
var ValidProtocols = []string{"ftp", "aspera", "globus", "s3"}

// RemoteFile is one file advertised by a repository listing.
type RemoteFile struct {
	Name     string `json:"fileName"`
	Size     int64  `json:"fileSizeBytes"`
	Checksum string `json:"checksum,omitempty"`
	URL      string `json:"-"`
}

// Config holds the download behaviour shared by both backends.
type Config struct {
	Protocol       string `json:"protocol"`
	VerifyChecksum bool   `json:"verify_checksum"`
	RetryLimit     int    `json:"retry_limit"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	ProxyURL       string `json:"proxy_url,omitempty"`
	LogDir         string `json:"log_dir"`
}

// Validate validates the download configuration.
func (c *Config) Validate() error {
	valid := false
	for _, p := range ValidProtocols {
		if c.Protocol == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid protocol %q, choose one of: %s", c.Protocol, strings.Join(ValidProtocols, ", "))
	}

	if c.RetryLimit < 0 {
		return fmt.Errorf("retry limit must be non-negative")
	}

	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout seconds must be greater than 0")
	}

	if strings.TrimSpace(c.LogDir) == "" {
		return fmt.Errorf("log directory is required")
	}

	return nil
}

// SetDefaults sets default values for download configuration parameters.
func (c *Config) SetDefaults() {
	if c.Protocol == "" {
		c.Protocol = "ftp"
	}

	if c.RetryLimit == 0 {
		c.RetryLimit = 3
	}

	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 1800 // 30 minutes per file; raw runs are multi-gigabyte
	}
}

// Timeout returns the per-file transfer timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FallbackError aggregates the causes of both backends failing. The caller
// must never be left with a silent partial state, so both errors travel up.
type FallbackError struct {
	PrimaryErr   error
	SecondaryErr error
}

// Error implements the error interface.
func (e *FallbackError) Error() string {
	return fmt.Sprintf("download failed with both backends: primary: %v; secondary: %v", e.PrimaryErr, e.SecondaryErr)
}

// Unwrap exposes both causes to errors.Is / errors.As.
func (e *FallbackError) Unwrap() []error {
	return []error{e.PrimaryErr, e.SecondaryErr}
}

// ErrEmptyListing is returned when a backend's listing contains no files for
// the accession.
var ErrEmptyListing = errors.New("remote listing contained no files")
