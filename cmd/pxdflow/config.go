package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CLIConfig represents the CLI configuration.
type CLIConfig struct {
	Out             string `json:"out"`
	Endpoint        string `json:"endpoint"`
	EndpointsFile   string `json:"endpoints_file,omitempty"`
	Protocol        string `json:"protocol"`
	NoChecksum      bool   `json:"no_checksum"`
	RetryLimit      int    `json:"retry_limit"`
	DownloadTimeout int    `json:"download_timeout"`
	ProxyURL        string `json:"proxy_url,omitempty"`
	Msconvert       string `json:"msconvert"`
	Centroid        string `json:"centroid"`
	Gzip            bool   `json:"gzip"`
	BitDepth        int    `json:"bit_depth"`
	ConvertTimeout  int    `json:"convert_timeout"`
	DownloadOnly    bool   `json:"download_only"`
	ConvertOnly     bool   `json:"convert_only"`
	LogLevel        string `json:"log_level"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configFile string) (*CLIConfig, error) {
	config := &CLIConfig{
		Endpoint:        "pride",
		Protocol:        "ftp",
		RetryLimit:      3,
		DownloadTimeout: 1800,
		Msconvert:       "msconvert",
		Centroid:        "none",
		BitDepth:        64,
		ConvertTimeout:  600,
		LogLevel:        "info",
	}

	if configFile != "" {
		if err := loadConfigFile(config, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %v", err)
		}
	}

	loadConfigFromEnv(config)

	return config, nil
}

// loadConfigFile loads configuration from a JSON file.
func loadConfigFile(config *CLIConfig, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, config)
}

// loadConfigFromEnv loads configuration from environment variables.
func loadConfigFromEnv(config *CLIConfig) {
	if val := os.Getenv("PXDFLOW_OUT"); val != "" {
		config.Out = val
	}

	if val := os.Getenv("PXDFLOW_ENDPOINT"); val != "" {
		config.Endpoint = val
	}

	if val := os.Getenv("PXDFLOW_ENDPOINTS_FILE"); val != "" {
		config.EndpointsFile = val
	}

	if val := os.Getenv("PXDFLOW_PROTOCOL"); val != "" {
		config.Protocol = val
	}

	if val := os.Getenv("PXDFLOW_NO_CHECKSUM"); val != "" {
		config.NoChecksum = strings.ToLower(val) == "true"
	}

	if val := os.Getenv("PXDFLOW_RETRY_LIMIT"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.RetryLimit = limit
		}
	}

	if val := os.Getenv("PXDFLOW_DOWNLOAD_TIMEOUT"); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil {
			config.DownloadTimeout = timeout
		}
	}

	if val := os.Getenv("PXDFLOW_PROXY_URL"); val != "" {
		config.ProxyURL = val
	}

	if val := os.Getenv("PXDFLOW_MSCONVERT"); val != "" {
		config.Msconvert = val
	}

	if val := os.Getenv("PXDFLOW_CENTROID"); val != "" {
		config.Centroid = val
	}

	if val := os.Getenv("PXDFLOW_GZIP"); val != "" {
		config.Gzip = strings.ToLower(val) == "true"
	}

	if val := os.Getenv("PXDFLOW_BIT_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.BitDepth = depth
		}
	}

	if val := os.Getenv("PXDFLOW_CONVERT_TIMEOUT"); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil {
			config.ConvertTimeout = timeout
		}
	}

	if val := os.Getenv("PXDFLOW_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}
}

// SaveConfig saves the current configuration to a file.
func (c *CLIConfig) SaveConfig(filePath string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0644)
}

// Validate validates the CLI configuration.
func (c *CLIConfig) Validate() error {
	if c.Out == "" {
		return fmt.Errorf("output root is required")
	}

	switch c.Protocol {
	case "ftp", "aspera", "globus", "s3":
	default:
		return fmt.Errorf("protocol must be one of: ftp, aspera, globus, s3")
	}

	switch c.Centroid {
	case "none", "vendor", "cwt":
	default:
		return fmt.Errorf("centroid must be one of: none, vendor, cwt")
	}

	if c.BitDepth != 32 && c.BitDepth != 64 {
		return fmt.Errorf("bit_depth must be 32 or 64")
	}

	if c.RetryLimit < 0 {
		return fmt.Errorf("retry_limit must not be negative")
	}

	if c.DownloadTimeout <= 0 || c.ConvertTimeout <= 0 {
		return fmt.Errorf("timeouts must be greater than 0")
	}

	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warn" && c.LogLevel != "error" {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	if c.DownloadOnly && c.ConvertOnly {
		return fmt.Errorf("download_only and convert_only are mutually exclusive")
	}

	return nil
}
