package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Endpoint describes one remote proteomics repository: the REST API used by
// the primary download backend and the open-data object store mirror used by
// the secondary backend.
type Endpoint struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	APIBase     string `json:"api_base"`
	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3Prefix    string `json:"s3_prefix"`
}

// EndpointList is the root structure of an endpoint registry JSON file.
type EndpointList struct {
	Endpoints []Endpoint `json:"endpoints"`
}

// defaultEndpoints is the built-in registry. PRIDE is the reference
// repository for ProteomeXchange accessions; its archive is mirrored to the
// EBI open-data object store.
var defaultEndpoints = []Endpoint{
	{
		Name:        "pride",
		Description: "PRIDE Archive (EMBL-EBI)",
		APIBase:     "https://www.ebi.ac.uk/pride/ws/archive/v2",
		S3Bucket:    "pride-public",
		S3Region:    "eu-west-2",
		S3Prefix:    "data/archive",
	},
}

// LookupEndpoint returns the named endpoint from the built-in registry.
func LookupEndpoint(name string) (*Endpoint, error) {
	for i := range defaultEndpoints {
		if defaultEndpoints[i].Name == name {
			endpoint := defaultEndpoints[i]
			return &endpoint, nil
		}
	}
	return nil, fmt.Errorf("unknown repository endpoint %q", name)
}

// LoadEndpointsFromFile parses a registry override file. The first endpoint
// whose name matches is preferred over the built-in entry of the same name.
func LoadEndpointsFromFile(path string) (*EndpointList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list EndpointList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	if len(list.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints found in %s", path)
	}

	return &list, nil
}

// Select resolves an endpoint by name, consulting the optional override file
// before the built-in registry.
func Select(name, overridePath string) (*Endpoint, error) {
	if overridePath != "" {
		list, err := LoadEndpointsFromFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load endpoint registry from %s: %w", overridePath, err)
		}
		for i := range list.Endpoints {
			if list.Endpoints[i].Name == name {
				endpoint := list.Endpoints[i]
				return &endpoint, nil
			}
		}
	}
	return LookupEndpoint(name)
}

// Validate checks that an endpoint carries enough to drive both backends.
func (e *Endpoint) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("endpoint name is required")
	}
	if e.APIBase == "" {
		return fmt.Errorf("endpoint %s: api_base is required", e.Name)
	}
	if e.S3Bucket == "" {
		return fmt.Errorf("endpoint %s: s3_bucket is required", e.Name)
	}
	if e.S3Region == "" {
		return fmt.Errorf("endpoint %s: s3_region is required", e.Name)
	}
	return nil
}
