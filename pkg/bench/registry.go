package bench

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edgebench/edgebench/pkg/spec"
)

// Region labels the deployment region of a benchmark target.
type Region string

// Known deployment regions.
const (
	RegionUSEast Region = "us-east"
	RegionEUWest Region = "eu-west"
	RegionAPSE   Region = "ap-southeast"
)

// AccessType is the database access path exercised by an endpoint.
type AccessType string

const (
	// AccessDirectPooled reaches the database over a pooled driver
	// connection.
	AccessDirectPooled AccessType = "direct-pooled"

	// AccessRESTProxied reaches the database through a REST proxy.
	AccessRESTProxied AccessType = "rest-proxied"
)

// EndpointDescriptor describes one benchmark target. Descriptors are
// immutable after the registry is built. Any cache-TTL hint is baked into
// the URL; the measurement layer requests it as-is.
type EndpointDescriptor struct {
	// ID is the unique key for this endpoint.
	ID string `yaml:"id"`
	// URL is the full request target.
	URL string `yaml:"url"`
	// Label is a short display name.
	Label string `yaml:"label"`
	// Description explains what access path this endpoint exercises.
	Description string `yaml:"description"`
	// Region is the deployment region of the target.
	Region Region `yaml:"region"`
	// AccessType is the database access path of the target.
	AccessType AccessType `yaml:"accessType"`
	// Cached is true if the target's responses are CDN-cacheable.
	Cached bool `yaml:"cached"`
}

// Registry is the static ordered list of benchmark targets. Its order is
// irrelevant: every round measures a fresh random permutation.
type Registry struct {
	endpoints []EndpointDescriptor
}

// NewRegistry validates the given descriptors and returns a Registry.
// Endpoint IDs must be unique and non-empty and every URL must parse.
func NewRegistry(endpoints ...EndpointDescriptor) (*Registry, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("registry must contain at least one endpoint")
	}
	seen := make(map[string]struct{}, len(endpoints))
	for _, ep := range endpoints {
		if ep.ID == "" {
			return nil, fmt.Errorf("endpoint with URL %q has an empty id", ep.URL)
		}
		if _, ok := seen[ep.ID]; ok {
			return nil, fmt.Errorf("duplicate endpoint id %q", ep.ID)
		}
		seen[ep.ID] = struct{}{}
		if _, err := url.ParseRequestURI(ep.URL); err != nil {
			return nil, fmt.Errorf("endpoint %q has an invalid URL: %w", ep.ID, err)
		}
	}
	r := &Registry{
		endpoints: make([]EndpointDescriptor, len(endpoints)),
	}
	copy(r.endpoints, endpoints)
	return r, nil
}

// LoadRegistry reads a YAML endpoint list from path and returns a validated
// Registry.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read registry file: %w", err)
	}
	var file struct {
		Endpoints []EndpointDescriptor `yaml:"endpoints"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cannot parse registry file: %w", err)
	}
	return NewRegistry(file.Endpoints...)
}

// DefaultRegistry returns the built-in registry for a single edgebench
// server deployment: every access path with and without CDN caching.
func DefaultRegistry(baseURL string) (*Registry, error) {
	query := func(params string) string {
		return baseURL + spec.QueryPath + "?" + params
	}
	return NewRegistry(
		EndpointDescriptor{
			ID:          "direct",
			URL:         query("binding=primary"),
			Label:       "Direct",
			Description: "pooled driver connection, cache-busted",
			AccessType:  AccessDirectPooled,
		},
		EndpointDescriptor{
			ID:          "direct-cdn",
			URL:         query("binding=primary&cache=60"),
			Label:       "Direct + CDN",
			Description: "pooled driver connection, CDN-cacheable for 60s",
			AccessType:  AccessDirectPooled,
			Cached:      true,
		},
		EndpointDescriptor{
			ID:          "rest",
			URL:         query("binding=rest"),
			Label:       "REST",
			Description: "proxied REST call, cache-busted",
			AccessType:  AccessRESTProxied,
		},
		EndpointDescriptor{
			ID:          "rest-cdn",
			URL:         query("binding=rest&cache=60"),
			Label:       "REST + CDN",
			Description: "proxied REST call, CDN-cacheable for 60s",
			AccessType:  AccessRESTProxied,
			Cached:      true,
		},
	)
}

// Endpoints returns a copy of the registered endpoints.
func (r *Registry) Endpoints() []EndpointDescriptor {
	endpoints := make([]EndpointDescriptor, len(r.endpoints))
	copy(endpoints, r.endpoints)
	return endpoints
}

// IDs returns the registered endpoint IDs in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		ids = append(ids, ep.ID)
	}
	return ids
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	return len(r.endpoints)
}
