// Package binding resolves named database bindings from the environment and
// manages their connections. A binding is one access path to the benchmark
// data: either a pooled driver connection to Postgres or an upstream REST
// endpoint.
package binding

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Environment variable prefixes understood by FromEnv.
const (
	// DBPrefix declares a direct Postgres binding, e.g.
	// EDGEBENCH_DB_US_EAST=postgres://...
	DBPrefix = "EDGEBENCH_DB_"

	// RESTPrefix declares a REST-proxied binding, e.g.
	// EDGEBENCH_REST_US_EAST=https://data-api.example.com/items
	RESTPrefix = "EDGEBENCH_REST_"

	// RegionPrefix optionally labels a binding's deployment region, e.g.
	// EDGEBENCH_REGION_US_EAST=iad1.
	RegionPrefix = "EDGEBENCH_REGION_"
)

// Binding is one named database access path.
type Binding struct {
	// Name is the binding's identifier, reported in every envelope.
	Name string
	// Region is an optional region label.
	Region string
	// ConnString is the Postgres connection string for direct bindings.
	ConnString string
	// UpstreamURL is the REST endpoint for proxied bindings.
	UpstreamURL string
}

// Proxied reports whether this binding goes through a REST upstream.
func (b Binding) Proxied() bool {
	return b.UpstreamURL != ""
}

// FromEnv extracts all declared bindings from the environment. Binding
// names are the variable suffixes, lowercased with underscores turned into
// hyphens (EDGEBENCH_DB_US_EAST declares the binding "us-east"). A name
// declared both as a DB and a REST binding is an error. The returned slice
// is sorted by name.
func FromEnv() ([]Binding, error) {
	bindings := map[string]*Binding{}
	regions := map[string]string{}

	for _, kv := range os.Environ() {
		key, value, found := strings.Cut(kv, "=")
		if !found || value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(key, DBPrefix):
			name := bindingName(strings.TrimPrefix(key, DBPrefix))
			if b := bindings[name]; b != nil && b.UpstreamURL != "" {
				return nil, fmt.Errorf("binding %q declared as both DB and REST", name)
			}
			bindings[name] = &Binding{Name: name, ConnString: value}
		case strings.HasPrefix(key, RESTPrefix):
			name := bindingName(strings.TrimPrefix(key, RESTPrefix))
			if b := bindings[name]; b != nil && b.ConnString != "" {
				return nil, fmt.Errorf("binding %q declared as both DB and REST", name)
			}
			bindings[name] = &Binding{Name: name, UpstreamURL: value}
		case strings.HasPrefix(key, RegionPrefix):
			regions[bindingName(strings.TrimPrefix(key, RegionPrefix))] = value
		}
	}

	out := make([]Binding, 0, len(bindings))
	for name, b := range bindings {
		b.Region = regions[name]
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func bindingName(suffix string) string {
	return strings.ReplaceAll(strings.ToLower(suffix), "_", "-")
}
