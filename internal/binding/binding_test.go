package binding

import (
	"context"
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("EDGEBENCH_DB_US_EAST", "postgres://user:pw@db.example.com/bench")
	t.Setenv("EDGEBENCH_REGION_US_EAST", "iad1")
	t.Setenv("EDGEBENCH_REST_EU_WEST", "https://data-api.example.com/items")

	bindings, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() returned error: %v", err)
	}
	byName := map[string]Binding{}
	for _, b := range bindings {
		byName[b.Name] = b
	}

	us, ok := byName["us-east"]
	if !ok {
		t.Fatalf("binding us-east not found in %v", bindings)
	}
	if us.ConnString != "postgres://user:pw@db.example.com/bench" {
		t.Errorf("us-east ConnString = %q", us.ConnString)
	}
	if us.Region != "iad1" {
		t.Errorf("us-east Region = %q, want iad1", us.Region)
	}
	if us.Proxied() {
		t.Errorf("us-east reported as proxied")
	}

	eu, ok := byName["eu-west"]
	if !ok {
		t.Fatalf("binding eu-west not found in %v", bindings)
	}
	if !eu.Proxied() || eu.UpstreamURL != "https://data-api.example.com/items" {
		t.Errorf("unexpected eu-west binding: %+v", eu)
	}
}

func TestFromEnv_Sorted(t *testing.T) {
	t.Setenv("EDGEBENCH_DB_ZULU", "postgres://z")
	t.Setenv("EDGEBENCH_DB_ALPHA", "postgres://a")

	bindings, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() returned error: %v", err)
	}
	var names []string
	for _, b := range bindings {
		names = append(names, b.Name)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("bindings not sorted by name: %v", names)
		}
	}
}

func TestFromEnv_ConflictingBinding(t *testing.T) {
	t.Setenv("EDGEBENCH_DB_MAIN", "postgres://db")
	t.Setenv("EDGEBENCH_REST_MAIN", "https://rest")

	if _, err := FromEnv(); err == nil {
		t.Errorf("FromEnv() accepted a name declared as both DB and REST")
	}
}

func TestDB_QueryOneInvalidConnString(t *testing.T) {
	d := NewDB(Binding{Name: "broken", ConnString: "not a conn string"})
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.QueryOne(ctx); err == nil {
		t.Errorf("QueryOne() succeeded with an invalid connection string")
	}
	// The init error must be sticky across calls.
	if _, err := d.QueryOne(ctx); err == nil {
		t.Errorf("QueryOne() succeeded on the second call")
	}
}
