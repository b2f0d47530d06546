package sqlite

import (
	"strings"
	"testing"
)

func TestDSNFromConfig(t *testing.T) {
	d := NewDialect()
	tests := []struct {
		name   string
		config map[string]interface{}
		want   string
	}{
		{
			name:   "explicit dsn wins",
			config: map[string]interface{}{"dsn": "file:custom.db", "path": "/tmp/x.db"},
			want:   "file:custom.db",
		},
		{
			name:   "path builds file dsn",
			config: map[string]interface{}{"path": "/var/lib/shiprun/shiprun.db"},
			want:   "file:/var/lib/shiprun/shiprun.db?_busy_timeout=5000&_fk=1",
		},
		{
			name:   "empty config falls back to memory",
			config: map[string]interface{}{},
			want:   ":memory:",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.DSNFromConfig(tc.config); got != tc.want {
				t.Fatalf("DSNFromConfig = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestConnectAndEnsure(t *testing.T) {
	d := NewDialect()
	db, err := d.Connect(":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = db.Close() }()

	for _, q := range d.EnsureStatements("pipeline_runs", "stage_results") {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("schema statement failed: %v\n%s", err, q)
		}
	}
	// statements are idempotent
	for _, q := range d.EnsureStatements("pipeline_runs", "stage_results") {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("schema statement not idempotent: %v", err)
		}
	}
}

func TestConfigToMap(t *testing.T) {
	c := &Config{Path: "/data/shiprun.db"}
	m := c.ToMap()
	if m["path"] != "/data/shiprun.db" {
		t.Fatalf("path = %v", m["path"])
	}
	if !strings.Contains(NewDialect().DSNFromConfig(m), "/data/shiprun.db") {
		t.Fatalf("config map does not round-trip into a DSN")
	}
}
