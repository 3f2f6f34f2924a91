package middleware

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRoutesClassify(t *testing.T) {
	routes := DefaultRoutes()
	tests := []struct {
		path string
		want RouteClass
	}{
		{"/", ClassPublic},
		{"/about", ClassPublic},
		{"/aboutus", ClassPublic},
		{"/auth/login", ClassAuthOnly},
		{"/auth/register", ClassAuthOnly},
		{"/auth/login/extra", ClassPublic},
		{"/dashboard", ClassProtected},
		{"/dashboard/crops", ClassProtected},
		{"/farms/12", ClassProtected},
		{"/admin", ClassAdminOnly},
		{"/admin/users", ClassAdminOnly},
		{"/api/health", ClassPublic},
		{"/api/auth/login", ClassPublic},
		{"/api/admin/stats", ClassAdminOnly},
		{"/api/farms", ClassProtected},
		{"/static/logo.png", ClassPublic},
	}
	for _, tt := range tests {
		if got := routes.Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestRouteTableFirstMatchWins(t *testing.T) {
	routes, err := NewRouteTable([]RouteRule{
		{Pattern: "/reports/public", Class: ClassPublic},
		{Pattern: "/reports", Class: ClassProtected},
	})
	if err != nil {
		t.Fatalf("NewRouteTable: %v", err)
	}
	if got := routes.Classify("/reports/public/summary"); got != ClassPublic {
		t.Fatalf("expected public, got %s", got)
	}
	if got := routes.Classify("/reports/2024"); got != ClassProtected {
		t.Fatalf("expected protected, got %s", got)
	}
}

func TestNewRouteTableValidation(t *testing.T) {
	if _, err := NewRouteTable(nil); err == nil {
		t.Fatal("expected error for empty table")
	}
	if _, err := NewRouteTable([]RouteRule{{Pattern: "dashboard", Class: ClassProtected}}); err == nil {
		t.Fatal("expected error for relative pattern")
	}
	if _, err := NewRouteTable([]RouteRule{{Pattern: "/x", Class: "secret"}}); err == nil {
		t.Fatal("expected error for unknown class")
	}
}

func TestRouteTableRulesIsCopy(t *testing.T) {
	routes := DefaultRoutes()
	rules := routes.Rules()
	rules[0].Class = ClassPublic
	if routes.Classify("/auth/login") != ClassAuthOnly {
		t.Fatal("mutating Rules() changed the table")
	}
}

func TestParseRouteTableYAML(t *testing.T) {
	doc := []byte(`
routes:
  - pattern: /login
    class: auth-only
    exact: true
  - pattern: /console
    class: admin-only
  - pattern: /app
    class: protected
`)
	routes, err := ParseRouteTable(doc)
	if err != nil {
		t.Fatalf("ParseRouteTable: %v", err)
	}
	if routes.Classify("/login") != ClassAuthOnly || routes.Classify("/console/x") != ClassAdminOnly || routes.Classify("/app") != ClassProtected {
		t.Fatalf("unexpected classification from %+v", routes.Rules())
	}
	// A route file replaces the built-in table, so API paths it does not list
	// are public.
	if got := routes.Classify("/api/farms"); got != ClassPublic {
		t.Fatalf("unlisted /api/farms = %q, want public", got)
	}

	if _, err := ParseRouteTable([]byte("routes: [")); err == nil {
		t.Fatal("expected YAML syntax error")
	}
	if _, err := ParseRouteTable([]byte("routes:\n  - pattern: /x\n    class: nope\n")); err == nil {
		t.Fatal("expected invalid class error")
	}
}

func TestLoadRouteTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte("routes:\n  - pattern: /private\n    class: protected\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	routes, err := LoadRouteTable(path)
	if err != nil {
		t.Fatalf("LoadRouteTable: %v", err)
	}
	if routes.Classify("/private/area") != ClassProtected {
		t.Fatal("expected protected")
	}
	if _, err := LoadRouteTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
