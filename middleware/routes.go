package middleware

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RouteClass is the access category of a path.
type RouteClass string

const (
	ClassPublic    RouteClass = "public"
	ClassAuthOnly  RouteClass = "auth-only"
	ClassProtected RouteClass = "protected"
	ClassAdminOnly RouteClass = "admin-only"
)

func (c RouteClass) valid() bool {
	switch c {
	case ClassPublic, ClassAuthOnly, ClassProtected, ClassAdminOnly:
		return true
	default:
		return false
	}
}

// RouteRule maps a path to a class. Without Exact, Pattern matches as a plain
// string prefix, so "/farms" also covers "/farms/12" and "/farmsx".
type RouteRule struct {
	Pattern string     `yaml:"pattern"`
	Class   RouteClass `yaml:"class"`
	Exact   bool       `yaml:"exact"`
}

func (r RouteRule) matches(path string) bool {
	if r.Exact {
		return path == r.Pattern
	}
	return strings.HasPrefix(path, r.Pattern)
}

// RouteTable is an ordered rule list; the first matching rule wins and
// unmatched paths are public. It is read-only after construction.
type RouteTable struct {
	rules []RouteRule
}

// NewRouteTable validates and copies rules.
func NewRouteTable(rules []RouteRule) (*RouteTable, error) {
	if len(rules) == 0 {
		return nil, errors.New("route table is empty")
	}
	out := make([]RouteRule, len(rules))
	for i, r := range rules {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route %d: pattern %q must start with '/'", i, r.Pattern)
		}
		if !r.Class.valid() {
			return nil, fmt.Errorf("route %d: unknown class %q", i, r.Class)
		}
		out[i] = r
	}
	return &RouteTable{rules: out}, nil
}

// DefaultRoutes returns the application's built-in table. Unlike a plain
// table, it closes every /api/ path not listed above it: only /api/health and
// /api/auth/ are public. A route file that wants open API paths lists them
// itself, since a file replaces this table and its unmatched paths are public.
func DefaultRoutes() *RouteTable {
	t, err := NewRouteTable(defaultRules)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultRules = []RouteRule{
	{Pattern: "/auth/login", Class: ClassAuthOnly, Exact: true},
	{Pattern: "/auth/register", Class: ClassAuthOnly, Exact: true},
	{Pattern: "/", Class: ClassPublic, Exact: true},
	{Pattern: "/about", Class: ClassPublic, Exact: true},
	{Pattern: "/features", Class: ClassPublic, Exact: true},
	{Pattern: "/contact", Class: ClassPublic, Exact: true},
	{Pattern: "/api/health", Class: ClassPublic, Exact: true},
	{Pattern: "/api/auth/", Class: ClassPublic},
	{Pattern: "/admin", Class: ClassAdminOnly},
	{Pattern: "/api/admin/", Class: ClassAdminOnly},
	{Pattern: "/dashboard", Class: ClassProtected},
	{Pattern: "/chat", Class: ClassProtected},
	{Pattern: "/sensors", Class: ClassProtected},
	{Pattern: "/analytics", Class: ClassProtected},
	{Pattern: "/profile", Class: ClassProtected},
	{Pattern: "/farms", Class: ClassProtected},
	// Everything else under /api/ needs a session.
	{Pattern: "/api/", Class: ClassProtected},
}

// Classify returns the class of the first rule matching path.
func (t *RouteTable) Classify(path string) RouteClass {
	for _, r := range t.rules {
		if r.matches(path) {
			return r.Class
		}
	}
	return ClassPublic
}

// Rules returns a copy of the rules in match order.
func (t *RouteTable) Rules() []RouteRule {
	return append([]RouteRule(nil), t.rules...)
}

type routeFile struct {
	Routes []RouteRule `yaml:"routes"`
}

// ParseRouteTable decodes a YAML document of the form
//
//	routes:
//	  - pattern: /dashboard
//	    class: protected
//	  - pattern: /auth/login
//	    class: auth-only
//	    exact: true
func ParseRouteTable(data []byte) (*RouteTable, error) {
	var f routeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}
	return NewRouteTable(f.Routes)
}

// LoadRouteTable reads and parses the YAML route table at path.
func LoadRouteTable(path string) (*RouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}
	return ParseRouteTable(data)
}
