// Package router matches inbound request paths against the static
// route table configured at startup.
package router

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okhrimenko/schoolgw/internal/authz"
	"github.com/okhrimenko/schoolgw/internal/config"
	"github.com/okhrimenko/schoolgw/internal/observability"
)

// Rule is a compiled route rule: a path prefix bound to a backend
// target and its authentication requirement. Rules are read-only after
// construction.
type Rule struct {
	// Prefix is the path prefix this rule matches.
	Prefix string

	// Service is the name of the backend service.
	Service string

	// Target is the backend's base URL.
	Target *url.URL

	// Public marks the route as requiring no authentication.
	Public bool

	// MinRole is the minimum role for protected routes.
	MinRole authz.Role

	// Timeout bounds the upstream round trip for this route.
	Timeout time.Duration
}

// Table holds the compiled route rules in registration order.
type Table struct {
	rules  []*Rule
	logger observability.Logger
}

// TableOption is a functional option for the route table.
type TableOption func(*Table)

// WithLogger sets the logger for the table.
func WithLogger(logger observability.Logger) TableOption {
	return func(t *Table) {
		t.logger = logger
	}
}

// NewTable compiles the configured services and routes into a route
// table. Equal-length duplicate prefixes are a configuration mistake:
// the first registered rule wins and a warning is logged at startup.
func NewTable(services []config.Service, routes []config.RouteRule, opts ...TableOption) (*Table, error) {
	t := &Table{
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(t)
	}

	targets := make(map[string]*url.URL, len(services))
	for _, svc := range services {
		target, err := url.Parse(svc.URL)
		if err != nil {
			return nil, fmt.Errorf("service %q has invalid URL %q: %w", svc.Name, svc.URL, err)
		}
		targets[svc.Name] = target
	}

	seen := make(map[string]string, len(routes))
	for _, route := range routes {
		target, ok := targets[route.Service]
		if !ok {
			return nil, fmt.Errorf("route %q references unknown service %q", route.Prefix, route.Service)
		}

		if first, dup := seen[route.Prefix]; dup {
			t.logger.Warn("duplicate route prefix, first registered rule wins",
				observability.String("prefix", route.Prefix),
				observability.String("kept_service", first),
				observability.String("ignored_service", route.Service),
			)
			continue
		}
		seen[route.Prefix] = route.Service

		t.rules = append(t.rules, &Rule{
			Prefix:  route.Prefix,
			Service: route.Service,
			Target:  target,
			Public:  route.Public,
			MinRole: authz.Role(route.MinRole),
			Timeout: route.Timeout.Duration(),
		})
	}

	return t, nil
}

// Match returns the rule whose prefix is the longest match for path.
// Prefixes match only at path boundaries, so /api/v1/users does not
// capture /api/v1/users-export. On equal-length candidates the first
// registered rule wins. The second return value is false when no rule
// matches.
func (t *Table) Match(path string) (*Rule, bool) {
	var best *Rule
	for _, rule := range t.rules {
		if !matchesPrefix(path, rule.Prefix) {
			continue
		}
		if best == nil || len(rule.Prefix) > len(best.Prefix) {
			best = rule
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// matchesPrefix reports whether path falls under prefix at a path
// boundary: an exact match, a prefix ending in a slash, or a slash
// immediately after the prefix.
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	if strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}

// Rules returns the compiled rules in registration order.
func (t *Table) Rules() []*Rule {
	return t.rules
}
