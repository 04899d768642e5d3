package sec

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Access is the kind of requirement an access [Rule] places on a request.
type Access string

// Access kinds.
const (
	// AccessRole requires a principal holding the rule's role.
	AccessRole Access = "role"
	// AccessAuthenticated requires any principal.
	AccessAuthenticated Access = "authenticated"
	// AccessPublic requires nothing.
	AccessPublic Access = "public"
)

// Rule maps a path pattern to an access requirement.
//
// Patterns are matched with [doublestar.Match]: "**" matches zero or more
// segments and "*" matches within exactly one.
type Rule struct {
	Pattern string   `yaml:"pattern"`
	Methods []string `yaml:"methods,omitempty"`
	Access  Access   `yaml:"access"`
	Role    Role     `yaml:"role,omitempty"`
}

// Validate reports whether the rule is well-formed.
func (r Rule) Validate() error {
	if !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("pattern %q must start with /", r.Pattern)
	}
	if !doublestar.ValidatePattern(r.Pattern) {
		return fmt.Errorf("pattern %q: %w", r.Pattern, doublestar.ErrBadPattern)
	}
	switch r.Access {
	case AccessRole:
		if r.Role == "" {
			return fmt.Errorf("pattern %q: role access requires a role", r.Pattern)
		}
	case AccessAuthenticated, AccessPublic:
		if r.Role != "" {
			return fmt.Errorf("pattern %q: role is only valid with %q access", r.Pattern, AccessRole)
		}
	default:
		return fmt.Errorf("pattern %q: unknown access %q", r.Pattern, r.Access)
	}
	return nil
}

// Matches reports whether the rule applies to the request method and path.
func (r Rule) Matches(method, urlPath string) bool {
	if len(r.Methods) > 0 && !slices.ContainsFunc(r.Methods, func(m string) bool {
		return strings.EqualFold(m, method)
	}) {
		return false
	}
	// Both sides are made relative so "/animes/**" also matches "/animes/"
	// and "/**" matches "/".
	pattern := strings.TrimPrefix(r.Pattern, "/")
	name := strings.Trim(urlPath, "/")
	return doublestar.MatchUnvalidated(pattern, name)
}

// Decision is the outcome of a [Policy] evaluation.
type Decision int

// Policy decisions.
const (
	// Deny rejects an authenticated principal that lacks the required role.
	Deny Decision = iota
	// Allow lets the request through.
	Allow
	// Unauthenticated rejects a request that needs credentials it did not
	// present.
	Unauthenticated
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// DefaultRules is the access policy of the API, most specific first.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/users/admin/**", Access: AccessRole, Role: RoleAdmin},
		{Pattern: "/animes/admin/**", Access: AccessRole, Role: RoleAdmin},
		{Pattern: "/animes/**", Access: AccessRole, Role: RoleUser},
		{Pattern: "/actuator/**", Access: AccessPublic},
		{Pattern: "/swagger/**", Access: AccessAuthenticated},
		{Pattern: "/**", Access: AccessAuthenticated},
	}
}

// Policy evaluates an ordered list of rules. The first matching rule decides;
// rules are never reordered by specificity, so overlapping patterns must be
// declared most-specific-first.
type Policy struct {
	rules []Rule
}

// NewPolicy validates and copies rules.
func NewPolicy(rules []Rule) (Policy, error) {
	var errs []error
	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("access rule %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Policy{}, err
	}
	return Policy{rules: slices.Clone(rules)}, nil
}

// Rules returns a copy of the policy's rules in evaluation order.
func (p Policy) Rules() []Rule {
	return slices.Clone(p.rules)
}

// Match returns the first rule matching the request, if any.
func (p Policy) Match(method, urlPath string) (Rule, bool) {
	for _, rule := range p.rules {
		if rule.Matches(method, urlPath) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Authorize decides whether principal may access the request. A nil principal
// means no credentials were presented. If no rule matches, the request is
// refused: Unauthenticated without a principal, Deny with one.
func (p Policy) Authorize(method, urlPath string, principal *Principal) Decision {
	rule, ok := p.Match(method, urlPath)
	switch {
	case ok && rule.Access == AccessPublic:
		return Allow
	case principal == nil:
		return Unauthenticated
	case !ok:
		return Deny
	case rule.Access == AccessAuthenticated:
		return Allow
	case rule.Access == AccessRole && principal.HasRole(rule.Role):
		return Allow
	default:
		return Deny
	}
}

// AuthorizeRequest is [Policy.Authorize] for an HTTP request. The URL path is
// cleaned first so dot segments cannot skip past a rule.
func (p Policy) AuthorizeRequest(req *http.Request, principal *Principal) Decision {
	return p.Authorize(req.Method, CleanPath(req.URL.Path), principal)
}

// CleanPath returns the canonical form of a request path.
func CleanPath(urlPath string) string {
	return path.Clean("/" + urlPath)
}
