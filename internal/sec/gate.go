package sec

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"connectrpc.com/authn"
	"connectrpc.com/connect"
	"github.com/labstack/echo/v4"
)

// DefaultRealm is the Basic Auth realm announced in challenges.
const DefaultRealm = "animes"

// Config is the security configuration, built once at startup and shared by
// reference with the [Gate].
type Config struct {
	// Realm is announced in WWW-Authenticate challenges.
	Realm string `yaml:"realm" envconfig:"REALM" validate:"required"`
	// BcryptCost is the cost of newly generated password hashes.
	BcryptCost int `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST" validate:"omitempty,min=4,max=31"`
	// Rules is the ordered access policy.
	Rules []Rule `yaml:"access_rules" validate:"required,min=1" ignored:"true"`
}

// DefaultConfig returns the security configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Realm: DefaultRealm,
		Rules: DefaultRules(),
	}
}

// ErrForbidden is returned for authenticated principals the policy denies.
var ErrForbidden = connect.NewError(connect.CodePermissionDenied, errors.New("access denied"))

// ErrRejectedPath is returned for request paths that could route differently
// from how the policy reads them.
var ErrRejectedPath = connect.NewError(connect.CodeInvalidArgument, errors.New("request path is not normalized"))

// errMissingCredentials is returned when a protected path is requested
// without credentials.
var errMissingCredentials = authn.Errorf("authentication required")

// Outcome labels a [Gate] decision for logging and metrics.
type Outcome string

// Gate outcomes.
const (
	OutcomeAllowed    Outcome = "allowed"
	OutcomeChallenged Outcome = "challenged"
	OutcomeForbidden  Outcome = "forbidden"
	OutcomeRejected   Outcome = "rejected"
	OutcomeError      Outcome = "error"
)

// Recorder observes gate outcomes.
type Recorder interface {
	RecordOutcome(outcome Outcome)
}

// Authenticator is the part of [Provider] used by the [Gate].
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Principal, error)
}

// Gate intercepts every request, authenticates Basic credentials if present,
// and applies the access policy. It holds no per-request state.
type Gate struct {
	cfg      *Config
	policy   Policy
	authn    Authenticator
	logger   *slog.Logger
	recorder Recorder
}

// NewGate builds a Gate. The recorder may be nil.
func NewGate(cfg *Config, authenticator Authenticator, logger *slog.Logger, recorder Recorder) (*Gate, error) {
	policy, err := NewPolicy(cfg.Rules)
	if err != nil {
		return nil, err
	}
	return &Gate{
		cfg:      cfg,
		policy:   policy,
		authn:    authenticator,
		logger:   logger,
		recorder: recorder,
	}, nil
}

// Check runs the gate for req. On success it returns the authenticated
// principal, or nil for an anonymous request to a public path. Errors are
// connect errors: [connect.CodeInvalidArgument] for a path that is not in
// normal form, [connect.CodeUnauthenticated] for missing or bad credentials,
// [connect.CodePermissionDenied] for a denied principal, and
// [connect.CodeInternal] when authentication itself failed (for example a
// malformed stored hash).
func (g *Gate) Check(req *http.Request) (*Principal, error) {
	if !IsNormalPath(req.URL) {
		return nil, ErrRejectedPath
	}
	if !hasBasicScheme(req) {
		if g.policy.AuthorizeRequest(req, nil) == Allow {
			return nil, nil
		}
		return nil, errMissingCredentials
	}

	username, password, ok := req.BasicAuth()
	if !ok {
		return nil, authn.Errorf("malformed basic credentials")
	}
	principal, err := g.authn.Authenticate(req.Context(), username, password)
	if err != nil {
		if connect.CodeOf(err) == connect.CodeUnauthenticated {
			return nil, err
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	if g.policy.AuthorizeRequest(req, &principal) != Allow {
		return &principal, ErrForbidden
	}
	return &principal, nil
}

// Middleware returns echo middleware enforcing the gate. Failures become
// *echo.HTTPError values with generic messages (401 with a WWW-Authenticate
// challenge, 403, or 500); the underlying cause is kept as the internal error.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			principal, err := g.Check(req)
			outcome := outcomeOf(err)
			g.observe(req, principal, outcome, err)

			switch outcome {
			case OutcomeChallenged:
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="`+g.cfg.Realm+`"`)
				return echo.ErrUnauthorized.WithInternal(err)
			case OutcomeForbidden:
				return echo.ErrForbidden.WithInternal(err)
			case OutcomeRejected:
				return echo.ErrBadRequest.WithInternal(err)
			case OutcomeError:
				return echo.ErrInternalServerError.WithInternal(err)
			}
			if principal != nil {
				c.SetRequest(req.WithContext(SetPrincipal(req.Context(), *principal)))
			}
			return next(c)
		}
	}
}

func (g *Gate) observe(req *http.Request, principal *Principal, outcome Outcome, err error) {
	if g.recorder != nil {
		g.recorder.RecordOutcome(outcome)
	}
	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.String("outcome", string(outcome)),
	}
	if principal != nil {
		attrs = append(attrs, slog.String("username", principal.Username))
	}
	if outcome == OutcomeError {
		attrs = append(attrs, slog.Any("error", err))
		g.logger.LogAttrs(req.Context(), slog.LevelError, "authentication failed", attrs...)
		return
	}
	g.logger.LogAttrs(req.Context(), slog.LevelDebug, "access decision", attrs...)
}

func outcomeOf(err error) Outcome {
	switch connect.CodeOf(err) {
	case connect.CodeUnauthenticated:
		return OutcomeChallenged
	case connect.CodePermissionDenied:
		return OutcomeForbidden
	case connect.CodeInvalidArgument:
		return OutcomeRejected
	default:
		if err == nil {
			return OutcomeAllowed
		}
		return OutcomeError
	}
}

// hasBasicScheme reports whether the request carries an Authorization header
// using the Basic scheme. Other schemes are treated as no credentials.
func hasBasicScheme(req *http.Request) bool {
	const prefix = "basic "
	header := req.Header.Get(echo.HeaderAuthorization)
	return len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix)
}

// encodedSeparators are escapes whose decoded form changes how a path splits
// into segments. The router matches the escaped path while the policy reads
// the decoded one, so any of them could let the two disagree.
var encodedSeparators = []string{"%2f", "%2e", "%5c", "%25"}

// IsNormalPath reports whether u's path has a single reading: no encoded
// separators, no empty segments and no dot segments. A trailing slash is
// allowed.
func IsNormalPath(u *url.URL) bool {
	escaped := strings.ToLower(u.EscapedPath())
	for _, enc := range encodedSeparators {
		if strings.Contains(escaped, enc) {
			return false
		}
	}
	if strings.ContainsRune(u.Path, '\\') {
		return false
	}
	want := CleanPath(u.Path)
	if want != "/" && strings.HasSuffix(u.Path, "/") {
		want += "/"
	}
	return u.Path == want
}
