// Package api exposes the challenge lifecycle over HTTP: issuing
// puzzles, verifying placements, verifying proof tokens, and the
// analytics dashboard.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/dmaher/pcaptcha/captcha"
	"github.com/dmaher/pcaptcha/storage"
	"github.com/dmaher/pcaptcha/token"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	store     *captcha.Store
	issuer    *captcha.Issuer
	verifier  *captcha.Verifier
	analytics *captcha.Analytics

	tokenIssuer   *token.Issuer
	tokenVerifier *token.Verifier

	audit   *auditLogger
	limiter *issueRateLimiter
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithAlertFunc installs a callback for failure-spike anomaly alerts.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.audit.metrics = newMetricsCollector(fn)
	}
}

// New creates a new API instance. The renderer is the external
// collaborator producing challenge assets; secret signs proof tokens.
func New(repo storage.Repository, renderer captcha.Renderer, secret []byte, opts ...Option) (*API, error) {
	tokenIssuer, err := token.NewIssuer(secret)
	if err != nil {
		return nil, err
	}
	tokenVerifier, err := token.NewVerifier(secret)
	if err != nil {
		return nil, err
	}

	store := captcha.NewStore(repo)
	a := &API{
		store:         store,
		issuer:        captcha.NewIssuer(store, renderer),
		verifier:      captcha.NewVerifier(store),
		analytics:     captcha.NewAnalytics(store),
		tokenIssuer:   tokenIssuer,
		tokenVerifier: tokenVerifier,
		audit:         newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil))),
		limiter:       newIssueRateLimiter(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Group(func(r chi.Router) {
		r.Use(a.SessionMiddleware)
		r.Post("/challenge", a.GenerateChallenge)
		r.Post("/verify-placement", a.VerifyPlacement)
	})

	r.Get("/assets/{challengeID}", a.GetAsset)
	r.Post("/verify-token", a.VerifyToken)
	r.Get("/dashboard", a.Dashboard)

	return r
}
