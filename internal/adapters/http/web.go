package web

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"frontporch/internal/adapters/email"
	"frontporch/internal/adapters/http/middleware"
	"frontporch/internal/adapters/http/perf"
	"frontporch/internal/adapters/session"
	accountStore "frontporch/internal/adapters/storage/account"
	auditStore "frontporch/internal/adapters/storage/audit"
	signupStore "frontporch/internal/adapters/storage/signup"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores holds all storage dependencies.
type Stores struct {
	SignupStore signupStore.Store
	AdminStore  accountStore.Store
	Sessions    session.Store
	AuditStore  auditStore.Store // optional: nil disables the activity log
	DB          Pinger           // optional: nil makes /healthz report ok without a check
}

// Notifier configures coordinator e-mails for new signups.
type Notifier struct {
	Sender email.Sender
	From   string
	To     []string
}

// Options configures the HTTP surface.
type Options struct {
	CSRFKey            []byte // nil disables CSRF protection
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond float64 // <= 0 disables rate limiting
	CORSOrigins        []string
	PublicURL          string
	BannerMarkdown     string
	SlowRequestMs      int
	Notify             Notifier
	Now                func() time.Time
}

// Server serves the public grid, the admin dashboard and the JSON API.
type Server struct {
	stores    *Stores
	opts      Options
	collector *perf.Collector
	limiter   *middleware.RateLimiter
	pages     map[string]*template.Template
	banner    template.HTML
	static    fs.FS

	notifyWG sync.WaitGroup
}

// NewServer parses the embedded templates and prepares the handlers.
// PRE: s has SignupStore, AdminStore and Sessions set
// POST: Returns a server ready to serve, or a template/markdown error
func NewServer(s *Stores, collector *perf.Collector, opts Options) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	banner, err := renderMarkdown(opts.BannerMarkdown)
	if err != nil {
		return nil, fmt.Errorf("render banner: %w", err)
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	srv := &Server{
		stores:    s,
		opts:      opts,
		collector: collector,
		pages:     pages,
		banner:    banner,
		static:    static,
	}
	if opts.RateLimitPerSecond > 0 {
		srv.limiter = middleware.NewRateLimiter(opts.RateLimitPerSecond, 0)
	}
	return srv, nil
}

// Routes registers every endpoint on a fresh router, without the outer middleware chain.
func (s *Server) Routes() http.Handler {
	router := httprouter.New()
	admin := middleware.RequireAdmin

	router.HandlerFunc(http.MethodGet, "/", s.handleHome)
	router.HandlerFunc(http.MethodPost, "/signup", s.handleSignup)
	router.Handler(http.MethodGet, "/api/slots", s.corsHandler(http.HandlerFunc(s.handleAPISlots)))
	router.Handler(http.MethodOptions, "/api/slots", s.corsHandler(http.HandlerFunc(s.handleAPISlots)))
	router.HandlerFunc(http.MethodGet, "/healthz", s.handleHealthz)

	router.HandlerFunc(http.MethodGet, "/admin", s.handleAdmin)
	router.HandlerFunc(http.MethodPost, "/admin/login", s.handleAdminLogin)
	router.HandlerFunc(http.MethodPost, "/admin/logout", s.handleAdminLogout)
	router.Handler(http.MethodPost, "/admin/delete_signup", admin(http.HandlerFunc(s.handleDeleteSignup)))
	router.Handler(http.MethodPost, "/admin/move_signup", admin(http.HandlerFunc(s.handleMoveSignup)))
	router.Handler(http.MethodGet, "/admin/export.json", admin(http.HandlerFunc(s.handleExport)))
	router.Handler(http.MethodGet, "/admin/roster.pdf", admin(http.HandlerFunc(s.handleRosterPDF)))
	router.Handler(http.MethodGet, "/admin/poster-qr.png", admin(http.HandlerFunc(s.handlePosterQR)))
	router.Handler(http.MethodGet, "/admin/perf", admin(http.HandlerFunc(s.handlePerf)))

	router.ServeFiles("/static/*filepath", http.FS(s.static))
	return router
}

// Handler returns the routes wrapped in the full middleware chain.
// Order, outermost first: Timing, Recover, SecurityHeaders, RateLimit, CSRF, Auth.
func (s *Server) Handler() http.Handler {
	mws := []func(http.Handler) http.Handler{middleware.Auth(s.stores.Sessions)}
	if s.opts.CSRFKey != nil {
		mws = append(mws, middleware.CSRF(s.opts.CSRFKey, s.opts.SecureCookies, s.opts.TrustedOrigins))
	}
	if s.limiter != nil {
		mws = append(mws, middleware.RateLimit(s.limiter))
	}
	mws = append(mws,
		middleware.SecurityHeaders,
		middleware.Recover,
		middleware.Timing(s.collector, s.opts.SlowRequestMs),
	)
	return middleware.Chain(s.Routes(), mws...)
}

// Run performs background upkeep until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	if s.limiter != nil {
		s.limiter.Run(ctx)
	}
}

// Wait blocks until in-flight notification e-mails have been handed off.
func (s *Server) Wait() {
	s.notifyWG.Wait()
}

func (s *Server) corsHandler(h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(h)
}

func (s *Server) now() time.Time {
	if s.opts.Now != nil {
		return s.opts.Now()
	}
	return time.Now().UTC()
}
