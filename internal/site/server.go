package site

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/config"
	"github.com/chunkytofustudios/analytics-gate/internal/gate"
	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/internal/outbound"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
	"github.com/chunkytofustudios/analytics-gate/pkg/fileutil"
)

// FirebaseAuthURL handles Beehive account action links.
const FirebaseAuthURL = "https://word-rally-app.firebaseapp.com/__/auth/action"

const shutdownTimeout = 5 * time.Second

/*
Server fronts the static site build.

Routes:
- GET /healthz: liveness and gate state
- GET /out: outbound link redirect
- POST /consent: store consent choices
- GET /beehive/auth: Firebase auth action redirect
- everything else: static files, with page views tracked for HTML pages
*/
type Server struct {
	gate          *gate.Gate
	routes        RouteTable
	rewriter      outbound.Rewriter
	siteOrigin    url.URL
	metadataSink  metadata.MetadataSink
	siteDir       string
	listenAddr    string
	trackOutbound bool
	secureCookies bool
	now           func() time.Time
}

func NewServer(cfg config.Config, g *gate.Gate, routes RouteTable, metadataSink metadata.MetadataSink) (*Server, failure.ClassifiedError) {
	if err := fileutil.RequireDir(cfg.SiteDir()); err != nil {
		return nil, &SiteError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseSiteDirMissing,
		}
	}

	return &Server{
		gate:          g,
		routes:        routes,
		rewriter:      outbound.NewRewriter(cfg.SiteOrigin()),
		siteOrigin:    cfg.SiteOrigin(),
		metadataSink:  metadataSink,
		siteDir:       cfg.SiteDir(),
		listenAddr:    cfg.ListenAddr(),
		trackOutbound: cfg.TrackOutboundLinks(),
		secureCookies: cfg.SiteOrigin().Scheme == "https",
		now:           time.Now,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET "+outbound.RedirectPath, outbound.NewHandler(s.gate, s.siteOrigin, s.metadataSink))
	mux.HandleFunc("POST /consent", s.handleConsent)
	mux.HandleFunc("GET /beehive/auth", s.handleBeehiveAuth)
	mux.HandleFunc("GET /", s.handleStatic)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return &SiteError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseListenFailure,
		}
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-serveErr
		return nil
	}
}

func (s *Server) handleBeehiveAuth(w http.ResponseWriter, r *http.Request) {
	target := FirebaseAuthURL
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) recordError(action string, r *http.Request, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var siteErr *SiteError
	if errors.As(err, &siteErr) {
		cause = mapSiteErrorToMetadataCause(siteErr)
	}
	s.metadataSink.RecordError(
		time.Now(),
		"site",
		action,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrPath, r.URL.Path),
		},
	)
}
