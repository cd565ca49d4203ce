package fragship

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/bft-labs/fragship/internal/adapters/fs"
	"github.com/bft-labs/fragship/internal/adapters/udp"
	"github.com/bft-labs/fragship/internal/app"
)

// Server receives transfers on one UDP socket, one at a time.
type Server struct {
	inner *app.Server
	conn  *udp.Transport
}

// NewServer binds addr and prepares a server that stores received files in
// outputDir ("." if empty). The socket is open once NewServer returns; call
// Close to release it.
func NewServer(addr, outputDir string, opts ...Option) (*Server, error) {
	o := applyOptions(opts)
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	conn, err := udp.Listen(addr)
	if err != nil {
		return nil, err
	}

	deps := app.ServerDeps{
		Transport: conn,
		Resolver:  fs.NewCollisionResolver(outputDir),
		Journal:   o.journal,
		Logger:    o.logger,
		Observer:  o.observer,
		OnReport:  o.onReport,
		Console:   o.console,
		OpenSink:  fs.CreateSink,
	}
	if o.reportDir != "" {
		deps.Reports = fs.NewReportFile(o.reportDir)
	}

	inner, err := app.NewServer(app.ServerConfig{
		Engine:     o.settings,
		SessionTTL: o.sessionTTL,
		Once:       o.once,
	}, deps)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Server{inner: inner, conn: conn}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.conn.LocalAddr() }

// Start serves transfers in the background until Stop is called or ctx
// ends. It returns immediately.
func (s *Server) Start(ctx context.Context) error { return s.inner.Start(ctx) }

// Stop ends the serving loop and waits for it to exit.
func (s *Server) Stop() error { return s.inner.Stop() }

// Run serves transfers in the calling goroutine until ctx ends, the socket
// is closed, or after the first attempt when WithOnce was given.
func (s *Server) Run(ctx context.Context) error { return s.inner.Run(ctx) }

// ServeOnce waits for one handshake and receives its transfer.
func (s *Server) ServeOnce(ctx context.Context) (Report, error) { return s.inner.ServeOnce(ctx) }

// Status returns the lifecycle state.
func (s *Server) Status() State { return s.inner.Status() }

// Settings returns the settings used for the next handshake.
func (s *Server) Settings() Settings { return s.inner.Settings() }

// UpdateSettings replaces the settings from the next handshake on.
func (s *Server) UpdateSettings(settings Settings) error { return s.inner.UpdateSettings(settings) }

// Close releases the socket. A running loop exits with net.ErrClosed.
func (s *Server) Close() error { return s.conn.Close() }
