package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bft-labs/fragship/internal/domain"
	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// DefaultSessionTTL bounds how long a session may stay in the table.
const DefaultSessionTTL = 10 * time.Minute

// ServerConfig configures the receiving side.
type ServerConfig struct {
	Engine EngineConfig

	// SessionTTL expires sessions that were never removed.
	SessionTTL time.Duration

	// Once makes Run return after the first listen attempt.
	Once bool
}

// ReportHandler receives every report produced by the server.
type ReportHandler func(domain.TransferReport)

// ServerDeps are the collaborators of a Server. Transport and Resolver are
// required; the rest may be nil.
type ServerDeps struct {
	Transport ports.Transport
	Resolver  ports.PathResolver
	Reports   ports.ReportRepository
	Journal   ports.Journal
	Logger    ports.Logger
	Observer  StateObserver
	OnReport  ReportHandler

	// Console receives text transfers. Defaults to io.Discard.
	Console io.Writer

	// OpenSink creates the destination of a file transfer. Defaults to an
	// exclusive os.OpenFile.
	OpenSink func(path string) (io.WriteCloser, error)
}

// Server answers handshakes on one transport and receives one transfer at a
// time. No abort path stops the loop; only context cancellation, Stop or a
// closed transport do.
type Server struct {
	deps      ServerDeps
	lifecycle *Lifecycle
	sessions  *SessionTable

	mu     sync.RWMutex
	cfg    ServerConfig
	cancel context.CancelFunc
}

// NewServer creates a server in StateStopped.
func NewServer(cfg ServerConfig, deps ServerDeps) (*Server, error) {
	if deps.Transport == nil || deps.Resolver == nil {
		return nil, fmt.Errorf("%w: server needs a transport and a path resolver", domain.ErrInvalidConfig)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if deps.Logger == nil {
		deps.Logger = ports.NoopLogger{}
	}
	if deps.Console == nil {
		deps.Console = io.Discard
	}
	if deps.OpenSink == nil {
		deps.OpenSink = createExclusive
	}
	return &Server{
		deps:      deps,
		cfg:       cfg,
		lifecycle: NewLifecycle(deps.Logger, deps.Observer),
		sessions:  NewSessionTable(),
	}, nil
}

// UpdateSettings replaces the engine settings. The change applies from the
// next handshake; a transfer in progress keeps its settings.
func (s *Server) UpdateSettings(cfg EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Engine = cfg
	s.mu.Unlock()
	s.deps.Logger.Info("engine settings updated",
		ports.Duration("listen_timeout", cfg.ListenTimeout),
		ports.Duration("inactivity_timeout", cfg.InactivityTimeout),
		ports.Bool("complete_on_count", cfg.CompleteOnCount))
	return nil
}

// Settings returns the engine settings for the next handshake.
func (s *Server) Settings() EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Engine
}

// Sessions exposes the live session table.
func (s *Server) Sessions() *SessionTable { return s.sessions }

// ServeOnce listens for one handshake and, if one is accepted, receives the
// transfer. The returned report describes the attempt even when err != nil.
func (s *Server) ServeOnce(ctx context.Context) (domain.TransferReport, error) {
	cfg := s.Settings()
	log := s.deps.Logger

	session, err := NewHandshaker(s.deps.Transport, cfg, log).Listen(ctx)
	if err != nil {
		report := domain.NewReport(domain.RoleReceiver, nil)
		outcome := domain.OutcomeFailed
		if errors.Is(err, domain.ErrHandshakeTimeout) {
			outcome = domain.OutcomeTimedOut
		}
		report.Finish(outcome, err)
		s.record("handshake_failed", ports.String("outcome", string(outcome)), ports.Err(err))
		return report, err
	}

	if prev := s.sessions.Put(session); prev != nil {
		log.Warn("replacing stale session from same peer",
			ports.String("previous", prev.ID.String()),
			ports.String("session", session.ID.String()))
	}
	defer s.sessions.Remove(session)

	s.record("session_started",
		ports.String("session", session.ID.String()),
		ports.Stringer("peer", session.Peer),
		ports.String("kind", session.Kind.String()),
		ports.String("target", session.TargetName),
		ports.Int("fragment_size", session.FragmentSize),
		ports.Int("fragments", session.TotalFragments))

	sink := s.deps.Console
	var (
		file io.WriteCloser
		path string
	)
	if session.Kind == domain.TransferFile {
		path, err = s.deps.Resolver.Resolve(session.TargetName)
		if err == nil {
			file, err = s.deps.OpenSink(path)
		}
		if err != nil {
			// The handshake was already acknowledged; tell the sender
			// before its first fragment gets answered by the next Listen.
			if rerr := reply(ctx, s.deps.Transport, cfg.Polynomial, protocol.KindReset, session.FragmentSize, session.Peer); rerr != nil {
				log.Warn("reset not sent", ports.Err(rerr))
			}
			report := domain.NewReport(domain.RoleReceiver, session)
			err = fmt.Errorf("open destination for %q: %w", session.TargetName, err)
			report.Finish(domain.OutcomeFailed, err)
			s.finish(ctx, report)
			return report, err
		}
		sink = file
	}

	report, err := NewReceiver(s.deps.Transport, cfg, log).Accept(ctx, session, sink)
	if file != nil {
		report.SavedAs = path
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
			report.Outcome = domain.OutcomeFailed
			report.Error = err.Error()
		}
	}
	s.finish(ctx, report)
	return report, err
}

func createExclusive(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func (s *Server) finish(ctx context.Context, report domain.TransferReport) {
	s.record("transfer_finished",
		ports.String("session", report.SessionID.String()),
		ports.String("outcome", string(report.Outcome)),
		ports.Int("received", report.FragmentsDelivered),
		ports.Int("declared", report.FragmentsExpected),
		ports.Int("nacks", report.NackCount),
		ports.Int64("bytes", report.Bytes),
		ports.String("saved_as", report.SavedAs),
		ports.Duration("elapsed", report.Duration))

	if s.deps.Reports != nil {
		if err := s.deps.Reports.Save(ctx, report); err != nil {
			s.deps.Logger.Error("failed to save report", ports.Err(err))
		}
	}
	if s.deps.OnReport != nil {
		s.deps.OnReport(report)
	}
}

func (s *Server) record(event string, fields ...ports.Field) {
	if s.deps.Journal != nil {
		s.deps.Journal.Record(event, fields...)
	}
}

// Run serves transfers until ctx ends or the transport is closed.
func (s *Server) Run(ctx context.Context) error {
	log := s.deps.Logger
	back := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.RLock()
		ttl, once := s.cfg.SessionTTL, s.cfg.Once
		s.mu.RUnlock()
		for _, expired := range s.sessions.Expire(time.Now(), ttl) {
			log.Warn("session expired", ports.String("session", expired.ID.String()))
		}

		_, err := s.ServeOnce(ctx)
		switch {
		case err == nil:
			back.Reset()
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, net.ErrClosed):
			return err
		case errors.Is(err, domain.ErrHandshakeTimeout):
			log.Info("no sender connected", ports.Err(err))
		case errors.Is(err, domain.ErrMalformedNegotiation),
			errors.Is(err, domain.ErrInactivityTimeout),
			errors.Is(err, domain.ErrFragmentOverflow):
			log.Warn("transfer aborted", ports.Err(err))
		default:
			log.Error("transfer failed", ports.Err(err), ports.Duration("backoff", back.Current()))
			if serr := back.Sleep(ctx); serr != nil {
				return serr
			}
		}

		if once {
			return err
		}
	}
}

// Start runs the serving loop in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.lifecycle.AddWorker()
	go func() {
		defer s.lifecycle.WorkerDone()

		if err := s.lifecycle.TransitionTo(StateRunning, "listener started"); err != nil {
			s.deps.Logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		err := s.Run(runCtx)
		switch {
		case err == nil || errors.Is(err, context.Canceled):
			if s.lifecycle.State() == StateRunning {
				_ = s.lifecycle.TransitionTo(StateStopped, "listener finished")
			}
		default:
			_ = s.lifecycle.TransitionTo(StateCrashed, err.Error())
		}
	}()
	return nil
}

// Stop cancels the serving loop and waits up to ShutdownTimeout for it.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(ShutdownTimeout)
	if err != nil {
		_ = s.lifecycle.TransitionTo(StateCrashed, "shutdown timeout")
		return err
	}
	_ = s.lifecycle.TransitionTo(StateStopped, "graceful shutdown")
	return nil
}

// Status returns the current lifecycle state.
func (s *Server) Status() State {
	return s.lifecycle.State()
}
