package fragship

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/fragship/internal/adapters/fault"
	"github.com/bft-labs/fragship/internal/adapters/fs"
	"github.com/bft-labs/fragship/internal/adapters/udp"
	"github.com/bft-labs/fragship/internal/app"
	"github.com/bft-labs/fragship/internal/domain"
	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/log"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// Re-export types so callers do not need the internal packages.
type (
	// Settings holds protocol timings, the retry limit, the completion rule
	// and the checksum generator. Both ends must use the same generator.
	Settings = app.EngineConfig

	// Report describes one transfer attempt from one end.
	Report = domain.TransferReport

	// Outcome summarizes how a transfer ended.
	Outcome = domain.Outcome

	// State is the lifecycle state of a Server.
	State = app.State

	// StateObserver is notified after every lifecycle transition.
	StateObserver = app.StateObserver

	// Logger is the interface for structured logging.
	Logger = log.Logger

	// Journal is a persistent log of transfer events.
	Journal = ports.Journal
)

// Lifecycle states.
const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// Transfer outcomes.
const (
	OutcomeCompleted  = domain.OutcomeCompleted
	OutcomeIncomplete = domain.OutcomeIncomplete
	OutcomeTimedOut   = domain.OutcomeTimedOut
	OutcomeFailed     = domain.OutcomeFailed
)

// Report roles.
const (
	RoleSender   = domain.RoleSender
	RoleReceiver = domain.RoleReceiver
)

// Errors returned by transfers; check with errors.Is.
var (
	ErrHandshakeTimeout     = domain.ErrHandshakeTimeout
	ErrInactivityTimeout    = domain.ErrInactivityTimeout
	ErrFragmentOverflow     = domain.ErrFragmentOverflow
	ErrPeerUnreachable      = domain.ErrPeerUnreachable
	ErrMalformedNegotiation = domain.ErrMalformedNegotiation
	ErrRetriesExhausted     = domain.ErrRetriesExhausted
	ErrCompletionAckMissing = domain.ErrCompletionAckMissing
	ErrInvalidConfig        = domain.ErrInvalidConfig
	ErrAlreadyRunning       = domain.ErrAlreadyRunning
	ErrNotRunning           = domain.ErrNotRunning
)

// Payload limits for the fragment argument of SendFile and SendText.
const (
	MinFragment = protocol.MinPayload
	MaxFragment = protocol.MaxPayload
)

// DefaultSettings returns the protocol defaults.
func DefaultSettings() Settings {
	return app.DefaultEngineConfig()
}

// SendFile transfers the file at path to the receiver at addr, carrying
// fragment payload bytes per datagram. The receiver stores it under the base
// name of path.
//
// The returned report describes the attempt even when err != nil.
func SendFile(ctx context.Context, addr, path string, fragment int, opts ...Option) (Report, error) {
	o := applyOptions(opts)
	if err := checkFragment(fragment); err != nil {
		return Report{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Report{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Report{}, fmt.Errorf("%s is a directory", path)
	}

	fragmentSize := fragment + protocol.HeaderSize
	total := protocol.FragmentCount(info.Size(), fragmentSize)
	offer := protocol.Offer{
		Kind:         protocol.KindSet,
		FragmentSize: fragmentSize,
		Fragments:    total,
		FileName:     filepath.Base(path),
	}
	src := app.NewReaderSource(bufio.NewReader(f), fragment, total)
	return send(ctx, addr, offer, src, o)
}

// SendText transfers msg to the receiver at addr, carrying fragment payload
// bytes per datagram. The receiver prints it.
//
// The returned report describes the attempt even when err != nil.
func SendText(ctx context.Context, addr, msg string, fragment int, opts ...Option) (Report, error) {
	o := applyOptions(opts)
	if err := checkFragment(fragment); err != nil {
		return Report{}, err
	}

	src := app.NewMessageSource([]byte(msg), fragment)
	offer := protocol.Offer{
		Kind:         protocol.KindSetMessage,
		FragmentSize: fragment + protocol.HeaderSize,
		Fragments:    src.Fragments(),
	}
	return send(ctx, addr, offer, src, o)
}

func checkFragment(fragment int) error {
	if fragment < MinFragment || fragment > MaxFragment {
		return fmt.Errorf("%w: fragment %d outside [%d, %d]", ErrInvalidConfig, fragment, MinFragment, MaxFragment)
	}
	return nil
}

func send(ctx context.Context, addr string, offer protocol.Offer, src ports.Source, o options) (Report, error) {
	if err := o.settings.Validate(); err != nil {
		return Report{}, err
	}

	conn, err := udp.Dial(addr)
	if err != nil {
		return Report{}, err
	}
	defer conn.Close()

	var transport ports.Transport = conn
	if o.corruptFragment > 0 {
		transport = fault.CorruptFragment(conn, o.settings.Polynomial, o.corruptFragment, o.logger)
	}

	o.record("handshake_started",
		ports.String("peer", addr),
		ports.String("kind", offer.Kind.String()),
		ports.String("target", offer.FileName),
		ports.Int("fragment_size", offer.FragmentSize),
		ports.Int("fragments", offer.Fragments))

	session, err := app.NewHandshaker(transport, o.settings, o.logger).Offer(ctx, conn.RemoteAddr(), offer)
	if err != nil {
		report := domain.NewReport(domain.RoleSender, nil)
		report.Peer = addr
		report.Kind = domain.TransferFile
		if offer.Kind == protocol.KindSetMessage {
			report.Kind = domain.TransferText
		}
		report.TargetName = offer.FileName
		report.FragmentSize = offer.FragmentSize
		report.FragmentsExpected = offer.Fragments

		outcome := domain.OutcomeFailed
		if errors.Is(err, domain.ErrHandshakeTimeout) {
			outcome = domain.OutcomeTimedOut
		}
		report.Finish(outcome, err)
		o.finish(ctx, report)
		return report, err
	}

	o.record("session_started",
		ports.String("session", session.ID.String()),
		ports.Stringer("peer", session.Peer))

	report, err := app.NewSender(transport, o.settings, o.logger).Transfer(ctx, session, src)
	o.finish(ctx, report)
	return report, err
}

func (o options) record(event string, fields ...ports.Field) {
	if o.journal != nil {
		o.journal.Record(event, fields...)
	}
}

func (o options) finish(ctx context.Context, report Report) {
	o.record("transfer_finished",
		ports.String("session", report.SessionID.String()),
		ports.String("role", string(report.Role)),
		ports.String("outcome", string(report.Outcome)),
		ports.Int("sent", report.FragmentsSent),
		ports.Int("delivered", report.FragmentsDelivered),
		ports.Int("nacks", report.NackCount),
		ports.Int("timeouts", report.Timeouts),
		ports.Int64("bytes", report.Bytes),
		ports.String("error", report.Error),
		ports.Duration("elapsed", report.Duration))

	if o.reportDir != "" {
		if err := fs.NewReportFile(o.reportDir).Save(ctx, report); err != nil {
			o.logger.Error("failed to save report", ports.Err(err))
		}
	}
	if o.onReport != nil {
		o.onReport(report)
	}
}

// LoadReport reads the report last saved to dir by WithReportDir.
// The bool is false if no report was saved yet.
func LoadReport(dir string) (Report, bool, error) {
	return fs.NewReportFile(dir).Load(context.Background())
}
