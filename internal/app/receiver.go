package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/fragship/internal/domain"
	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// Receiver accepts the data fragments of a negotiated session.
type Receiver struct {
	transport ports.Transport
	cfg       EngineConfig
	logger    ports.Logger
}

// NewReceiver creates a receiver bound to transport.
func NewReceiver(transport ports.Transport, cfg EngineConfig, logger ports.Logger) *Receiver {
	return &Receiver{transport: transport, cfg: cfg, logger: logger}
}

// Accept reads fragments from the session peer and appends intact payloads
// to sink. Every datagram is answered with ACK or RST.
//
// The transfer ends after InactivityTimeout of silence. With CompleteOnCount
// the final ACK is sent as soon as the declared number of fragments has been
// written, and the remaining wait only watches for stray fragments; otherwise
// the final ACK follows the silence. A transfer short of the declared count
// returns the report with domain.ErrInactivityTimeout.
//
// Frames carry no sequence number, so a fragment resent after a lost ACK is
// written again and pushes a later fragment past the declared count. Data
// beyond the count is acknowledged but not written, and the transfer returns
// domain.ErrFragmentOverflow.
func (r *Receiver) Accept(ctx context.Context, session *domain.Session, sink io.Writer) (domain.TransferReport, error) {
	report := domain.NewReport(domain.RoleReceiver, session)

	bufSize := session.ReadBuffer
	if bufSize < session.FragmentSize {
		bufSize = session.FragmentSize
	}

	finalSent := false
	overflow := 0
	for {
		if r.cfg.CompleteOnCount && !finalSent && session.Received >= session.TotalFragments {
			r.acknowledgeTransfer(ctx, session)
			finalSent = true
		}

		dg, err := receiveFrom(ctx, r.transport, session.Peer, r.cfg.InactivityTimeout, bufSize, r.logger)
		if errors.Is(err, ports.ErrReceiveTimeout) {
			r.logger.Debug("sender went silent", ports.Int("received", session.Received))
			break
		}
		if err != nil {
			err = fmt.Errorf("receive fragment %d: %w", session.Received+1, err)
			report.Finish(domain.OutcomeFailed, err)
			return report, err
		}

		verdict := r.cfg.Polynomial.VerifyDatagram(dg.Data)
		if err := reply(ctx, r.transport, r.cfg.Polynomial, verdict, session.FragmentSize, session.Peer); err != nil {
			err = fmt.Errorf("reply to fragment %d: %w", session.Received+1, err)
			report.Finish(domain.OutcomeFailed, err)
			return report, err
		}
		if verdict != protocol.KindAck {
			report.NackCount++
			report.Record(session.Received+1, "RST")
			r.logger.Debug("fragment failed checksum",
				ports.Int("fragment", session.Received+1),
				ports.Err(domain.ErrChecksumMismatch))
			continue
		}

		f := protocol.Decode(dg.Data)
		if f.Kind != protocol.KindPush {
			// A resent handshake means our ACK was lost; the reply above
			// already answered it.
			r.logger.Debug("ignoring non-data frame", ports.String("kind", f.Kind.String()))
			continue
		}

		if session.Received >= session.TotalFragments {
			overflow++
			report.Record(session.Received+overflow, "EXTRA")
			r.logger.Warn("fragment beyond the declared count",
				ports.Int("fragment", session.Received+overflow),
				ports.Int("declared", session.TotalFragments))
			continue
		}

		n, err := sink.Write(f.Payload)
		report.Bytes += int64(n)
		if err != nil {
			err = fmt.Errorf("write fragment %d: %w", session.Received+1, err)
			report.Finish(domain.OutcomeFailed, err)
			return report, err
		}
		session.Received++
		report.FragmentsDelivered++
		report.Record(session.Received, "ACK")
	}

	if !finalSent {
		r.acknowledgeTransfer(ctx, session)
	}

	if overflow > 0 {
		err := fmt.Errorf("%w: %d fragments past the declared %d", domain.ErrFragmentOverflow, overflow, session.TotalFragments)
		report.Finish(domain.OutcomeIncomplete, err)
		r.logger.Warn("transfer overflowed",
			ports.String("session", session.ID.String()),
			ports.Int("extra", overflow),
			ports.Int("declared", session.TotalFragments))
		return report, err
	}

	if report.Complete() {
		report.Finish(domain.OutcomeCompleted, nil)
		r.logger.Info("transfer received",
			ports.String("session", session.ID.String()),
			ports.Int("received", session.Received),
			ports.Int("declared", session.TotalFragments),
			ports.Int64("bytes", report.Bytes))
		return report, nil
	}

	err := fmt.Errorf("%w: received %d of %d fragments", domain.ErrInactivityTimeout, session.Received, session.TotalFragments)
	report.Finish(domain.OutcomeIncomplete, err)
	r.logger.Warn("transfer incomplete",
		ports.String("session", session.ID.String()),
		ports.Int("received", session.Received),
		ports.Int("declared", session.TotalFragments))
	return report, err
}

// acknowledgeTransfer sends the final ACK. A lost final ACK is the sender's
// problem to report, so failures are only logged.
func (r *Receiver) acknowledgeTransfer(ctx context.Context, session *domain.Session) {
	if err := reply(ctx, r.transport, r.cfg.Polynomial, protocol.KindAck, session.FragmentSize, session.Peer); err != nil {
		r.logger.Warn("final acknowledgment not sent", ports.Err(err))
	}
}
