package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bft-labs/fragship/internal/domain"
	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// sendState is a step of the stop-and-wait sender.
type sendState int

const (
	stateSend sendState = iota
	stateAwaitAck
	stateRetransmit
	stateDone
	stateFailed
)

func (s sendState) String() string {
	switch s {
	case stateSend:
		return "SEND"
	case stateAwaitAck:
		return "AWAIT_ACK"
	case stateRetransmit:
		return "RETRANSMIT"
	case stateDone:
		return "DONE"
	case stateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Sender delivers fragments one at a time, waiting for each reply before
// sending the next.
type Sender struct {
	transport ports.Transport
	cfg       EngineConfig
	logger    ports.Logger
}

// NewSender creates a sender bound to transport.
func NewSender(transport ports.Transport, cfg EngineConfig, logger ports.Logger) *Sender {
	return &Sender{transport: transport, cfg: cfg, logger: logger}
}

// Transfer sends every payload from src to the session peer.
//
// A fragment answered with RST or not answered within AckTimeout is resent
// unchanged; the source does not advance until the fragment is acknowledged.
// After MaxRetries resends the transfer fails with domain.ErrRetriesExhausted.
// Once the source is exhausted Transfer waits CompletionTimeout for the
// receiver's final ACK and returns domain.ErrCompletionAckMissing if it does
// not come. The report is populated in every case.
func (s *Sender) Transfer(ctx context.Context, session *domain.Session, src ports.Source) (domain.TransferReport, error) {
	report := domain.NewReport(domain.RoleSender, session)

	var (
		datagram []byte
		fragment int
		retries  int
		failErr  error
		state    = stateSend
	)

	for state != stateDone && state != stateFailed {
		if err := ctx.Err(); err != nil {
			failErr = err
			state = stateFailed
			continue
		}

		switch state {
		case stateSend:
			payload, err := src.Next()
			if errors.Is(err, io.EOF) {
				state = stateDone
				continue
			}
			if err != nil {
				failErr = fmt.Errorf("read fragment %d: %w", fragment+1, err)
				state = stateFailed
				continue
			}
			fragment++
			retries = 0
			datagram, err = s.cfg.Polynomial.Encode(protocol.KindPush, session.FragmentSize, payload)
			if err != nil {
				failErr = fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
				state = stateFailed
				continue
			}
			state = s.transmit(ctx, session, datagram, &report, &failErr)

		case stateAwaitAck:
			f, err := awaitReply(ctx, s.transport, session.Peer, s.cfg.AckTimeout, s.logger)
			switch {
			case errors.Is(err, ports.ErrReceiveTimeout):
				report.Timeouts++
				report.Record(fragment, "TIMEOUT")
				s.logger.Debug("fragment reply timed out", ports.Int("fragment", fragment))
				state = stateRetransmit
			case err != nil:
				failErr = fmt.Errorf("await reply for fragment %d: %w", fragment, err)
				state = stateFailed
			case f.Kind == protocol.KindAck:
				session.Sent++
				report.FragmentsDelivered++
				report.Bytes += int64(len(datagram) - protocol.HeaderSize)
				report.Record(fragment, "ACK")
				state = stateSend
			default:
				report.NackCount++
				report.Record(fragment, "RST")
				s.logger.Debug("fragment rejected", ports.Int("fragment", fragment), ports.String("reply", f.Kind.String()))
				state = stateRetransmit
			}

		case stateRetransmit:
			if retries >= s.cfg.MaxRetries {
				failErr = fmt.Errorf("fragment %d after %d retransmissions: %w", fragment, retries, domain.ErrRetriesExhausted)
				state = stateFailed
				continue
			}
			retries++
			s.logger.Debug("retransmitting fragment", ports.Int("fragment", fragment), ports.Int("retry", retries))
			state = s.transmit(ctx, session, datagram, &report, &failErr)
		}
	}

	if state == stateFailed {
		s.logger.Error("transfer failed",
			ports.String("session", session.ID.String()),
			ports.Int("delivered", report.FragmentsDelivered),
			ports.Err(failErr))
		report.Finish(domain.OutcomeFailed, failErr)
		return report, failErr
	}

	if err := s.awaitCompletion(ctx, session); err != nil {
		s.logger.Warn("completion acknowledgment missing",
			ports.String("session", session.ID.String()),
			ports.Err(err))
		report.Finish(domain.OutcomeIncomplete, err)
		return report, err
	}

	report.Finish(domain.OutcomeCompleted, nil)
	s.logger.Info("transfer complete",
		ports.String("session", session.ID.String()),
		ports.Int("delivered", report.FragmentsDelivered),
		ports.Int("sent", report.FragmentsSent),
		ports.Int("nacks", report.NackCount),
		ports.Duration("elapsed", report.Duration))
	return report, nil
}

// transmit sends one datagram and returns the next state.
func (s *Sender) transmit(ctx context.Context, session *domain.Session, datagram []byte, report *domain.TransferReport, failErr *error) sendState {
	if err := s.transport.Send(ctx, datagram, session.Peer); err != nil {
		*failErr = fmt.Errorf("send fragment: %w", err)
		return stateFailed
	}
	report.FragmentsSent++
	return stateAwaitAck
}

// awaitCompletion waits for the receiver's final ACK. Replies of other kinds
// (late answers to earlier retransmissions) are skipped.
func (s *Sender) awaitCompletion(ctx context.Context, session *domain.Session) error {
	deadline := time.Now().Add(s.cfg.CompletionTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: no final ACK within %s", domain.ErrCompletionAckMissing, s.cfg.CompletionTimeout)
		}
		f, err := awaitReply(ctx, s.transport, session.Peer, remaining, s.logger)
		if errors.Is(err, ports.ErrReceiveTimeout) {
			return fmt.Errorf("%w: no final ACK within %s", domain.ErrCompletionAckMissing, s.cfg.CompletionTimeout)
		}
		if err != nil {
			return err
		}
		if f.Kind == protocol.KindAck {
			return nil
		}
	}
}
