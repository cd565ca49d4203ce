package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"

	"github.com/bft-labs/fragship/internal/domain"
	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// Handshaker negotiates session parameters on one transport.
//
// Sender side: IDLE -> AWAIT_HANDSHAKE_ACK -> ESTABLISHED | FAILED.
// Receiver side: LISTENING -> NEGOTIATED | TIMED_OUT.
type Handshaker struct {
	transport ports.Transport
	cfg       EngineConfig
	logger    ports.Logger
}

// NewHandshaker creates a handshaker bound to transport.
func NewHandshaker(transport ports.Transport, cfg EngineConfig, logger ports.Logger) *Handshaker {
	return &Handshaker{transport: transport, cfg: cfg, logger: logger}
}

// Offer sends the handshake to peer and waits for its acknowledgment.
// Silence for HandshakeTimeout fails with domain.ErrHandshakeTimeout and is
// not retried. A negative reply causes the offer to be resent, for as long
// as the peer keeps answering or until ctx ends.
func (h *Handshaker) Offer(ctx context.Context, peer net.Addr, offer protocol.Offer) (*domain.Session, error) {
	if !ValidFragmentSize(offer.FragmentSize) {
		return nil, fmt.Errorf("%w: fragment size %d outside [%d, %d] plus header",
			domain.ErrInvalidConfig, offer.FragmentSize, protocol.MinPayload, protocol.MaxPayload)
	}
	datagram, err := offer.Encode(h.cfg.Polynomial)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	kind := domain.TransferFile
	if offer.Kind == protocol.KindSetMessage {
		kind = domain.TransferText
	}

	for attempt := 1; ; attempt++ {
		h.logger.Debug("sending handshake",
			ports.Stringer("peer", peer),
			ports.String("kind", offer.Kind.String()),
			ports.Int("attempt", attempt))

		if err := h.transport.Send(ctx, datagram, peer); err != nil {
			return nil, fmt.Errorf("send handshake: %w", err)
		}

		f, err := awaitReply(ctx, h.transport, peer, h.cfg.HandshakeTimeout, h.logger)
		if errors.Is(err, ports.ErrReceiveTimeout) {
			return nil, fmt.Errorf("%w: no reply from %s within %s", domain.ErrHandshakeTimeout, peer, h.cfg.HandshakeTimeout)
		}
		if err != nil {
			return nil, fmt.Errorf("await handshake reply: %w", err)
		}
		if f.Kind == protocol.KindAck {
			break
		}
		h.logger.Warn("handshake rejected, resending",
			ports.Stringer("peer", peer),
			ports.String("reply", f.Kind.String()),
			ports.Int("attempt", attempt))
	}

	s := domain.NewSession(peer, kind, offer.FragmentSize, offer.Fragments)
	s.TargetName = offer.FileName
	h.logger.Info("session established",
		ports.String("session", s.ID.String()),
		ports.Stringer("peer", peer),
		ports.String("kind", kind.String()),
		ports.Int("fragment_size", s.FragmentSize),
		ports.Int("fragments", s.TotalFragments))
	return s, nil
}

// Listen waits up to ListenTimeout for a handshake offer from any peer.
//
// A handshake is answered with ACK or RST according to its checksum. A
// damaged offer keeps the receiver listening; an intact one that cannot be
// used fails with domain.ErrMalformedNegotiation, after which Listen may be
// called again. A data fragment outside a session is answered with RST so
// its sender does not count it as delivered. Stray ACK and RST frames get no
// reply.
func (h *Handshaker) Listen(ctx context.Context) (*domain.Session, error) {
	for {
		dg, err := receiveFrom(ctx, h.transport, nil, h.cfg.ListenTimeout, protocol.HandshakeBufferSize, h.logger)
		if errors.Is(err, ports.ErrReceiveTimeout) {
			return nil, fmt.Errorf("%w: no handshake within %s", domain.ErrHandshakeTimeout, h.cfg.ListenTimeout)
		}
		if errors.Is(err, domain.ErrPeerUnreachable) {
			h.logger.Warn("transport reported unreachable peer while listening", ports.Err(err))
			continue
		}
		if err != nil {
			return nil, err
		}

		verdict := h.cfg.Polynomial.VerifyDatagram(dg.Data)
		f := protocol.Decode(dg.Data)
		if verdict == protocol.KindAck && !f.Kind.IsHandshake() {
			h.logger.Debug("non-handshake frame while listening",
				ports.Stringer("from", dg.From),
				ports.String("kind", f.Kind.String()))
			if f.Kind != protocol.KindPush {
				continue
			}
			verdict = protocol.KindReset
		}

		if err := reply(ctx, h.transport, h.cfg.Polynomial, verdict, 0, dg.From); err != nil {
			return nil, fmt.Errorf("reply to handshake: %w", err)
		}
		if verdict != protocol.KindAck {
			h.logger.Debug("no usable handshake, waiting for resend", ports.Stringer("from", dg.From))
			continue
		}
		return h.negotiate(f, dg)
	}
}

func (h *Handshaker) negotiate(f protocol.Frame, dg ports.Datagram) (*domain.Session, error) {
	offer, err := protocol.ParseOffer(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedNegotiation, err)
	}
	if !ValidFragmentSize(offer.FragmentSize) {
		return nil, fmt.Errorf("%w: fragment size %d rejected by policy", domain.ErrMalformedNegotiation, offer.FragmentSize)
	}

	kind := domain.TransferText
	var name string
	if offer.Kind == protocol.KindSet {
		kind = domain.TransferFile
		name = filepath.Base(filepath.Clean("/" + offer.FileName))
		if name == "/" || name == "." || name == ".." {
			return nil, fmt.Errorf("%w: unusable file name %q", domain.ErrMalformedNegotiation, offer.FileName)
		}
	}

	s := domain.NewSession(dg.From, kind, offer.FragmentSize, offer.Fragments)
	s.TargetName = name
	s.ReadBuffer = offer.FragmentSize + len(dg.Data)

	h.logger.Info("handshake accepted",
		ports.String("session", s.ID.String()),
		ports.Stringer("peer", dg.From),
		ports.String("kind", kind.String()),
		ports.Int("fragment_size", s.FragmentSize),
		ports.Int("fragments", s.TotalFragments),
		ports.String("target", name))
	return s, nil
}
