package peer

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/config"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

const dataChannelLabel = "assma"

// Signaler delivers offer, answer and ice-candidate payloads to one peer.
// *client.Client satisfies it.
type Signaler interface {
	SendSignal(kind, targetUserID string, payload any) error
}

// Session is one WebRTC peer connection to a remote user, negotiated over
// the signaling relay, carrying a single msgpack data channel.
type Session struct {
	pc       *pion.PeerConnection
	sig      Signaler
	remoteID string
	local    GreetingPayload
	log      *slog.Logger

	mu        sync.Mutex
	dc        *pion.DataChannel
	remoteSet bool
	pending   []pion.ICECandidateInit

	greeting chan GreetingPayload
	messages chan Message
	failed   chan struct{}
	failOnce sync.Once
}

// NewSession prepares a peer connection towards remoteID. Nothing is sent
// until Offer is called or an offer arrives through HandleSignal.
func NewSession(cfg *config.Client, sig Signaler, remoteID string, local GreetingPayload, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	pc, err := NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		pc:       pc,
		sig:      sig,
		remoteID: remoteID,
		local:    local,
		log:      log.With("peer", remoteID),
		greeting: make(chan GreetingPayload, 1),
		messages: make(chan Message, 32),
		failed:   make(chan struct{}),
	}

	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		s.log.Debug("ice state changed", "state", state.String())
		if state == pion.ICEConnectionStateFailed || state == pion.ICEConnectionStateClosed {
			s.failOnce.Do(func() { close(s.failed) })
		}
	})

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		if err := s.sig.SendSignal(signaling.TypeICECandidate, s.remoteID, c.ToJSON()); err != nil {
			s.log.Warn("failed to send ice candidate", "err", err)
		}
	})

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() == dataChannelLabel {
			s.attach(dc)
		}
	})

	return s, nil
}

// NewPeerConnection builds a pion peer connection with the configured STUN
// and TURN servers.
func NewPeerConnection(cfg *config.Client) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: transportPolicy(cfg),
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// Offer opens the data channel and sends an offer to the remote user.
func (s *Session) Offer() error {
	ordered := true
	dc, err := s.pc.CreateDataChannel(dataChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return NewError("create data channel", err)
	}
	s.attach(dc)

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}

	return s.sig.SendSignal(signaling.TypeOffer, s.remoteID, s.pc.LocalDescription())
}

// HandleSignal applies a relayed offer, answer or ice-candidate payload.
func (s *Session) HandleSignal(kind string, payload json.RawMessage) error {
	switch kind {
	case signaling.TypeOffer:
		var offer pion.SessionDescription
		if err := json.Unmarshal(payload, &offer); err != nil {
			return NewError("parse offer", err)
		}
		if err := s.pc.SetRemoteDescription(offer); err != nil {
			return NewError("set remote description", err)
		}
		s.remoteReady()

		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			return NewError("create answer", err)
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			return NewError("set local description", err)
		}
		return s.sig.SendSignal(signaling.TypeAnswer, s.remoteID, s.pc.LocalDescription())

	case signaling.TypeAnswer:
		var answer pion.SessionDescription
		if err := json.Unmarshal(payload, &answer); err != nil {
			return NewError("parse answer", err)
		}
		if err := s.pc.SetRemoteDescription(answer); err != nil {
			return NewError("set remote description", err)
		}
		s.remoteReady()
		return nil

	case signaling.TypeICECandidate:
		var ice pion.ICECandidateInit
		if err := json.Unmarshal(payload, &ice); err != nil {
			return NewError("parse ICE candidate", err)
		}
		s.mu.Lock()
		if !s.remoteSet {
			s.pending = append(s.pending, ice)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
		if err := s.pc.AddICECandidate(ice); err != nil {
			return NewError("add ICE candidate", err)
		}
		return nil

	default:
		return WrapError("handle signal", ErrUnexpectedSignal, kind)
	}
}

// remoteReady flushes candidates that arrived before the remote description.
func (s *Session) remoteReady() {
	s.mu.Lock()
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ice := range pending {
		if err := s.pc.AddICECandidate(ice); err != nil {
			s.log.Warn("failed to add queued ice candidate", "err", err)
		}
	}
}

func (s *Session) attach(dc *pion.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		s.log.Debug("data channel open")
		if err := s.Send(MessageTypeGreeting, s.local); err != nil {
			s.log.Warn("failed to send greeting", "err", err)
		}
	})

	dc.OnMessage(func(raw pion.DataChannelMessage) {
		msg, err := ParseMessage(raw.Data)
		if err != nil {
			s.log.Warn("dropping bad frame", "err", err)
			return
		}
		if msg.Type == MessageTypeGreeting {
			var g GreetingPayload
			if err := msg.DecodePayload(&g); err == nil {
				select {
				case s.greeting <- g:
				default:
				}
			}
			return
		}
		select {
		case s.messages <- *msg:
		default:
			s.log.Warn("message buffer full, dropping", "type", msg.Type)
		}
	})
}

// Send encodes payload as a msgpack frame on the data channel.
func (s *Session) Send(msgType string, payload any) error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()
	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return ErrChannelNotOpen
	}

	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return NewError("create message", err)
	}
	data, err := msg.Encode()
	if err != nil {
		return NewError("marshal message", err)
	}
	return dc.Send(data)
}

// SendChat sends a line of text to the peer.
func (s *Session) SendChat(text string) error {
	return s.Send(MessageTypeChat, ChatPayload{Text: text, SentAt: time.Now().UnixMilli()})
}

// Greeting yields the remote greeting once the channel is up.
func (s *Session) Greeting() <-chan GreetingPayload { return s.greeting }

// Messages yields every non-greeting frame from the peer.
func (s *Session) Messages() <-chan Message { return s.messages }

// Failed is closed when ICE fails or the connection closes.
func (s *Session) Failed() <-chan struct{} { return s.failed }

// Close says goodbye if the channel is open and tears the connection down.
func (s *Session) Close() error {
	_ = s.Send(MessageTypeBye, struct{}{})
	if err := s.pc.Close(); err != nil {
		return NewError("close peer connection", err)
	}
	return nil
}
