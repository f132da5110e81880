package signaling

// relay forwards an offer, answer or ice-candidate to exactly one bound
// target. The payload bytes are passed through as received. An unbound
// target drops the message without telling the sender.
func (h *Hub) relay(cmd signalCmd) {
	c := cmd.client
	if !c.Joined() {
		h.send(c, TypeError, ErrorPayload{Message: ErrNotJoined.Error()})
		return
	}

	target, ok := h.conns.Resolve(cmd.target)
	if !ok {
		h.metrics.Inc(metricRelayUnreachable)
		c.log.Debug("relay dropped", "err", ErrTargetUnreachable, "type", cmd.kind, "from", c.UserID, "to", cmd.target)
		return
	}

	msg := &Message{
		Type:      cmd.kind,
		SenderID:  c.UserID,
		Payload:   cmd.payload,
		Timestamp: h.now().UnixMilli(),
	}
	if cmd.kind == TypeOffer {
		msg.SenderName = c.UserName
	}

	if target.Conn.deliver(msg) {
		h.metrics.Inc(metricRelayed)
	}
}
