package signaling

import "time"

// newReapTicker returns the channel Run selects on for reaper ticks. With
// reaping disabled the channel is nil and never fires.
func (h *Hub) newReapTicker() (<-chan time.Time, func()) {
	if h.cfg.ReapInterval <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(h.cfg.ReapInterval)
	return t.C, t.Stop
}

// reap deletes rooms that have had no participants for longer than the
// retention period. Rooms with members are never touched.
func (h *Hub) reap(now time.Time) []string {
	ids := h.rooms.SweepIdle(h.cfg.RoomRetention, now)
	for _, id := range ids {
		h.metrics.Inc(metricRoomsReaped)
		h.log.Info("reaped idle room", "room", id)
	}
	if len(ids) > 0 {
		h.log.Debug("reaper pass finished", "reaped", len(ids), "rooms", h.rooms.Len())
	}
	return ids
}
