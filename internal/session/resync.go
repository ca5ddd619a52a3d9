package session

// DriftThresholdMs is how far a client's locally predicted elapsed time may
// drift from the server's authoritative value before it must reconcile.
// Clients predict optimistically between ticks for smooth UI; the threshold
// is the resync trigger, not every tick.
const DriftThresholdMs = 1000

// ShouldResync reports whether a client at localMs must snap to the server's
// authoritative serverMs.
func ShouldResync(localMs, serverMs int64) bool {
	drift := localMs - serverMs
	if drift < 0 {
		drift = -drift
	}
	return drift > DriftThresholdMs
}
