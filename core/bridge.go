package core

// Bridge serializes the foreground control loop and the three interrupt
// sources onto one exclusively-owned controller. Each entry point masks
// all interrupts for its whole duration (a no-op under host Go, real
// masking under TinyGo), so no two bodies ever interleave and the
// controller needs no further locking.
type Bridge struct {
	ctrl *Controller
}

// NewBridge wraps a controller. The controller must not be touched except
// through the returned bridge.
func NewBridge(ctrl *Controller) *Bridge {
	return &Bridge{ctrl: ctrl}
}

// Controller exposes read-only state accessors. Callers outside an
// interrupt context must not mutate through it.
func (b *Bridge) Controller() *Controller {
	return b.ctrl
}

// HandleTick runs one control-loop iteration under interrupt masking.
// Called repeatedly from the foreground loop.
func (b *Bridge) HandleTick() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return b.logged("tick", b.ctrl.Tick())
}

// HandleEncoderEdge services a phase-A edge of the dial encoder.
func (b *Bridge) HandleEncoderEdge() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return b.logged("encoder", b.ctrl.HandleEncoderEdge())
}

// HandleHomeEdge services a home-switch edge.
func (b *Bridge) HandleHomeEdge() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return b.logged("home", b.ctrl.HandleHomeEdge())
}

// HandleLimitEdge services a limit-switch edge.
func (b *Bridge) HandleLimitEdge() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return b.logged("limit", b.ctrl.HandleLimitEdge())
}

// StatusLine snapshots the controller's telemetry line under masking.
func (b *Bridge) StatusLine() string {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return b.ctrl.StatusLine()
}

// logged reports a fault through the debug writer. A skipped motor move is
// safe to retry on the next tick, so callers may ignore the returned error
// and keep the loop running.
func (b *Bridge) logged(op string, err error) error {
	if err != nil {
		DebugPrintln("fault in " + op + ": " + err.Error())
	}
	return err
}
