package http

import "time"

// guard is the silence watchdog of one exchange. The same timer serves first
// as the connect timer and then as the data-idle timer; both share timeout.
// A zero timeout disables it and C never fires.
type guard struct {
	timeout time.Duration
	timer   *time.Timer
	phase   Phase
}

func newGuard(timeout time.Duration) *guard {
	return &guard{timeout: timeout}
}

// armConnect starts the connect timer at dispatch.
func (g *guard) armConnect() {
	g.arm(PhaseRequest)
}

// armIdle starts the data-idle timer once the response body is being read.
func (g *guard) armIdle() {
	g.arm(PhaseResponse)
}

// touch restarts the current window after a data chunk.
func (g *guard) touch() {
	if g.timer != nil {
		g.arm(g.phase)
	}
}

func (g *guard) arm(phase Phase) {
	g.stop()
	g.phase = phase
	if g.timeout <= 0 {
		return
	}
	g.timer = time.NewTimer(g.timeout)
}

// stop cancels any pending timer. Safe to call repeatedly.
func (g *guard) stop() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// C fires when the current window elapses. It is nil, and so blocks forever
// in a select, while the guard is disarmed.
func (g *guard) C() <-chan time.Time {
	if g.timer == nil {
		return nil
	}
	return g.timer.C
}
