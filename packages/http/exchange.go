package http

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/decode"
	"github.com/abdul-hamid-achik/hitwire/packages/wire"
	"github.com/rs/zerolog"
)

const readChunkSize = 32 * 1024

type signalKind int

const (
	sigHead signalKind = iota
	sigData
	sigEnd
	sigFail
)

// signal is everything the socket reader can tell the owning goroutine.
// A sigFail carries the cause; timeouts and cancellation are produced by the
// owner itself and funnel into the same finish path.
type signal struct {
	kind  signalKind
	head  *wire.Head
	data  []byte
	cause Cause
	phase Phase
	err   error
}

// exchange runs one request/response over one connection. Only the goroutine
// calling run touches tx; the reader goroutine communicates through signals.
type exchange struct {
	tx        *Transaction
	opts      *Options
	transport Transport
	registry  *Registry
	decoder   *decode.Decoder
	logger    zerolog.Logger

	guard   *guard
	body    []byte
	signals chan signal
	resume  chan struct{}
	stop    chan struct{}

	cancelDial  context.CancelFunc
	mu          sync.Mutex
	conn        net.Conn
	released    bool
	releaseOnce sync.Once
	finishOnce  sync.Once
}

func newExchange(tx *Transaction, opts *Options, t Transport, c *Client) *exchange {
	return &exchange{
		tx:        tx,
		opts:      opts,
		transport: t,
		registry:  c.registry,
		decoder:   c.decoder,
		logger:    c.logger,
		guard:     newGuard(opts.Timeout),
		body:      []byte{},
		signals:   make(chan signal),
		resume:    make(chan struct{}),
		stop:      make(chan struct{}),
	}
}

// run dispatches the request and blocks until the exchange terminates. It
// returns either the finalized transaction or, for a followable redirect, the
// next target with a nil transaction. The connection is closed on return in
// both cases.
func (e *exchange) run(ctx context.Context) (*Transaction, string) {
	dialCtx, cancel := context.WithCancel(ctx)
	e.cancelDial = cancel
	defer e.release()

	e.tx.Info.StartTime = time.Now()
	e.guard.armConnect()
	e.logger.Debug().Str("method", e.tx.Method).Str("uri", e.tx.URI).Msg("dispatch")

	go e.read(dialCtx)

	for {
		select {
		case <-ctx.Done():
			return e.finish(CauseAbort, e.guard.phase, ctx.Err()), ""

		case <-e.guard.C():
			return e.finish(CauseTimeout, e.guard.phase, nil), ""

		case s := <-e.signals:
			switch s.kind {
			case sigHead:
				e.guard.stop()
				if e.opts.Follow {
					if target, ok := e.followable(s.head); ok {
						return nil, target
					}
				}
				e.tx.ResponseVersion = s.head.Proto
				e.tx.ResponseCode = s.head.StatusCode
				e.tx.ResponseMessage = s.head.Message
				e.tx.ResponseHeaders = Header(s.head.Header)
				if !e.opts.Download {
					return e.finish("", "", nil), ""
				}
				e.guard.armIdle()
				close(e.resume)

			case sigData:
				e.body = append(e.body, s.data...)
				e.guard.touch()

			case sigEnd:
				return e.finish("", "", nil), ""

			case sigFail:
				return e.finish(s.cause, s.phase, s.err), ""
			}
		}
	}
}

// followable resolves the redirect target of head. Targets on schemes the
// registry cannot serve are not followed.
func (e *exchange) followable(head *wire.Head) (string, bool) {
	target, ok := redirectTarget(e.tx.URI, head.StatusCode, Header(head.Header))
	if !ok {
		return "", false
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "", false
	}
	if _, err := e.registry.Lookup(u.Scheme); err != nil {
		return "", false
	}
	return target, true
}

// finish is the only way a transaction resolves. cause is empty for a
// complete response.
func (e *exchange) finish(cause Cause, phase Phase, err error) *Transaction {
	e.finishOnce.Do(func() {
		e.release()

		if cause != "" && e.tx.Info.Error == nil {
			e.tx.Info.Error = &TransportError{Cause: cause, Phase: phase, Err: err}
		}
		e.tx.Info.StopTime = time.Now()
		e.tx.ResponseBody = e.decoder.Decode(e.body, e.tx.ResponseHeaders.Get("content-encoding"))

		ev := e.logger.Debug().
			Str("uri", e.tx.URI).
			Int("status", e.tx.ResponseCode).
			Int("bytes", len(e.tx.ResponseBody)).
			Dur("duration", e.tx.Info.Duration())
		if cause != "" {
			ev = ev.Str("cause", string(cause)).Str("phase", string(phase)).AnErr("error", err)
		}
		ev.Msg("transaction resolved")
	})
	return e.tx
}

// release stops the timer, cancels a dial in flight and closes the
// connection. Close errors are ignored.
func (e *exchange) release() {
	e.releaseOnce.Do(func() {
		e.guard.stop()
		if e.cancelDial != nil {
			e.cancelDial()
		}
		close(e.stop)

		e.mu.Lock()
		e.released = true
		conn := e.conn
		e.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
}

// attach hands the dialed connection to the exchange, or closes it when the
// exchange already resolved while the dial was in flight.
func (e *exchange) attach(conn net.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		_ = conn.Close()
		return false
	}
	e.conn = conn
	return true
}

// send delivers s unless the exchange has resolved.
func (e *exchange) send(s signal) bool {
	select {
	case e.signals <- s:
		return true
	case <-e.stop:
		return false
	}
}

func (e *exchange) fail(cause Cause, phase Phase, err error) {
	e.send(signal{kind: sigFail, cause: cause, phase: phase, err: err})
}

// read performs all blocking socket I/O for the exchange.
func (e *exchange) read(ctx context.Context) {
	conn, err := e.transport.Dial(ctx, e.opts)
	if err != nil {
		e.fail(CauseError, PhaseRequest, err)
		return
	}
	if !e.attach(conn) {
		return
	}

	err = wire.WriteRequest(conn, &wire.Request{
		Method:  e.opts.Method,
		Target:  e.opts.URL.RequestURI(),
		Version: e.opts.Version,
		Host:    e.opts.URL.Host,
		Header:  e.opts.Headers,
		Body:    e.opts.Body,
	})
	if err != nil {
		e.fail(CauseError, PhaseRequest, err)
		return
	}

	br := bufio.NewReader(conn)
	head, err := wire.ReadHead(br)
	if err != nil {
		e.fail(CauseError, PhaseRequest, err)
		return
	}
	if !e.send(signal{kind: sigHead, head: head}) {
		return
	}

	select {
	case <-e.resume:
	case <-e.stop:
		return
	}

	body, err := wire.BodyReader(br, head, e.opts.Method)
	if err != nil {
		e.fail(CauseError, PhaseResponse, err)
		return
	}
	if body == nil {
		e.send(signal{kind: sigEnd})
		return
	}

	buf := make([]byte, readChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !e.send(signal{kind: sigData, data: chunk}) {
				return
			}
		}
		if err == io.EOF {
			e.send(signal{kind: sigEnd})
			return
		}
		if err != nil {
			cause := CauseError
			if errors.Is(err, io.ErrUnexpectedEOF) {
				cause = CauseAborted
			}
			e.fail(cause, PhaseResponse, err)
			return
		}
	}
}
