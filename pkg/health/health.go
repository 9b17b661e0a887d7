// Package health serves the /livez and /readyz probes of the rewards API.
//
// Every registered probe is polled in its own goroutine. A probe turns
// unhealthy after three consecutive failures and healthy again after one
// success, so a single slow database round trip does not flap readiness.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type kind uint8

const (
	liveness kind = iota
	readiness
)

const (
	failureThreshold = 3
	successThreshold = 1
)

type probe struct {
	name    string
	kind    kind
	timeout time.Duration
	check   CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// Owned by the polling goroutine.
	fails, oks int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= failureThreshold && p.healthy.Swap(false) {
			zctx.From(ctx).Warn("Probe failing",
				zap.String("probe", p.name),
				zap.Error(err),
			)
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= successThreshold && !p.healthy.Swap(true) {
		zctx.From(ctx).Info("Probe recovered", zap.String("probe", p.name))
	}
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if e := p.lastErr.Load(); e != nil && *e != nil {
		return (*e).Error(), true
	}
	return "check is unhealthy", true
}

// Health aggregates probes and a manual readiness switch.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe reported by /livez.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.add(name, liveness, timeout, check)
}

// AddReadinessCheck registers a probe reported by /readyz.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.add(name, readiness, timeout, check)
}

func (h *Health) add(name string, k kind, timeout time.Duration, check CheckFunc) {
	p := &probe{name: name, kind: k, timeout: timeout, check: check}
	p.healthy.Store(true)

	h.mu.Lock()
	h.probes = append(h.probes, p)
	h.mu.Unlock()
}

// Start polls every probe at interval until ctx is done or Stop is called.
// Probes run once immediately.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := append([]*probe(nil), h.probes...)
	h.mu.Unlock()

	for _, p := range probes {
		go poll(ctx, p, interval)
	}
}

func poll(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Stop halts polling. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness switch. The server sets it once
// migrations are applied and clears it when shutdown starts.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the switch is on and all readiness probes pass.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(readiness)) == 0
}

func (h *Health) failures(k kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range h.probes {
		if p.kind != k {
			continue
		}
		if msg, failed := p.failure(); failed {
			out[p.name] = msg
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(liveness))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// writeStatus renders {"status":"ok"} or a 503 with the failing probes.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(failures) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")

		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)

		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
