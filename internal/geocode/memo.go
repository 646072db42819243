package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"programfinder/internal/cache"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("programfinder/internal/geocode")

var lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "programfinder",
	Subsystem: "geocode",
	Name:      "lookups_total",
	Help:      "Geocode lookups by outcome (memory, cache, upstream, not_found, error).",
}, []string{"outcome"})

// Collectors returns the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{lookups}
}

// StorePrefix namespaces memoized coordinates in the durable cache.
const StorePrefix = "geocode/"

// lookupTimeout bounds one shared upstream lookup, which outlives any single caller.
const lookupTimeout = 30 * time.Second

// Memo remembers successful resolutions keyed by normalized text. Concurrent callers asking
// for the same text share one upstream call. Failures are never remembered.
type Memo struct {
	next    Resolver
	store   cache.Cache
	limiter *rate.Limiter
	group   singleflight.Group
	timeout time.Duration

	mu   sync.RWMutex
	seen map[string]Coordinate
}

var _ Resolver = (*Memo)(nil)

// NewMemo wraps next. store may be nil; ratePerSec <= 0 disables the limiter.
func NewMemo(next Resolver, store cache.Cache, ratePerSec float64) *Memo {
	m := &Memo{
		next:    next,
		store:   store,
		timeout: lookupTimeout,
		seen:    make(map[string]Coordinate),
	}
	if ratePerSec > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(ratePerSec), max(1, int(ratePerSec)))
	}
	return m
}

// Resolve returns as soon as ctx is done. The shared lookup keeps running for the other
// callers waiting on the same text and its result is still remembered.
func (m *Memo) Resolve(ctx context.Context, text string) (Coordinate, error) {
	key := Normalize(text)
	if key == "" {
		lookups.WithLabelValues("not_found").Inc()
		return Coordinate{}, ErrNotFound
	}

	m.mu.RLock()
	c, ok := m.seen[key]
	m.mu.RUnlock()
	if ok {
		lookups.WithLabelValues("memory").Inc()
		return c, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		c, err := m.lookup(lctx, key, text)
		if err != nil {
			return nil, err
		}
		return c, nil
	})

	select {
	case <-ctx.Done():
		lookups.WithLabelValues("error").Inc()
		return Coordinate{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, ErrNotFound) {
				lookups.WithLabelValues("not_found").Inc()
			} else {
				lookups.WithLabelValues("error").Inc()
			}
			return Coordinate{}, res.Err
		}
		return res.Val.(Coordinate), nil
	}
}

func (m *Memo) lookup(ctx context.Context, key, text string) (Coordinate, error) {
	m.mu.RLock()
	c, ok := m.seen[key]
	m.mu.RUnlock()
	if ok {
		lookups.WithLabelValues("memory").Inc()
		return c, nil
	}
	if c, ok := m.fromStore(ctx, key); ok {
		lookups.WithLabelValues("cache").Inc()
		m.remember(key, c)
		return c, nil
	}
	c, err := m.upstream(ctx, text)
	if err != nil {
		return Coordinate{}, err
	}
	lookups.WithLabelValues("upstream").Inc()
	m.remember(key, c)
	m.persist(ctx, key, c)
	return c, nil
}

func (m *Memo) upstream(ctx context.Context, text string) (Coordinate, error) {
	ctx, span := tracer.Start(ctx, "geocode.resolve", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("geocode.query_length", len(text)))

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rate limit wait")
			return Coordinate{}, fmt.Errorf("geocode rate limit: %w", err)
		}
	}

	c, err := m.next.Resolve(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "resolve failed")
		}
		span.SetAttributes(attribute.Bool("geocode.found", false))
		return Coordinate{}, err
	}
	span.SetAttributes(attribute.Bool("geocode.found", true))
	return c, nil
}

func (m *Memo) remember(key string, c Coordinate) {
	m.mu.Lock()
	m.seen[key] = c
	m.mu.Unlock()
}

func storeKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return StorePrefix + hex.EncodeToString(sum[:])
}

func (m *Memo) fromStore(ctx context.Context, key string) (Coordinate, bool) {
	if m.store == nil {
		return Coordinate{}, false
	}
	r, err := m.store.Get(ctx, storeKey(key))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slog.WarnContext(ctx, "geocode cache read failed", "error", err)
		}
		return Coordinate{}, false
	}
	defer func() {
		_ = r.Close()
	}()
	raw, err := io.ReadAll(r)
	if err != nil {
		slog.WarnContext(ctx, "geocode cache read failed", "error", err)
		return Coordinate{}, false
	}
	var c Coordinate
	if err := json.Unmarshal(raw, &c); err != nil {
		slog.WarnContext(ctx, "ignoring corrupt geocode cache entry", "key", storeKey(key), "error", err)
		return Coordinate{}, false
	}
	return c, true
}

func (m *Memo) persist(ctx context.Context, key string, c Coordinate) {
	if m.store == nil {
		return
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	err = m.store.Put(ctx, storeKey(key), string(raw), cache.IfNoneMatch())
	if err != nil && !errors.Is(err, cache.ErrAlreadyExists) {
		slog.WarnContext(ctx, "geocode cache write failed", "error", err)
	}
}

// Invalidate drops the in-process memo. The durable cache is keyed by text only and is kept.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.seen = make(map[string]Coordinate)
	m.mu.Unlock()
}

// Len is the number of remembered texts.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}
