package locator

import (
	"errors"
	"log/slog"
	"time"

	"programfinder/internal/mapview"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
)

var ErrNoSession = errors.New("no such session")

// sessions maps ids to mounted synchronizers. Anything that leaves the LRU is unmounted.
type sessions struct {
	lru *expirable.LRU[string, *mapview.Synchronizer]
}

func newSessions(max int, ttl time.Duration) *sessions {
	return &sessions{
		lru: expirable.NewLRU(max, func(id string, s *mapview.Synchronizer) {
			if err := s.Unmount(); err != nil && !errors.Is(err, mapview.ErrNotMounted) {
				slog.Warn("failed to unmount evicted session", "session", id, "error", err)
				return
			}
			slog.Debug("session closed", "session", id)
		}, ttl),
	}
}

func (s *sessions) add(synch *mapview.Synchronizer) string {
	id := uuid.NewString()
	s.lru.Add(id, synch)
	return id
}

// get returns the session and pushes back its expiry.
func (s *sessions) get(id string) (*mapview.Synchronizer, error) {
	synch, ok := s.lru.Get(id)
	if !ok {
		return nil, ErrNoSession
	}
	s.lru.Add(id, synch)
	return synch, nil
}

func (s *sessions) remove(id string) bool {
	return s.lru.Remove(id)
}

func (s *sessions) len() int {
	return s.lru.Len()
}

func (s *sessions) purge() {
	s.lru.Purge()
}

func (s *sessions) collector() prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "programfinder_sessions_active",
		Help: "Mounted map sessions.",
	}, func() float64 { return float64(s.len()) })
}
