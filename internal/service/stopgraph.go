package service

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// StopSource loads a route's full stop sequence from the store.
type StopSource interface {
	StopsOf(ctx context.Context, routeID uint64) (model.StopSequence, error)
}

// StopGraph answers topology questions about routes.  Sequences are
// cached per route for a short TTL; they are reference data and carry no
// seat counts.
type StopGraph struct {
	src   StopSource
	cache gcache.Cache
}

// NewStopGraph wraps src with an LRU of size entries.  A non-positive
// ttl disables expiry.
func NewStopGraph(src StopSource, size int, ttl time.Duration) *StopGraph {
	if size < 1 {
		size = 1
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &StopGraph{src: src, cache: b.Build()}
}

// StopsOf returns the stop sequence of a route ordered by stop order,
// including the synthetic start and end entries.  A missing route yields
// an empty sequence and a nil error.
func (g *StopGraph) StopsOf(ctx context.Context, routeID uint64) (model.StopSequence, error) {
	if v, err := g.cache.Get(routeID); err == nil {
		if seq, ok := v.(model.StopSequence); ok {
			return seq, nil
		}
	}
	seq, err := g.src.StopsOf(ctx, routeID)
	if errors.Is(err, repository.ErrRouteNotFound) {
		return model.StopSequence{}, nil
	}
	if err != nil {
		return nil, err
	}
	_ = g.cache.Set(routeID, seq)
	return seq, nil
}

// IsReachable reports whether a traveler can board at from and alight at
// to on the route.
func (g *StopGraph) IsReachable(ctx context.Context, routeID, from, to uint64) (bool, error) {
	seq, err := g.StopsOf(ctx, routeID)
	if err != nil {
		return false, err
	}
	_, _, ok := seq.Reachable(from, to)
	return ok, nil
}

// Invalidate drops a cached route, e.g. after its stops were edited.
func (g *StopGraph) Invalidate(routeID uint64) {
	g.cache.Remove(routeID)
}
