package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

func sampleRoute() model.StopSequence {
	// Start(-1) -> A(2) -> B(5) -> End
	return model.BuildStopSequence(
		station(1, "Start", 21.0, 105.8),
		station(9, "End", 10.8, 106.7),
		[]model.Stop{
			stop(2, "A", 20.0, 105.9, 2, "08:00", "08:10"),
			stop(3, "B", 16.0, 108.2, 5, "15:00", "15:20"),
		},
	)
}

func TestStopGraphIsReachable(t *testing.T) {
	src := &fakeStops{routes: map[uint64]model.StopSequence{7: sampleRoute()}}
	g := NewStopGraph(src, 16, time.Minute)
	ctx := context.Background()

	cases := []struct {
		name     string
		route    uint64
		from, to uint64
		want     bool
	}{
		{"start to B", 7, 1, 3, true},
		{"A to end", 7, 2, 9, true},
		{"B to A", 7, 3, 2, false},
		{"A to A", 7, 2, 2, false},
		{"unknown station", 7, 2, 42, false},
		{"missing route", 8, 1, 9, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.IsReachable(ctx, tc.route, tc.from, tc.to)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("IsReachable(%d,%d)=%v want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestStopGraphStopsOf(t *testing.T) {
	src := &fakeStops{routes: map[uint64]model.StopSequence{7: sampleRoute()}}
	g := NewStopGraph(src, 16, time.Minute)
	ctx := context.Background()

	seq, err := g.StopsOf(ctx, 7)
	if err != nil {
		t.Fatalf("StopsOf: %v", err)
	}
	if len(seq) != 4 || seq[0].Order != model.StartStopOrder || seq[3].Order != model.EndStopOrder {
		t.Fatalf("unexpected sequence: %+v", seq)
	}
	if _, err := g.StopsOf(ctx, 7); err != nil {
		t.Fatalf("StopsOf (cached): %v", err)
	}
	if src.loads != 1 {
		t.Fatalf("expected 1 store load, got %d", src.loads)
	}
	g.Invalidate(7)
	if _, err := g.StopsOf(ctx, 7); err != nil {
		t.Fatalf("StopsOf after invalidate: %v", err)
	}
	if src.loads != 2 {
		t.Fatalf("expected reload after invalidate, loads=%d", src.loads)
	}

	empty, err := g.StopsOf(ctx, 99)
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing route: got %v, %v", empty, err)
	}
}

func TestStopGraphPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	src := &fakeStops{err: map[uint64]error{7: boom}}
	g := NewStopGraph(src, 16, time.Minute)
	if _, err := g.IsReachable(context.Background(), 7, 1, 2); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
