// Package race runs a lap race over checkpoint gates laid along a track.
package race

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rally/internal/logger"
	"github.com/Faultbox/rally/pkg/track"
)

// Race errors.
var (
	ErrNoGates     = errors.New("race: at least one gate is required")
	ErrInvalidLaps = errors.New("race: laps must be at least 1")
	ErrNotFinished = errors.New("race: not finished")
)

// Gate is a checkpoint a car must drive through.
type Gate struct {
	Index    int
	Position mgl32.Vec3
	Heading  mgl32.Vec3
	Radius   float32
}

// NewGates places n gates evenly along the track in world space. Gate 0 is
// the start and finish line.
func NewGates(rt *track.RaceTrack, n int, scale mgl32.Vec3, radius float32) ([]Gate, error) {
	raster, err := rt.Checkpoints(n)
	if err != nil {
		return nil, err
	}
	gates := make([]Gate, n)
	for i, s := range raster.Points {
		h := mulVec(scale, s.Heading)
		if l := h.Len(); l > 0 {
			h = h.Mul(1 / l)
		}
		gates[i] = Gate{
			Index:    i,
			Position: mulVec(scale, s.Position),
			Heading:  h,
			Radius:   radius,
		}
	}
	return gates, nil
}

// Reached reports whether a move from prev to cur passes within the gate
// radius while travelling forward through it.
func (g Gate) Reached(prev, cur mgl32.Vec3) bool {
	move := cur.Sub(prev)
	if move.Dot(g.Heading) < 0 {
		return false
	}
	return segmentDistance(prev, cur, g.Position) <= g.Radius
}

// EventKind classifies race progress.
type EventKind int

const (
	EventCheckpoint EventKind = iota
	EventLap
	EventFinish
)

func (k EventKind) String() string {
	switch k {
	case EventCheckpoint:
		return "checkpoint"
	case EventLap:
		return "lap"
	case EventFinish:
		return "finish"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is emitted when a gate counts toward the race.
type Event struct {
	Kind EventKind
	Gate int
	Lap  int
	Time time.Duration
}

// Race tracks one car through an ordered list of states. Each lap state needs
// every gate in any order. A final state needs gate 0 once more.
type Race struct {
	gates  []Gate
	laps   int
	states [][]int
	passed []map[int]bool
	state  int

	inside  []bool
	prev    mgl32.Vec3
	started bool

	goal []time.Duration
	log  *zap.Logger
}

// New creates a race of laps laps over gates.
func New(gates []Gate, laps int) (*Race, error) {
	if len(gates) == 0 {
		return nil, ErrNoGates
	}
	if laps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLaps, laps)
	}
	all := make([]int, len(gates))
	for i := range all {
		all[i] = i
	}
	r := &Race{
		gates:  gates,
		laps:   laps,
		inside: make([]bool, len(gates)),
		log:    logger.Named("race"),
	}
	for range laps {
		r.states = append(r.states, all)
	}
	r.states = append(r.states, []int{0})
	r.passed = make([]map[int]bool, len(r.states))
	for i := range r.passed {
		r.passed[i] = make(map[int]bool)
	}
	return r, nil
}

// Update moves the car to pos at race time now and returns the events it
// caused. Calls after the race finished return nil.
func (r *Race) Update(pos mgl32.Vec3, now time.Duration) []Event {
	if r.Finished() {
		return nil
	}
	prev := r.prev
	if !r.started {
		prev = pos
		r.started = true
	}
	r.prev = pos

	var events []Event
	for i, g := range r.gates {
		reached := g.Reached(prev, pos)
		entered := reached && !r.inside[i]
		r.inside[i] = pos.Sub(g.Position).Len() <= g.Radius
		if !entered || r.Finished() {
			continue
		}
		if ev, ok := r.pass(i, now); ok {
			events = append(events, ev...)
		}
	}
	return events
}

func (r *Race) pass(gate int, now time.Duration) ([]Event, bool) {
	if !r.wants(gate) {
		return nil, false
	}
	r.passed[r.state][gate] = true
	lap := min(r.state+1, r.laps)
	events := []Event{{Kind: EventCheckpoint, Gate: gate, Lap: lap, Time: now}}
	r.log.Debug("checkpoint passed", zap.Int("gate", gate), zap.Int("lap", lap), zap.Duration("at", now))

	if gate == 0 {
		r.goal = append(r.goal, now)
		if n := len(r.goal); n > 1 {
			lapTime := r.goal[n-1] - r.goal[n-2]
			events = append(events, Event{Kind: EventLap, Gate: 0, Lap: n - 1, Time: now})
			r.log.Info("lap complete", zap.Int("lap", n-1), zap.Duration("time", lapTime))
		}
	}

	if len(r.passed[r.state]) == len(r.states[r.state]) {
		r.state++
		if r.Finished() {
			events = append(events, Event{Kind: EventFinish, Gate: gate, Lap: r.laps, Time: now})
			total, _ := r.Total()
			r.log.Info("race finished", zap.Duration("total", total))
		}
	}
	return events, true
}

func (r *Race) wants(gate int) bool {
	if r.passed[r.state][gate] {
		return false
	}
	for _, g := range r.states[r.state] {
		if g == gate {
			return true
		}
	}
	return false
}

// Finished reports whether every state is complete.
func (r *Race) Finished() bool { return r.state >= len(r.states) }

// State returns the index of the current state. Lap states come first and
// the finish state is last.
func (r *Race) State() int { return r.state }

// Gates returns the race gates.
func (r *Race) Gates() []Gate { return r.gates }

// GoalTimes returns the times the start and finish line counted.
func (r *Race) GoalTimes() []time.Duration {
	out := make([]time.Duration, len(r.goal))
	copy(out, r.goal)
	return out
}

// LapTimes returns the time between consecutive goal line passes.
func (r *Race) LapTimes() []time.Duration {
	if len(r.goal) < 2 {
		return nil
	}
	out := make([]time.Duration, len(r.goal)-1)
	for i := 1; i < len(r.goal); i++ {
		out[i-1] = r.goal[i] - r.goal[i-1]
	}
	return out
}

// Total returns the time from the first to the last goal line pass.
func (r *Race) Total() (time.Duration, error) {
	if !r.Finished() {
		return 0, ErrNotFinished
	}
	return r.goal[len(r.goal)-1] - r.goal[0], nil
}

func segmentDistance(a, b, p mgl32.Vec3) float32 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Len()
	}
	t := mgl32.Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Mul(t)).Sub(p).Len()
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
