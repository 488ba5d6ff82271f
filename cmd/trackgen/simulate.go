package main

import (
	"time"

	"github.com/Faultbox/rally/internal/config"
	"github.com/Faultbox/rally/internal/level"
	"github.com/Faultbox/rally/internal/race"
	"github.com/Faultbox/rally/pkg/surface"
)

type result struct {
	Finished   bool
	Laps       []time.Duration
	Total      time.Duration
	Ticks      int
	Recoveries int
	OffTrack   int
}

// simulate drives the ghost around the level at a fixed tick rate, feeding
// each frame through a surface tracker and the race gates.
func simulate(lvl *level.Level, cfg config.TrackerConfig) (result, error) {
	left, right := lvl.Mesh.Ribbon()
	radius := left[0].Sub(right[0]).Len() / 2
	gates, err := race.NewGates(lvl.Track, cfg.Checkpoints, lvl.Scale, radius)
	if err != nil {
		return result{}, err
	}
	r, err := race.New(gates, cfg.Laps)
	if err != nil {
		return result{}, err
	}

	var opts []surface.Option
	if cfg.LinearScan {
		opts = append(opts, surface.WithLinearScan())
	}
	tracker := surface.NewTracker(lvl.Mesh, opts...)
	ghost := surface.NewGhost(lvl.Track.Curve, lvl.Mesh, lvl.Scale, cfg.GhostLap)

	var res result
	tick := time.Second / time.Duration(cfg.TickRate)
	limit := time.Duration(cfg.Laps+1) * cfg.GhostLap
	for now := time.Duration(0); now <= limit && !r.Finished(); now += tick {
		f := ghost.Frame(now)
		if !f.OnTrack {
			res.OffTrack++
		}
		body := f.Body
		if tracker.Update(&body) == surface.Recovering {
			res.Recoveries++
		}
		r.Update(body.Position, now)
		res.Ticks++
	}

	res.Finished = r.Finished()
	res.Laps = r.LapTimes()
	if res.Finished {
		res.Total, _ = r.Total()
	}
	return res, nil
}
