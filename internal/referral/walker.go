package referral

import (
	"context"

	"github.com/growtradenfts/platform/internal/models"
)

// Walker iterates a user's sponsors from level 1 upward.
type Walker struct {
	ctx     context.Context
	graph   *Graph
	current *models.User
	level   int
	max     int
	visited map[uint64]struct{}
	err     error
	done    bool
}

// WalkUpline returns a Walker over from's sponsors. max bounds the number of
// levels visited; zero or less walks to the root. The walk stops early if a
// user repeats.
func (g *Graph) WalkUpline(ctx context.Context, from *models.User, max int) *Walker {
	w := &Walker{ctx: ctx, graph: g, current: from, max: max, visited: map[uint64]struct{}{}}
	if from == nil {
		w.done = true
	} else {
		w.visited[from.ID] = struct{}{}
	}
	return w
}

// Next advances to the next sponsor. It returns false at the root, at the
// level cap, on a repeated user, or on error.
func (w *Walker) Next() bool {
	if w.done {
		return false
	}
	if w.max > 0 && w.level >= w.max {
		w.done = true
		return false
	}
	if errCtx := w.ctx.Err(); errCtx != nil {
		w.err = errCtx
		w.done = true
		return false
	}
	sponsor, errSponsor := w.graph.Sponsor(w.ctx, w.current)
	if errSponsor != nil {
		w.err = errSponsor
		w.done = true
		return false
	}
	if sponsor == nil {
		w.done = true
		return false
	}
	if _, seen := w.visited[sponsor.ID]; seen {
		w.done = true
		return false
	}
	w.visited[sponsor.ID] = struct{}{}
	w.current = sponsor
	w.level++
	return true
}

// User returns the sponsor at the current level.
func (w *Walker) User() *models.User { return w.current }

// Level returns the current level, starting at 1.
func (w *Walker) Level() int { return w.level }

// Err returns the error that stopped the walk, if any.
func (w *Walker) Err() error { return w.err }
