// Package extract drives patterns over a sequence until no pattern adds a
// new match, then resolves single-concept conflicts and consolidates.
package extract

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agi-now/hpat/internal/hierarchy"
	"github.com/agi-now/hpat/internal/logging"
	"github.com/agi-now/hpat/internal/match"
	"github.com/agi-now/hpat/internal/metrics"
	"github.com/agi-now/hpat/internal/sequence"
)

// #region engine
// Engine applies a fixed set of patterns. It keeps no per-run state, so one
// Engine may process independent sequences concurrently.
type Engine struct {
	patterns []Pattern
	h        hierarchy.Provider
	opts     Options
	log      *zap.Logger
}

// NewEngine builds an engine. A nil hierarchy behaves as the empty DAG.
func NewEngine(patterns []Pattern, h hierarchy.Provider, opts Options) *Engine {
	if h == nil {
		h = hierarchy.None()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		patterns: slices.Clone(patterns),
		h:        h,
		opts:     opts,
		log:      log,
	}
}

// Hierarchy returns the provider patterns are evaluated against.
func (e *Engine) Hierarchy() hierarchy.Provider { return e.h }

// #endregion engine

// #region apply-once
// ApplyOnce runs every pattern at every enabled position once and reports
// whether any match was newly stored.
func (e *Engine) ApplyOnce(seq *sequence.Sequence) bool {
	return e.pass(seq) > 0
}

func (e *Engine) pass(seq *sequence.Sequence) int {
	inserted := 0
	for idx := 0; idx < seq.Len(); idx++ {
		if seq.Position(idx).Disabled {
			continue
		}
		for _, p := range e.patterns {
			inside := p.Inside()
			if inside != "" && !e.insideAt(seq, idx, inside) {
				continue
			}
			for _, m := range p.Match(seq, match.NewState(idx), e.h) {
				if inside != "" && !e.nestsIn(seq, m, inside) {
					continue
				}
				if seq.AddMatch(m) {
					inserted++
				}
			}
		}
	}
	return inserted
}

// insideAt reports whether some match covering idx is, or descends from, concept.
func (e *Engine) insideAt(seq *sequence.Sequence, idx int, concept string) bool {
	for _, m := range seq.MatchesAt(idx) {
		if hierarchy.IsA(e.h, m.Concept, concept) {
			return true
		}
	}
	return false
}

// nestsIn reports whether a match of concept has exactly m's span.
func (e *Engine) nestsIn(seq *sequence.Sequence, m *match.Match, concept string) bool {
	for _, other := range seq.MatchesAt(m.Start) {
		if other.Start == m.Start && other.Size == m.Size && hierarchy.IsA(e.h, other.Concept, concept) {
			return true
		}
	}
	return false
}

// #endregion apply-once

// #region apply
// Apply repeats passes until one adds nothing, resolves single concepts and
// consolidates. When MaxPasses passes still inserted, it returns
// ErrNoFixpoint and leaves the sequence unconsolidated.
func (e *Engine) Apply(seq *sequence.Sequence) (Report, error) {
	start := time.Now()
	var rep Report

	for {
		if e.opts.MaxPasses > 0 && rep.Passes >= e.opts.MaxPasses {
			rep.Duration = time.Since(start)
			e.opts.Metrics.Run("no_fixpoint", rep.Passes, rep.Duration.Seconds())
			e.log.Error("pass cap reached before fixpoint",
				zap.Int(logging.FieldMaxPasses, e.opts.MaxPasses),
				zap.Int(logging.FieldInserted, rep.Inserted),
			)
			err := errors.WithDetailf(ErrNoFixpoint, "%d passes inserted %d matches", rep.Passes, rep.Inserted)
			return rep, errors.WithHint(err, "check for patterns that keep producing distinct matches, or raise engine.max_passes")
		}

		n := e.pass(seq)
		rep.Passes++
		rep.Inserted += n
		e.opts.Metrics.Pass(n)
		e.log.Debug("pass complete",
			zap.Int(logging.FieldPass, rep.Passes),
			zap.Int(logging.FieldInserted, n),
		)
		if n == 0 {
			break
		}
	}

	rep.Revoked = e.ResolveSingleConcepts(seq)
	seq.Consolidate()

	rep.Duration = time.Since(start)
	e.opts.Metrics.Run("ok", rep.Passes, rep.Duration.Seconds())
	e.log.Info("fixpoint reached",
		zap.Int(logging.FieldPositions, seq.Len()),
		zap.Int(logging.FieldPass, rep.Passes),
		zap.Int(logging.FieldInserted, rep.Inserted),
		zap.Int(logging.FieldRevoked, rep.Revoked),
		zap.Duration(logging.FieldDuration, rep.Duration),
	)
	return rep, nil
}

// #endregion apply

// #region single-concepts
// ResolveSingleConcepts keeps at most one direct child of each single
// concept per exact span. The survivor has the highest importance (number
// of transitive dependants), then the highest weight, then the earliest
// registration. Losers are revoked with cascade. Single concepts are
// processed in declaration order, so a match shared by two of them can be
// removed by the first. It returns the number of matches revoked.
func (e *Engine) ResolveSingleConcepts(seq *sequence.Sequence) int {
	total := 0
	for _, concept := range e.opts.SingleConcepts {
		children := e.h.Children(concept)
		if len(children) == 0 {
			continue
		}

		groups := map[match.Slot][]*match.Match{}
		var slots []match.Slot
		for _, m := range seq.Matches() {
			if !slices.Contains(children, m.Concept) {
				continue
			}
			if _, ok := groups[m.Slot()]; !ok {
				slots = append(slots, m.Slot())
			}
			groups[m.Slot()] = append(groups[m.Slot()], m)
		}

		for _, slot := range slots {
			live := slices.DeleteFunc(groups[slot], func(m *match.Match) bool {
				_, ok := seq.Lookup(m.ID)
				return !ok
			})
			if len(live) < 2 {
				continue
			}
			winner := e.pickWinner(seq, live)
			for _, m := range live {
				if m.ID == winner.ID {
					continue
				}
				n := seq.Revoke(m.ID, true)
				total += n
				e.log.Info("single concept conflict",
					zap.String(logging.FieldConcept, concept),
					zap.String(logging.FieldMatchID, m.ID),
					zap.Stringer("span", slot),
					zap.String("kept", winner.Concept),
					zap.Int(logging.FieldRevoked, n),
				)
			}
		}
	}
	e.opts.Metrics.Revoke(metrics.ReasonSingleConcept, total)
	return total
}

func (e *Engine) pickWinner(seq *sequence.Sequence, group []*match.Match) *match.Match {
	type ranked struct {
		m          *match.Match
		importance int
		order      uint64
	}
	var best *ranked
	for _, m := range group {
		order, _ := seq.RegistrationOrder(m.ID)
		r := &ranked{m: m, importance: seq.Importance(m.ID), order: order}
		switch {
		case best == nil:
			best = r
		case r.importance != best.importance:
			if r.importance > best.importance {
				best = r
			}
		case r.m.Weight != best.m.Weight:
			if r.m.Weight > best.m.Weight {
				best = r
			}
		case r.order < best.order:
			best = r
		}
	}
	return best.m
}

// #endregion single-concepts

// #region apply-all
// ApplyAll runs Apply over independent sequences with at most workers in
// flight. Reports are returned in input order. The first error, or ctx
// cancellation, stops scheduling of the remaining sequences.
func (e *Engine) ApplyAll(ctx context.Context, seqs []*sequence.Sequence, workers int) ([]Report, error) {
	if workers <= 0 {
		workers = 1
	}
	reports := make([]Report, len(seqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seq := range seqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := e.Apply(seq)
			reports[i] = rep
			if err != nil {
				return errors.Wrapf(err, "sequence %d", i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, ctx.Err()
}

// #endregion apply-all
