package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/neuprep/matrix"
	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

// Mode selects the targets queries are scored against.
type Mode uint8

const (
	// Cross scores queries against the whole collection.
	Cross Mode = iota

	// Self scores queries only against each other.
	Self
)

func (m Mode) String() string {
	switch m {
	case Cross:
		return "cross"
	case Self:
		return "self"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode returns the mode named "cross" or "self".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cross":
		return Cross, nil
	case "self":
		return Self, nil
	default:
		return Cross, fmt.Errorf("unknown NBLAST mode %q, must be cross or self", s)
	}
}

// NBLASTResult reports an UpdateNBLAST run.
type NBLASTResult struct {
	RunID   string
	Queries int
	Targets int

	// Fresh is the merged update before it was folded into the archive.
	Fresh *matrix.Matrix

	// Archive is the stored matrix after the update.
	Archive *matrix.Matrix

	Collisions []matrix.IdentifierCollision
}

// withMirrors adds the stored mirrored variant of each identifier.
func (p *Pipeline) withMirrors(ids neuprep.Identifiers) (neuprep.Identifiers, error) {
	suffix := p.cfg.NBLAST.MirrorSuffix
	out := make(neuprep.Identifiers, 0, 2*len(ids))
	for _, id := range ids.Unique() {
		out = append(out, id)
		if id.IsMirrored(suffix) {
			continue
		}
		mid := id.Mirror(suffix)
		found, err := p.deps.Store.Exists(mid)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, mid)
		}
	}
	return out.Unique(), nil
}

// loadCollection reads skeletons through the loader, which fetches uncached
// ones in parallel.
func (p *Pipeline) loadCollection(ctx context.Context, ids neuprep.Identifiers) (skeleton.Collection, error) {
	recs, err := p.loader.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return skeleton.Collection(recs), nil
}

// UpdateNBLAST scores the stored skeletons for ids in both directions, merges
// the scores into the archive matrix and stores the result.  Nothing is
// stored if scoring or merging fails.
func (p *Pipeline) UpdateNBLAST(ctx context.Context, ids neuprep.Identifiers, mode Mode) (*NBLASTResult, error) {
	if p.deps.Scorer == nil {
		return nil, fmt.Errorf("no NBLAST scorer configured")
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no neurons given for NBLAST update")
	}
	r := newRun()
	timedLog := neuprep.NewRunLog(r.id)

	queryIDs, err := p.withMirrors(ids)
	if err != nil {
		return nil, err
	}
	queries, err := p.loadCollection(ctx, queryIDs)
	if err != nil {
		return nil, fmt.Errorf("loading query skeletons: %v", err)
	}
	var targets skeleton.Collection
	switch mode {
	case Cross:
		targetIDs, err := p.deps.Store.IDs()
		if err != nil {
			return nil, err
		}
		if targets, err = p.loadCollection(ctx, targetIDs); err != nil {
			return nil, fmt.Errorf("loading target skeletons: %v", err)
		}
	case Self:
		targets = queries
	default:
		return nil, fmt.Errorf("unknown NBLAST mode %s", mode)
	}
	r.Infof("Scoring %d queries against %d targets (%s)\n", len(queries), len(targets), mode)

	var forward, backward *matrix.Matrix
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		forward, err = p.deps.Scorer.Score(gctx, queries, targets)
		return err
	})
	g.Go(func() (err error) {
		backward, err = p.deps.Scorer.Score(gctx, targets, queries)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("NBLAST scoring: %v", err)
	}

	opts, err := p.cfg.MergeOptions()
	if err != nil {
		return nil, err
	}
	archive, err := p.deps.Archive.GetMatrix(ctx, p.cfg.NBLAST.Archive)
	if err != nil {
		return nil, err
	}
	merged, err := matrix.Merge(forward, backward, archive, opts)
	if err != nil {
		r.Errorf("Not updating %q: %v\n", p.cfg.NBLAST.Archive, err)
		return nil, err
	}
	r.Infof("Merged matrix is %s (~%s in memory)\n", merged.Merged, humanize.Bytes(uint64(size.Of(merged.Merged))))
	if err := p.deps.Archive.PutMatrix(ctx, p.cfg.NBLAST.Archive, merged.Merged); err != nil {
		return nil, err
	}
	timedLog.Infof("Updated NBLAST archive %q with %d queries", p.cfg.NBLAST.Archive, len(queries))
	return &NBLASTResult{
		RunID:      r.id,
		Queries:    len(queries),
		Targets:    len(targets),
		Fresh:      merged.Fresh,
		Archive:    merged.Merged,
		Collisions: merged.Collisions,
	}, nil
}
