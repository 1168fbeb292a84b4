package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/request"
	"github.com/janelia-flyem/neuprep/skeleton"
)

// UpdateResult reports what an UpdateNeurons run stored.
type UpdateResult struct {
	RunID string

	// Stored holds every identifier written to the collection, mirrored
	// variants included.
	Stored neuprep.Identifiers

	// Failed maps requested identifiers to the reason they were not stored.
	Failed map[neuprep.Identifier]error

	Added    int
	Replaced int

	// Bundle is the archive key of the uploaded skeleton bundle.
	Bundle string
}

// UpdateNeurons resolves the request to skeletons, transforms them into the
// default template, adds mirrored variants if mirroring is on, merges them
// into the collection and uploads them as a bundle.  Identifiers that cannot
// be skeletonized or transformed are reported in the result and skipped.
func (p *Pipeline) UpdateNeurons(ctx context.Context, req request.Request) (*UpdateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r := newRun()
	timedLog := neuprep.NewRunLog(r.id)
	res := &UpdateResult{RunID: r.id, Failed: make(map[neuprep.Identifier]error)}

	var skels skeleton.Collection
	switch req.Kind {
	case request.ShapeIdentifierList:
		skels = p.skeletonize(ctx, r, req.IDs, res.Failed)
	case request.CoordinateList:
		ids, err := p.locate(ctx, req)
		if err != nil {
			return nil, err
		}
		r.Infof("Located %d neurons from %d points\n", len(ids), len(req.Points))
		skels = p.skeletonize(ctx, r, ids, res.Failed)
	case request.NeuronCollection:
		skels = req.Neurons
	default:
		return nil, fmt.Errorf("unhandled request kind %s", req.Kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updates := p.prepare(ctx, r, skels, req.MirrorOr(p.cfg.Defaults.Mirror), res.Failed)
	if len(updates) == 0 {
		r.Warningf("Nothing to store for %s\n", req)
		return res, nil
	}

	existing, _, err := p.deps.Store.Load(updates.IDs())
	if err != nil {
		return nil, err
	}
	res.Added, res.Replaced = existing.Merge(updates, true)
	if err := p.deps.Store.PutCollection(updates); err != nil {
		return nil, err
	}
	res.Stored = updates.IDs()
	p.loader.Evict(res.Stored...)

	res.Bundle = p.cfg.Paths.Bundles + r.id + ".bundle"
	if err := p.deps.Archive.PutBundle(ctx, res.Bundle, updates); err != nil {
		return nil, err
	}
	timedLog.Infof("Stored %d skeletons (%d new, %d replaced, %d failed) for %s",
		len(res.Stored), res.Added, res.Replaced, len(res.Failed), req)
	return res, nil
}

func (p *Pipeline) locate(ctx context.Context, req request.Request) (neuprep.Identifiers, error) {
	if p.deps.Locator == nil {
		return nil, fmt.Errorf("no neuron locator configured for coordinate requests")
	}
	pts, err := p.deps.Transforms.Points(ctx, req.Points, req.Template, p.deps.Locator.Template())
	if err != nil {
		return nil, err
	}
	ids, err := p.deps.Locator.Locate(ctx, pts)
	if err != nil {
		return nil, fmt.Errorf("locating neurons: %v", err)
	}
	return ids.Unique(), nil
}

// skeletonize fetches skeletons for ids with bounded parallelism.  Per-id
// failures are recorded and do not stop the others.
func (p *Pipeline) skeletonize(ctx context.Context, r run, ids neuprep.Identifiers, failed map[neuprep.Identifier]error) skeleton.Collection {
	out := skeleton.NewCollection()
	if p.deps.Skeletonizer == nil {
		for _, id := range ids {
			failed[id] = fmt.Errorf("no skeletonizer configured")
		}
		return out
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, id := range ids.Unique() {
		id := id
		g.Go(func() error {
			s, err := p.deps.Skeletonizer.Skeletonize(gctx, id)
			if err == nil {
				err = s.Validate()
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.Warningf("Unable to skeletonize %s: %v\n", id, err)
				failed[id] = err
				return nil
			}
			if s.ID != id {
				s = s.Clone()
				s.ID = id
			}
			out[id] = s
			return nil
		})
	}
	g.Wait()
	r.Debugf("Skeletonized %d of %d neurons\n", len(out), len(ids))
	return out
}

// prepare moves skeletons into the default template and adds mirrored
// variants.  Skeletons that fail are recorded under their identifier.
func (p *Pipeline) prepare(ctx context.Context, r run, skels skeleton.Collection, mirror bool, failed map[neuprep.Identifier]error) skeleton.Collection {
	template := p.cfg.Defaults.Template
	suffix := p.cfg.NBLAST.MirrorSuffix
	out := skeleton.NewCollection()
	for _, s := range skels.Sorted() {
		t, err := p.deps.Transforms.Skeleton(ctx, s, template)
		if err != nil {
			r.Warningf("Unable to transform %s: %v\n", s, err)
			failed[s.ID] = err
			continue
		}
		out[t.ID] = t
		if !mirror || t.ID.IsMirrored(suffix) {
			continue
		}
		m, err := p.deps.Transforms.MirrorSkeleton(ctx, t, suffix)
		if err != nil {
			r.Warningf("Unable to mirror %s: %v\n", t, err)
			failed[s.ID] = err
			delete(out, t.ID)
			continue
		}
		out[m.ID] = m
	}
	return out
}

// failedIDs returns the failed identifiers in sorted order.
func (res *UpdateResult) failedIDs() neuprep.Identifiers {
	ids := make(neuprep.Identifiers, 0, len(res.Failed))
	for id := range res.Failed {
		ids = append(ids, id)
	}
	sort.Sort(ids)
	return ids
}
