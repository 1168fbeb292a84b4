/*
Package workflow runs the neuron update and NBLAST maintenance pipelines.

External engines (skeletonization, neuron lookup by location, NBLAST scoring)
are reached through the Skeletonizer, Locator and Scorer interfaces.  The
pipeline owns the plumbing around them: template transforms, mirroring, the
local skeleton collection, the archive and spreadsheet bookkeeping.
*/
package workflow

import (
	"context"
	"fmt"

	"github.com/twinj/uuid"

	"github.com/janelia-flyem/neuprep/cache"
	"github.com/janelia-flyem/neuprep/config"
	"github.com/janelia-flyem/neuprep/matrix"
	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/sheets"
	"github.com/janelia-flyem/neuprep/skeleton"
	"github.com/janelia-flyem/neuprep/storage"
	"github.com/janelia-flyem/neuprep/storage/badger"
	"github.com/janelia-flyem/neuprep/transform"
)

// Skeletonizer produces a skeleton for a neuron identifier.  Returned
// skeletons must name their template.
type Skeletonizer interface {
	Skeletonize(ctx context.Context, id neuprep.Identifier) (*skeleton.Skeleton, error)
}

// Locator finds the neurons at the given points.
type Locator interface {
	// Template is the template space Locate expects points in.
	Template() string
	Locate(ctx context.Context, pts []neuprep.Vector3d) (neuprep.Identifiers, error)
}

// Scorer computes directional NBLAST scores with queries as rows and targets
// as columns.
type Scorer interface {
	Score(ctx context.Context, queries, targets skeleton.Collection) (*matrix.Matrix, error)
}

// Deps are the collaborators of a Pipeline.  Skeletonizer, Locator, Scorer
// and Sheets may be nil when the corresponding operations are not used.
type Deps struct {
	Transforms   *transform.Registry
	Archive      *storage.Archive
	Store        *badger.Store
	Skeletonizer Skeletonizer
	Locator      Locator
	Scorer       Scorer
	Sheets       sheets.Client
}

// Pipeline carries configuration and collaborators through each operation.
type Pipeline struct {
	cfg     *config.Config
	deps    Deps
	loader  *cache.Loader[*skeleton.Skeleton]
	workers int
}

// New returns a pipeline.  The transform registry, archive and collection
// store are required.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow requires a configuration")
	}
	if deps.Transforms == nil || deps.Archive == nil || deps.Store == nil {
		return nil, fmt.Errorf("workflow requires transforms, an archive and a collection store")
	}
	p := &Pipeline{cfg: cfg, deps: deps, workers: cfg.NBLAST.Workers}
	if p.workers <= 0 {
		p.workers = config.DefaultWorkers
	}
	p.loader = cache.NewLoader[*skeleton.Skeleton](p.fetchStored, skeleton.Codec{}, cache.Config{
		MaxBytes: cfg.CacheBytes(),
		Workers:  p.workers,
	})
	return p, nil
}

func (p *Pipeline) fetchStored(ctx context.Context, id neuprep.Identifier) (*skeleton.Skeleton, error) {
	return p.deps.Store.Get(id)
}

// Loader returns the on-demand skeleton loader backed by the collection store.
func (p *Pipeline) Loader() *cache.Loader[*skeleton.Skeleton] {
	return p.loader
}

// run tags the log lines of one operation with an id.
type run struct {
	id string
}

func newRun() run {
	return run{id: uuid.NewV4().String()}
}

func (r run) Debugf(format string, args ...interface{}) {
	neuprep.Debugf("[%s] "+format, append([]interface{}{r.id}, args...)...)
}

func (r run) Infof(format string, args ...interface{}) {
	neuprep.Infof("[%s] "+format, append([]interface{}{r.id}, args...)...)
}

func (r run) Warningf(format string, args ...interface{}) {
	neuprep.Warningf("[%s] "+format, append([]interface{}{r.id}, args...)...)
}

func (r run) Errorf(format string, args ...interface{}) {
	neuprep.Errorf("[%s] "+format, append([]interface{}{r.id}, args...)...)
}
