package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/neuprep/config"
	"github.com/janelia-flyem/neuprep/matrix"
	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/request"
	"github.com/janelia-flyem/neuprep/sheets"
	"github.com/janelia-flyem/neuprep/storage"
	"github.com/janelia-flyem/neuprep/storage/badger"
	"github.com/janelia-flyem/neuprep/workflow"
)

func doVersion() error {
	fmt.Printf("neuprep %s (%s)\n", neuprep.Version, neuprep.GitVersion)
	var rows [][]string
	for _, e := range storage.Engines() {
		rows = append(rows, []string{e.GetName(), e.GetSemVer().String(), e.GetDescription()})
	}
	fmt.Println(renderTable([]string{"Engine", "Version", "Description"}, rows, nil))
	return nil
}

// splitObjectRef splits a blob reference into the bucket part and the object
// key, e.g. "gs://bucket/nblast/x.arrow" into "gs://bucket/nblast" and "x.arrow".
func splitObjectRef(ref string) (bucketRef, key string, err error) {
	i := strings.LastIndex(ref, "/")
	if i < 0 || i <= strings.Index(ref, "://")+2 {
		return "", "", fmt.Errorf("blob reference %q does not name an object", ref)
	}
	return ref[:i], ref[i+1:], nil
}

func readMatrix(ctx context.Context, ref string, allowMissing bool) (*matrix.Matrix, error) {
	if strings.Contains(ref, "://") {
		bucketRef, key, err := splitObjectRef(ref)
		if err != nil {
			return nil, err
		}
		a, err := storage.OpenArchive(ctx, bucketRef)
		if err != nil {
			return nil, err
		}
		defer a.Close()
		if !allowMissing {
			if ok, err := a.Exists(ctx, key); err != nil {
				return nil, err
			} else if !ok {
				return nil, fmt.Errorf("no matrix at %q", ref)
			}
		}
		return a.GetMatrix(ctx, key)
	}
	f, err := os.Open(ref)
	if os.IsNotExist(err) && allowMissing {
		neuprep.Infof("No matrix at %s, starting empty\n", ref)
		return matrix.Empty(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return matrix.ReadArrow(f)
}

func writeMatrix(ctx context.Context, ref string, m *matrix.Matrix) error {
	if strings.Contains(ref, "://") {
		bucketRef, key, err := splitObjectRef(ref)
		if err != nil {
			return err
		}
		a, err := storage.OpenArchive(ctx, bucketRef)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.PutMatrix(ctx, key, m)
	}
	f, err := os.Create(ref)
	if err != nil {
		return err
	}
	if err := matrix.WriteArrow(f, m, matrix.WithZstd()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func doMerge(ctx context.Context, cfg *config.Config, cmd neuprep.Command) error {
	var fwdRef, bwdRef, archiveRef, outRef string
	cmd.CommandArgs(&fwdRef, &bwdRef, &archiveRef, &outRef)
	if archiveRef == "" {
		return fmt.Errorf("merge needs forward, backward and archive matrices")
	}
	if outRef == "" {
		outRef = archiveRef
	}
	opts, err := cfg.MergeOptions()
	if err != nil {
		return err
	}
	forward, err := readMatrix(ctx, fwdRef, false)
	if err != nil {
		return fmt.Errorf("forward scores: %v", err)
	}
	backward, err := readMatrix(ctx, bwdRef, false)
	if err != nil {
		return fmt.Errorf("backward scores: %v", err)
	}
	archive, err := readMatrix(ctx, archiveRef, true)
	if err != nil {
		return fmt.Errorf("archive: %v", err)
	}
	res, err := matrix.Merge(forward, backward, archive, opts)
	if err != nil {
		return err
	}
	if err := writeMatrix(ctx, outRef, res.Merged); err != nil {
		return err
	}
	rows := [][]string{
		{"forward", forward.String()},
		{"backward", backward.String()},
		{"archive", archive.String()},
		{"fresh", res.Fresh.String()},
		{"merged", res.Merged.String()},
		{"collisions", strconv.Itoa(len(res.Collisions))},
	}
	fmt.Println(renderTable([]string{"Matrix", "Shape"}, rows, nil))
	fmt.Printf("Wrote merged matrix to %s\n", outRef)
	return nil
}

func doList(ctx context.Context, cfg *config.Config, cmd neuprep.Command) error {
	var prefix string
	cmd.CommandArgs(&prefix)
	a, err := storage.OpenArchive(ctx, cfg.Paths.Root)
	if err != nil {
		return err
	}
	defer a.Close()
	objs, err := a.List(ctx, prefix)
	if err != nil {
		return err
	}
	rows := make([][]string, len(objs))
	for i, obj := range objs {
		if obj.IsDir {
			rows[i] = []string{obj.Key, "", ""}
			continue
		}
		rows[i] = []string{obj.Key, humanize.Bytes(uint64(obj.Size)), humanize.Time(obj.ModTime)}
	}
	fmt.Println(renderTable([]string{"Key", "Size", "Modified"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	return nil
}

// openPipeline connects the configured archive, collection store and
// engines.  The returned function releases them.
func openPipeline(ctx context.Context, cfg *config.Config, sheetsClient sheets.Client) (*workflow.Pipeline, func(), error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, nil, err
	}
	archive, err := storage.OpenArchive(ctx, cfg.Paths.Root)
	if err != nil {
		return nil, nil, err
	}
	store, err := badger.Open(badger.Options{Path: cfg.Paths.Collection})
	if err != nil {
		archive.Close()
		return nil, nil, err
	}
	closeAll := func() {
		store.Close()
		archive.Close()
	}
	deps := workflow.Deps{
		Transforms: registry,
		Archive:    archive,
		Store:      store,
		Sheets:     sheetsClient,
	}
	if cfg.Paths.SWC != "" {
		deps.Skeletonizer = workflow.SWCDirectory{Dir: cfg.Paths.SWC, Template: cfg.Defaults.SourceTemplate}
	}
	if cfg.NBLAST.Scores != "" {
		scores, err := archive.GetMatrix(ctx, cfg.NBLAST.Scores)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		deps.Scorer = workflow.MatrixScorer{Scores: scores}
	}
	p, err := workflow.New(cfg, deps)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return p, closeAll, nil
}

func readRequest(cmd neuprep.Command) (request.Request, error) {
	var filename string
	cmd.CommandArgs(&filename)
	var data []byte
	var err error
	switch {
	case *useStdin || filename == "-":
		data, err = io.ReadAll(os.Stdin)
	case filename != "":
		data, err = os.ReadFile(filename)
	default:
		return request.Request{}, fmt.Errorf("update needs a request file or -stdin")
	}
	if err != nil {
		return request.Request{}, fmt.Errorf("error reading request: %v", err)
	}
	return request.Decode(data)
}

func doUpdate(ctx context.Context, cfg *config.Config, cmd neuprep.Command) error {
	req, err := readRequest(cmd)
	if err != nil {
		return err
	}
	p, closeAll, err := openPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer closeAll()
	res, err := p.UpdateNeurons(ctx, req)
	if err != nil {
		return err
	}
	printUpdate(res)
	return nil
}

func printUpdate(res *workflow.UpdateResult) {
	rows := [][]string{
		{"run", res.RunID},
		{"stored", strconv.Itoa(len(res.Stored))},
		{"added", strconv.Itoa(res.Added)},
		{"replaced", strconv.Itoa(res.Replaced)},
		{"failed", strconv.Itoa(len(res.Failed))},
		{"bundle", res.Bundle},
	}
	fmt.Println(renderTable([]string{"Update", ""}, rows, nil))
	for id, err := range res.Failed {
		fmt.Printf("  %s: %v\n", id, err)
	}
}

func doNBLAST(ctx context.Context, cfg *config.Config, cmd neuprep.Command) error {
	var first string
	overflow := cmd.CommandArgs(&first)
	if first == "" {
		return fmt.Errorf("nblast needs at least one neuron identifier")
	}
	ids := neuprep.ParseIdentifiers(append([]string{first}, overflow...))
	modeName, _ := cmd.Parameter("mode")
	mode, err := workflow.ParseMode(modeName)
	if err != nil {
		return err
	}
	p, closeAll, err := openPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer closeAll()
	res, err := p.UpdateNBLAST(ctx, ids, mode)
	if err != nil {
		return err
	}
	rows := [][]string{
		{"run", res.RunID},
		{"mode", mode.String()},
		{"queries", strconv.Itoa(res.Queries)},
		{"targets", strconv.Itoa(res.Targets)},
		{"fresh", res.Fresh.String()},
		{"archive", res.Archive.String()},
		{"collisions", strconv.Itoa(len(res.Collisions))},
	}
	fmt.Println(renderTable([]string{"NBLAST", ""}, rows, nil))
	return nil
}

func doSync(ctx context.Context, cfg *config.Config) error {
	client, err := sheets.NewGoogleClient(ctx, cfg.Sheets.Credentials, cfg.Defaults.Spreadsheet)
	if err != nil {
		return err
	}
	p, closeAll, err := openPipeline(ctx, cfg, sheets.Throttle(client, sheets.DefaultRequestsPerSecond, 5))
	if err != nil {
		return err
	}
	defer closeAll()
	res, err := p.SyncRequests(ctx)
	if err != nil {
		return err
	}
	if res.Update == nil {
		fmt.Println("No pending requests.")
		return nil
	}
	printUpdate(res.Update)
	return nil
}
