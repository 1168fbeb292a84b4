package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janelia-flyem/neuprep/config"
	"github.com/janelia-flyem/neuprep/matrix"
	"github.com/janelia-flyem/neuprep/neuprep"
)

func TestSplitObjectRef(t *testing.T) {
	tests := []struct {
		ref, bucket, key string
		bad              bool
	}{
		{ref: "gs://bucket/nblast/flywire.arrow", bucket: "gs://bucket/nblast", key: "flywire.arrow"},
		{ref: "s3://bucket/x.arrow", bucket: "s3://bucket", key: "x.arrow"},
		{ref: "gs://bucket", bad: true},
	}
	for _, tc := range tests {
		bucket, key, err := splitObjectRef(tc.ref)
		if tc.bad {
			if err == nil {
				t.Errorf("expected error for %q", tc.ref)
			}
			continue
		}
		if err != nil || bucket != tc.bucket || key != tc.key {
			t.Errorf("splitObjectRef(%q) = %q, %q, %v", tc.ref, bucket, key, err)
		}
	}
}

func TestMergeCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ids := neuprep.Identifiers{"1", "2"}
	forward, _ := matrix.FromRows(ids, ids, [][]float64{{1, 0.2}, {0.4, 1}})
	backward, _ := matrix.FromRows(ids, ids, [][]float64{{1, -0.9}, {-0.9, 1}})
	fwdPath, bwdPath := filepath.Join(dir, "fwd.arrow"), filepath.Join(dir, "bwd.arrow")
	archivePath := filepath.Join(dir, "archive.arrow")
	if err := writeMatrix(ctx, fwdPath, forward); err != nil {
		t.Fatal(err)
	}
	if err := writeMatrix(ctx, bwdPath, backward); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	if err := DoCommand(ctx, &cfg, neuprep.Command{"merge", fwdPath, bwdPath, archivePath}); err != nil {
		t.Fatal(err)
	}
	merged, err := readMatrix(ctx, archivePath, false)
	if err != nil {
		t.Fatal(err)
	}
	// (0.2 + -0.9)/2 = -0.35 and (0.4 + -0.9)/2 = -0.25, symmetrized to -0.3.
	if v, ok := merged.Get("1", "2"); !ok || v != -0.3 {
		t.Errorf("expected (1,2) = -0.3, got %g", v)
	}
	if err := DoCommand(ctx, &cfg, neuprep.Command{"merge", fwdPath}); err == nil {
		t.Errorf("expected error with missing arguments")
	}
	if err := DoCommand(ctx, &cfg, neuprep.Command{"merge", filepath.Join(dir, "none"), bwdPath, archivePath}); err == nil {
		t.Errorf("expected error for missing forward scores")
	}
}

func TestUnknownCommand(t *testing.T) {
	cfg := config.Default()
	err := DoCommand(context.Background(), &cfg, neuprep.Command{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Errorf("expected unknown command error, got %v", err)
	}
	if err := DoCommand(context.Background(), &cfg, nil); err == nil {
		t.Errorf("expected blank command error")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Key", "Size"}, [][]string{{"nblast/", ""}, {"a.arrow", "1.2 kB"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "a.arrow") || !strings.Contains(out, "1.2 kB") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Errorf("expected empty table without headers")
	}
}
