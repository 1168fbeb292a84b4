package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/neuprep/neuprep"
)

const testConfig = `
[paths]
root = "gs://flyem-nblast/prod"
collection = "./collection"
swc = "swc"

[defaults]
template = "FLYWIRE"
mirror = false
spreadsheet = "1AbCdEf"

[nblast]
archive = "nblast/flywire.arrow"
mirror_suffix = "_m"
reduction = "mean"
clamp_min = -0.25
decimals = 2
workers = 4

[sheets]
credentials = "secrets/service-account.json"
request_range = "todo!A:A"

[cache]
max_mb = 64

[logging]
logfile = "/var/log/neuprep.log"
max_log_size = 100
max_log_age = 7
level = "warning"
`

func TestDecode(t *testing.T) {
	c, err := Decode(testConfig, "/etc/neuprep")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"root", c.Paths.Root, "gs://flyem-nblast/prod"},
		{"collection", c.Paths.Collection, "/etc/neuprep/collection"},
		{"swc", c.Paths.SWC, "/etc/neuprep/swc"},
		{"source template default", c.Defaults.SourceTemplate, DefaultSourceTemplate},
		{"bundles default", c.Paths.Bundles, DefaultBundlePrefix},
		{"template", c.Defaults.Template, "FLYWIRE"},
		{"mirror", c.Defaults.Mirror, false},
		{"spreadsheet", c.Defaults.Spreadsheet, "1AbCdEf"},
		{"clamp", c.NBLAST.ClampMin, -0.25},
		{"decimals", c.NBLAST.Decimals, 2},
		{"symmetrize default", c.NBLAST.Symmetrize, true},
		{"workers", c.NBLAST.Workers, 4},
		{"credentials", c.Sheets.Credentials, "/etc/neuprep/secrets/service-account.json"},
		{"request range", c.Sheets.RequestRange, "todo!A:A"},
		{"done range default", c.Sheets.DoneRange, DefaultDoneRange},
		{"cache bytes", c.CacheBytes(), 64 << 20},
		{"logfile", c.Logging.Logfile, "/var/log/neuprep.log"},
		{"log size", c.Logging.MaxSize, 100},
		{"log level", c.Logging.Level, "warning"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, tc.got)
			}
		})
	}

	opts, err := c.MergeOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Reduce([]float64{1, 2}) != 1.5 || opts.ClampMin != -0.25 || opts.MirrorSuffix != "_m" {
		t.Errorf("unexpected merge options %+v", opts)
	}
}

func TestDecodeDefaults(t *testing.T) {
	c, err := Decode(`[paths]
root = "archive"`, "/data")
	if err != nil {
		t.Fatal(err)
	}
	if c.Paths.Root != "file:///data/archive" {
		t.Errorf("expected local root made absolute, got %q", c.Paths.Root)
	}
	if !c.Defaults.Mirror || c.Defaults.Template != DefaultTemplate || c.NBLAST.Archive != DefaultArchive {
		t.Errorf("defaults not applied: %s", c)
	}
	opts, err := c.MergeOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Reduce([]float64{0.2, 0.7}) != 0.7 || opts.Decimals != 3 || opts.ClampMin != -0.5 {
		t.Errorf("unexpected default merge options %+v", opts)
	}
}

func TestDecodeInvalid(t *testing.T) {
	bad := []string{
		"[nblast]\nreduction = \"median\"",
		"[nblast]\ndecimals = -1",
		"[nblast]\nmirror_suffix = \"\"",
		"[nblast\nbroken",
		"[logging]\nlevel = \"loud\"",
	}
	for _, text := range bad {
		if _, err := Decode(text, "/"); err == nil {
			t.Errorf("expected error for config %q", text)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "neuprep.toml")
	if err := os.WriteFile(filename, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if c.Location() != filename {
		t.Errorf("expected location %q, got %q", filename, c.Location())
	}
	if c.Paths.Collection != filepath.Join(dir, "collection") {
		t.Errorf("expected collection relative to config dir, got %q", c.Paths.Collection)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Errorf("expected error with no config file")
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Errorf("expected error for missing config file")
	}
}

func TestRegistry(t *testing.T) {
	c, err := Decode(`
[[transforms]]
source = "FLYWIRE"
target = "JRC2018F"
matrix = [0.5, 0.0, 0.0, 0.0, 0.5, 0.0, 0.0, 0.0, 0.5]
translation = [10.0, 0.0, 0.0]

[[mirrors]]
template = "JRC2018F"
midplane_x = 313.5
`, "/")
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.Registry()
	if err != nil {
		t.Fatal(err)
	}
	pts, err := r.Points(context.Background(), []neuprep.Vector3d{{1000, 2000, 3000}}, "flywire", "jrc2018f")
	if err != nil {
		t.Fatal(err)
	}
	if pts[0] != (neuprep.Vector3d{510, 1000, 1500}) {
		t.Errorf("unexpected transformed point %v", pts[0])
	}
	if _, err := r.LookupMirror("JRC2018F"); err != nil {
		t.Error(err)
	}
	if _, err := r.Lookup("FLYWIRE_VOXEL", "FLYWIRE"); err != nil {
		t.Errorf("builtin transforms missing: %v", err)
	}

	bad, err := Decode("[[transforms]]\nsource = \"A\"\ntarget = \"B\"\nmatrix = [1.0, 2.0]", "/")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bad.Registry(); err == nil {
		t.Errorf("expected error for short matrix")
	}
}
