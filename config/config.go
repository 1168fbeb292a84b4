/*
Package config holds the TOML configuration that is passed explicitly to the
update and NBLAST operations.
*/
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/neuprep/matrix"
	"github.com/janelia-flyem/neuprep/neuprep"
)

const (
	DefaultTemplate       = "JRC2018F"
	DefaultSourceTemplate = "FLYWIRE"
	DefaultArchive        = "nblast/flywire.arrow"
	DefaultRequestRange   = "requests!A:A"
	DefaultDoneRange      = "processed!A:C"
	DefaultCacheMB        = 256
	DefaultWorkers        = 8
	DefaultBundlePrefix   = "skeletons/"
	DefaultCollectionDir  = "collection"
)

type Config struct {
	Paths    pathsConfig
	Defaults defaultsConfig
	NBLAST   nblastConfig `toml:"nblast"`
	Sheets   sheetsConfig
	Cache    cacheConfig
	Logging  neuprep.LogConfig

	Transforms []transformConfig
	Mirrors    []mirrorConfig

	location string
}

type pathsConfig struct {
	// Root is a bucket reference for the archive, e.g. "gs://bucket/prefix".
	Root string

	// Collection is the directory of the local skeleton store.
	Collection string

	// Bundles is the archive prefix for uploaded skeleton bundles.
	Bundles string

	// SWC is a directory of "<id>.swc" files produced by the skeletonization
	// engine.
	SWC string
}

type defaultsConfig struct {
	Template string

	// SourceTemplate is assumed for skeletons that don't name a template.
	SourceTemplate string `toml:"source_template"`

	Mirror      bool
	Spreadsheet string
}

type nblastConfig struct {
	Archive string

	// Scores is the archive key of raw directional scores written by the
	// NBLAST engine.
	Scores string

	MirrorSuffix string `toml:"mirror_suffix"`
	Reduction    string
	ClampMin     float64 `toml:"clamp_min"`
	Decimals     int
	Symmetrize   bool
	Workers      int
}

type sheetsConfig struct {
	Credentials  string
	RequestRange string `toml:"request_range"`
	DoneRange    string `toml:"done_range"`
}

type cacheConfig struct {
	MaxMB int `toml:"max_mb"`
}

// Default returns the configuration used for settings absent from a file.
func Default() Config {
	opts := matrix.DefaultMergeOptions()
	return Config{
		Paths: pathsConfig{
			Root:       "mem://",
			Collection: DefaultCollectionDir,
			Bundles:    DefaultBundlePrefix,
		},
		Defaults: defaultsConfig{
			Template:       DefaultTemplate,
			SourceTemplate: DefaultSourceTemplate,
			Mirror:         true,
		},
		NBLAST: nblastConfig{
			Archive:      DefaultArchive,
			MirrorSuffix: opts.MirrorSuffix,
			Reduction:    "max",
			ClampMin:     opts.ClampMin,
			Decimals:     opts.Decimals,
			Symmetrize:   opts.Symmetrize,
			Workers:      DefaultWorkers,
		},
		Sheets: sheetsConfig{
			RequestRange: DefaultRequestRange,
			DoneRange:    DefaultDoneRange,
		},
		Cache: cacheConfig{MaxMB: DefaultCacheMB},
	}
}

// LoadConfig loads configuration from a TOML file.  Relative paths are taken
// relative to the file's directory.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	c := Default()
	if _, err := toml.DecodeFile(filename, &c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	c.location = filename
	if err := c.convertPathsToAbsolute(filepath.Dir(filename)); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Decode parses configuration from TOML text.  Relative paths are taken
// relative to dir.
func Decode(text, dir string) (*Config, error) {
	c := Default()
	if _, err := toml.Decode(text, &c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if err := c.convertPathsToAbsolute(dir); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) convertPathsToAbsolute(configDir string) (err error) {
	// [paths].root may be a local directory given without a scheme.
	if c.Paths.Root != "" && !strings.Contains(c.Paths.Root, "://") {
		dir, err := neuprep.ConvertToAbsolute(c.Paths.Root, configDir)
		if err != nil {
			return fmt.Errorf("error converting paths.root to absolute path: %v", err)
		}
		c.Paths.Root = "file://" + dir
	}
	if c.Paths.Collection, err = neuprep.ConvertToAbsolute(c.Paths.Collection, configDir); err != nil {
		return fmt.Errorf("error converting paths.collection to absolute path: %v", err)
	}
	if c.Paths.SWC, err = neuprep.ConvertToAbsolute(c.Paths.SWC, configDir); err != nil {
		return fmt.Errorf("error converting paths.swc to absolute path: %v", err)
	}
	if c.Sheets.Credentials, err = neuprep.ConvertToAbsolute(c.Sheets.Credentials, configDir); err != nil {
		return fmt.Errorf("error converting sheets.credentials to absolute path: %v", err)
	}
	if c.Logging.Logfile, err = neuprep.ConvertToAbsolute(c.Logging.Logfile, configDir); err != nil {
		return fmt.Errorf("error converting logfile setting to absolute path: %v", err)
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, err := c.Reduction(); err != nil {
		return err
	}
	if c.NBLAST.Decimals < 0 {
		return fmt.Errorf("nblast.decimals must be non-negative, got %d", c.NBLAST.Decimals)
	}
	if c.NBLAST.MirrorSuffix == "" {
		return fmt.Errorf("nblast.mirror_suffix must not be empty")
	}
	if c.NBLAST.Archive == "" {
		return fmt.Errorf("nblast.archive must name an archive object")
	}
	if _, err := neuprep.ParseLogMode(c.Logging.Level); err != nil {
		return err
	}
	if c.NBLAST.Workers <= 0 {
		c.NBLAST.Workers = DefaultWorkers
	}
	return nil
}

// Location returns the file the configuration was loaded from, if any.
func (c *Config) Location() string {
	return c.location
}

// Reduction returns the configured row/column collapse reduction.
func (c *Config) Reduction() (matrix.Reduction, error) {
	return matrix.ReductionByName(c.NBLAST.Reduction)
}

// MergeOptions returns the matrix merge options for NBLAST updates.
func (c *Config) MergeOptions() (matrix.MergeOptions, error) {
	f, err := c.Reduction()
	if err != nil {
		return matrix.MergeOptions{}, err
	}
	return matrix.MergeOptions{
		MirrorSuffix: c.NBLAST.MirrorSuffix,
		Reduce:       f,
		ClampMin:     c.NBLAST.ClampMin,
		Decimals:     c.NBLAST.Decimals,
		Symmetrize:   c.NBLAST.Symmetrize,
	}, nil
}

// CacheBytes returns the loader cache budget in bytes.
func (c *Config) CacheBytes() int {
	return c.Cache.MaxMB << 20
}

func (c *Config) String() string {
	return fmt.Sprintf("root %s, collection %s, template %s, archive %s", c.Paths.Root, c.Paths.Collection, c.Defaults.Template, c.NBLAST.Archive)
}
