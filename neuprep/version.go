package neuprep

import "github.com/blang/semver"

//go:generate go run ../cmd/gen-version -o gitversion.go

// Version is the version of this neuprep build.
var Version = semver.MustParse("0.4.1")

// GitVersion is the git description of the source, set by generated code.
var GitVersion = "unknown"
