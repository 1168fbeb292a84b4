/*
Neuprep is a data preparation layer for connectomics research.  It fetches,
transforms, caches and re-uploads collections of neuron skeletons from the
FlyWire and hemibrain datasets, moves coordinates between template brains, and
maintains pairwise NBLAST similarity matrices.

Documentation can be found nicely formatted at http://godoc.org/github.com/janelia-flyem/neuprep

Packages

	neuprep          identifiers, points, logging and command lines shared by all packages
	matrix           named score matrices and the NBLAST archive merge
	skeleton         skeletons, SWC text and the binary bundle codec
	transform        template transforms and midplane mirrors
	request          update requests decoded from JSON
	cache            on-demand record loader with a bounded byte cache
	storage          storage engines and the blob archive (gs, s3, file, mem)
	storage/badger   local skeleton collection
	sheets           request spreadsheet sync
	config           TOML configuration
	workflow         neuron update and NBLAST pipelines
	cmd/neuprep      command-line interface

# Merging NBLAST scores

Scores come from an external engine as two directional matrices, queries
against targets and targets against queries.  They are averaged, mirrored
variants (identifiers ending in "_m") are collapsed into their base neuron,
scores are clamped at -0.5 and rounded to 3 decimals, and the result is laid
over the archived matrix.  The archive is replaced only if every step succeeds.

# Configuration

All commands read a TOML file given with -config.  See config.Config for the
sections and their defaults.
*/
package neuprep
