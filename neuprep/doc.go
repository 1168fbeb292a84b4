/*
Package neuprep holds the core types shared by the neuron data-preparation
packages: shape identifiers and their mirror suffix, template-space vectors,
and the package-level logger.

Logging goes through Debugf, Infof, Warningf, Errorf and Criticalf.  By default
messages go to the standard logger; a [logging] section in the TOML
configuration switches to a rotating log file.
*/
package neuprep
