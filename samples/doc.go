// Package samples derives run/library to sample lineage from the pipeline
// metadata table, and persists named sample sets so that their files are only
// rewritten when membership actually changes.
package samples
