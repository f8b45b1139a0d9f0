package main

/*
bio-runmeta derives the run-time metadata of a sequencing analysis pipeline
from its config: region windows and chromosome groups of each reference
genome, run/library to sample lineage, and the persisted sample sets.

  bio-runmeta regions -config config.yml
*/

import (
	"github.com/grailbio/runmeta/cmd/bio-runmeta/cmd"
)

func main() {
	cmd.Run()
}
