package cmd

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/runmeta/samples"
	"v.io/x/lib/cmdline"
)

type runLibJSON struct {
	Run     string `json:"run"`
	Library string `json:"library"`
	Sample  string `json:"sample,omitempty"`
}

type lineageJSON struct {
	RunLibToSample  []runLibJSON            `json:"runlib2samp"`
	SampleToRunLibs map[string][]runLibJSON `json:"samp2runlib"`
}

// lineageToJSON flattens a Lineage, whose keys are structs, into JSON-friendly
// values.  Run/library rows are sorted for stable output.
func lineageToJSON(lin *samples.Lineage) lineageJSON {
	out := lineageJSON{
		RunLibToSample:  make([]runLibJSON, 0, len(lin.RunLibToSample)),
		SampleToRunLibs: make(map[string][]runLibJSON, len(lin.SampleToRunLibs)),
	}
	for rl, sample := range lin.RunLibToSample {
		out.RunLibToSample = append(out.RunLibToSample, runLibJSON{Run: rl.Run, Library: rl.Library, Sample: sample})
	}
	sort.Slice(out.RunLibToSample, func(i, j int) bool {
		a, b := out.RunLibToSample[i], out.RunLibToSample[j]
		if a.Run != b.Run {
			return a.Run < b.Run
		}
		return a.Library < b.Library
	})
	for sample, rls := range lin.SampleToRunLibs {
		list := make([]runLibJSON, len(rls))
		for i, rl := range rls {
			list[i] = runLibJSON{Run: rl.Run, Library: rl.Library}
		}
		out.SampleToRunLibs[sample] = list
	}
	return out
}

func newCmdLineage() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "lineage",
		Short: "Print the run/library <-> sample mappings as JSON",
		Long: `
Reads the metadata table named by the config's "metadata" key (or the
-metadata flag). Rows with a blank library, or with an Include column that is
not "Y", are skipped.`,
	}
	cfgPath := configFlag(&cmd.Flags)
	metadata := cmd.Flags.String("metadata", "", "Metadata table; overrides metadata from the config")
	strict := cmd.Flags.Bool("strict", false, "Fail if a run/library pair maps to more than one sample")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("lineage takes no arguments, but got %v", argv)
		}
		path := *metadata
		if path == "" {
			c, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			path = c.Metadata
		}
		if path == "" {
			return fmt.Errorf("lineage: no metadata table configured")
		}
		opts := samples.DefaultLineageOpts
		opts.StrictDuplicates = *strict
		lin, err := samples.ReadLineage(vcontext.Background(), path, opts)
		if err != nil {
			return err
		}
		return writeJSON(env.Stdout, lineageToJSON(lin))
	})
	return cmd
}

func newCmdSampleSets() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "samplesets",
		Short: "Persist the sample sets and print them as JSON",
		Long: `
Reads every sample list matched by the config's "samplesets" glob, adds the
all_samples union, and writes each set to samplelist_dir. A set's file is only
rewritten when its members change, so downstream steps that depend on it are
not rerun needlessly.`,
	}
	cfgPath := configFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("samplesets takes no arguments, but got %v", argv)
		}
		c, err := loadConfig(*cfgPath)
		if err != nil {
			return err
		}
		opts := c.StabilizeOpts()
		if opts.Pattern == "" {
			return fmt.Errorf("samplesets: no sample list pattern configured")
		}
		sets, err := samples.Stabilize(vcontext.Background(), opts)
		if err != nil {
			return err
		}
		return writeJSON(env.Stdout, sets)
	})
	return cmd
}
