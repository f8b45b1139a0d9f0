package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/runmeta/encoding/fasta"
	"github.com/grailbio/runmeta/interval"
	"v.io/x/lib/cmdline"
)

// refRegions is one element of the regions output.  The output is a list so
// that references keep their config order.
type refRegions struct {
	Ref     string   `json:"ref"`
	Windows []string `json:"windows"`
}

type refChroms struct {
	Ref    string               `json:"ref"`
	Groups interval.ChromGroups `json:"groups"`
}

func orderedRegions(refs []fasta.Reference, regions map[string][]interval.Window) []refRegions {
	out := make([]refRegions, len(refs))
	for i, ref := range refs {
		out[i] = refRegions{Ref: ref.Name, Windows: interval.WindowStrings(regions[ref.Name])}
	}
	return out
}

func orderedChroms(refs []fasta.Reference, chroms map[string]interval.ChromGroups) []refChroms {
	out := make([]refChroms, len(refs))
	for i, ref := range refs {
		out[i] = refChroms{Ref: ref.Name, Groups: chroms[ref.Name]}
	}
	return out
}

func newCmdFaidx() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "faidx",
		Short: "Create missing FASTA indexes (*.fai) for the configured references",
	}
	cfgPath := configFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("faidx takes no arguments, but got %v", argv)
		}
		c, err := loadConfig(*cfgPath)
		if err != nil {
			return err
		}
		ctx := vcontext.Background()
		for _, ref := range c.References() {
			created, err := fasta.EnsureIndex(ctx, ref)
			if err != nil {
				return err
			}
			if !created {
				log.Debug.Printf("faidx: %s already exists", ref.IndexPath())
			}
		}
		return nil
	})
	return cmd
}

func newCmdContigs() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "contigs",
		Short: "Create the contigs-of-interest list from the first reference",
		Long: `
Writes every contig of the first configured reference to the
contigs_of_interest file as BED, unless that file already exists. Edit the
file afterwards to restrict windowing to a subset of contigs.`,
	}
	cfgPath := configFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("contigs takes no arguments, but got %v", argv)
		}
		c, err := loadConfig(*cfgPath)
		if err != nil {
			return err
		}
		_, err = interval.EnsureAllowList(vcontext.Background(), c.ContigsOfInterest, c.References()[0])
		return err
	})
	return cmd
}

func newCmdRegions() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "regions",
		Short: "Print the region windows of every reference as a JSON list, in config order",
	}
	cfgPath := configFlag(&cmd.Flags)
	window := cmd.Flags.Int64("window", 0, "Window size in bases; overrides windowsize from the config")
	base := cmd.Flags.Int64("base", -1, "Coordinate origin; overrides window_base from the config")
	allowMissing := cmd.Flags.Bool("allow-missing-contigs", false,
		"Treat a missing contigs_of_interest file as empty instead of failing")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("regions takes no arguments, but got %v", argv)
		}
		c, err := loadConfig(*cfgPath)
		if err != nil {
			return err
		}
		opts := c.WindowOpts()
		if *window != 0 {
			opts.Size = *window
		}
		if *base >= 0 {
			opts.Base = *base
		}
		opts.AllowMissingAllowList = *allowMissing
		refs := c.References()
		regions, err := interval.MakeRegions(vcontext.Background(), refs, opts)
		if err != nil {
			return err
		}
		return writeJSON(env.Stdout, orderedRegions(refs, regions))
	})
	return cmd
}

func newCmdChroms() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "chroms",
		Short: "Print the chromosome groups of every reference as a JSON list, in config order",
	}
	cfgPath := configFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("chroms takes no arguments, but got %v", argv)
		}
		c, err := loadConfig(*cfgPath)
		if err != nil {
			return err
		}
		refs := c.References()
		chroms, err := interval.MakeChroms(vcontext.Background(), refs)
		if err != nil {
			return err
		}
		return writeJSON(env.Stdout, orderedChroms(refs, chroms))
	})
	return cmd
}
