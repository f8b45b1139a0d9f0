package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/runmeta/config"
	"v.io/x/lib/cmdline"
)

// configFlag registers the -config flag shared by every subcommand.
func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", config.DefaultPath, "Pipeline config file (YAML)")
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(vcontext.Background(), path)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCmdConfig() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "config",
		Short: "Print the pipeline config",
		Long: `
Loads and validates the pipeline config, then prints every top-level key and
its value. Keys the tool does not interpret are printed as well.`,
	}
	cfgPath := configFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("config takes no arguments, but got %v", argv)
		}
		c, err := loadConfig(*cfgPath)
		if err != nil {
			return err
		}
		return config.Print(env.Stdout, c)
	})
	return cmd
}

// Run is the entry point of bio-runmeta.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-runmeta",
			Short:    "Derive run-time metadata (regions, chromosome groups, sample sets) for a pipeline",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdConfig(),
				newCmdFaidx(),
				newCmdContigs(),
				newCmdRegions(),
				newCmdChroms(),
				newCmdLineage(),
				newCmdSampleSets(),
			},
		})
}
