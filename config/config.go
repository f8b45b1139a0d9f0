// Package config defines the typed pipeline configuration.  A Config is
// loaded once by the caller, validated as a whole, and then passed to the
// components that need it; there is no package-level configuration state.
package config

import (
	"context"
	"fmt"
	"io/ioutil"
	"math"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/sync/multierror"
	"github.com/grailbio/runmeta/encoding/fasta"
	"github.com/grailbio/runmeta/interval"
	"github.com/grailbio/runmeta/samples"
	"github.com/grailbio/runmeta/util"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the pipeline config is normally found.
const DefaultPath = "config.yml"

// maxErrors bounds the number of validation problems reported at once.
const maxErrors = 32

// References is an ordered list of reference genomes.  In YAML it is written
// as a mapping from reference name to FASTA path; the mapping order is kept.
type References []fasta.Reference

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *References) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: refs must be a mapping of name to FASTA path", node.Line)
	}
	refs := make(References, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: path of reference %s must be a string", val.Line, key.Value)
		}
		refs = append(refs, fasta.Reference{Name: key.Value, Path: val.Value})
	}
	*r = refs
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r References) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, ref := range r {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: ref.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: ref.Path})
	}
	return node, nil
}

// Count is a positive integer that may be written as a float, e.g. "1e6".
// Floats must be integral: 1000000.5 is rejected rather than truncated.  The
// value is checked by Config.Validate.
type Count struct {
	N    int64
	raw  string
	kind yaml.Kind // zero when the key is absent
}

var kindNames = map[yaml.Kind]string{
	yaml.DocumentNode: "document",
	yaml.SequenceNode: "sequence",
	yaml.MappingNode:  "mapping",
	yaml.AliasNode:    "alias",
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Count) UnmarshalYAML(node *yaml.Node) error {
	c.kind = node.Kind
	c.raw = node.Value
	c.N = 0
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Count) MarshalYAML() (interface{}, error) {
	if c.raw != "" && c.N == 0 {
		return c.raw, nil
	}
	return c.N, nil
}

func (c *Count) resolve(field string) error {
	switch c.kind {
	case 0:
		return nil
	case yaml.ScalarNode:
	default:
		return errors.E(errors.Invalid, fmt.Sprintf("%s: want a number, got a %s", field, kindNames[c.kind]))
	}
	if n, err := strconv.ParseInt(c.raw, 10, 64); err == nil {
		c.N = n
	} else {
		f, ferr := strconv.ParseFloat(c.raw, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
			return errors.E(errors.Invalid, fmt.Sprintf("%s: %q is not an integer", field, c.raw))
		}
		c.N = int64(f)
	}
	if c.N <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("%s: must be positive, got %s", field, c.raw))
	}
	return nil
}

// Config is the typed pipeline configuration.
type Config struct {
	// Refs lists the reference genomes.  The first one is used to derive the
	// contigs of interest.
	Refs References `yaml:"refs"`
	// Metadata is the run/library/sample table.
	Metadata string `yaml:"metadata,omitempty"`
	// SampleSets is a glob selecting the sample list files.
	SampleSets string `yaml:"samplesets,omitempty"`
	// ContigsOfInterest is the allow-list of contigs to window.
	ContigsOfInterest string `yaml:"contigs_of_interest"`
	// SampleListDir receives the persisted sample sets.
	SampleListDir string `yaml:"samplelist_dir"`
	// WindowSize is the number of bases per region window.
	WindowSize Count `yaml:"windowsize"`
	// WindowBase is the coordinate origin of region windows (usually 1).
	WindowBase *int64 `yaml:"window_base,omitempty"`

	// Extra holds every other top-level key.  They are not interpreted, but
	// Print shows them.
	Extra map[string]interface{} `yaml:",inline"`
}

func (c *Config) setDefaults() {
	if c.ContigsOfInterest == "" {
		c.ContigsOfInterest = interval.DefaultWindowOpts.AllowListPath
	}
	if c.SampleListDir == "" {
		c.SampleListDir = samples.DefaultStabilizeOpts.Dir
	}
	if c.WindowSize.kind == 0 {
		c.WindowSize = Count{N: interval.DefaultWindowOpts.Size}
	}
	if c.WindowBase == nil {
		base := interval.DefaultWindowOpts.Base
		c.WindowBase = &base
	}
}

// Validate checks the whole config and reports every problem in one error of
// kind errors.Invalid.
func (c *Config) Validate() error {
	errs := multierror.NewMultiError(maxErrors)
	if len(c.Refs) == 0 {
		errs.Add(errors.E(errors.Invalid, "refs: at least one reference is required"))
	}
	seen := map[string]bool{}
	for i, ref := range c.Refs {
		if ref.Name == "" {
			errs.Add(errors.E(errors.Invalid, fmt.Sprintf("refs[%d]: empty reference name", i)))
		} else if seen[ref.Name] {
			errs.Add(errors.E(errors.Invalid, fmt.Sprintf("refs: duplicate reference %s", ref.Name)))
		}
		seen[ref.Name] = true
		if ref.Path == "" {
			errs.Add(errors.E(errors.Invalid, fmt.Sprintf("refs: reference %s has no path", ref.Name)))
		}
	}
	errs.Add(c.WindowSize.resolve("windowsize"))
	if c.WindowBase != nil && *c.WindowBase < 0 {
		errs.Add(errors.E(errors.Invalid, fmt.Sprintf("window_base: must be non-negative, got %d", *c.WindowBase)))
	}
	if err := errs.Err(); err != nil {
		return errors.E(errors.Invalid, "invalid config", err)
	}
	return nil
}

// Parse decodes, defaults and validates a YAML config.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.E(errors.Invalid, "parse config", err)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the config at path.  A missing file is an error of kind
// errors.NotExist.
func Load(ctx context.Context, path string) (c *Config, err error) {
	in, err := util.OpenInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	data, err := ioutil.ReadAll(in.Reader())
	if err != nil {
		return nil, errors.E(err, "read", path)
	}
	if c, err = Parse(data); err != nil {
		return nil, errors.E(err, path)
	}
	return c, nil
}

// References returns the configured references in file order.
func (c *Config) References() []fasta.Reference {
	return []fasta.Reference(c.Refs)
}

// WindowOpts returns the region windowing options.
func (c *Config) WindowOpts() interval.WindowOpts {
	opts := interval.DefaultWindowOpts
	opts.AllowListPath = c.ContigsOfInterest
	if c.WindowSize.N > 0 {
		opts.Size = c.WindowSize.N
	}
	if c.WindowBase != nil {
		opts.Base = *c.WindowBase
	}
	return opts
}

// StabilizeOpts returns the sample set persistence options.
func (c *Config) StabilizeOpts() samples.StabilizeOpts {
	opts := samples.DefaultStabilizeOpts
	opts.Pattern = c.SampleSets
	opts.Dir = c.SampleListDir
	return opts
}

// keys returns the top-level keys in display order: schema fields first,
// then the uninterpreted ones sorted by name.
func (c *Config) keys() []string {
	keys := []string{"refs", "metadata", "samplesets", "contigs_of_interest",
		"samplelist_dir", "windowsize", "window_base"}
	extra := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func (c *Config) value(key string) interface{} {
	switch key {
	case "refs":
		return c.Refs
	case "metadata":
		return c.Metadata
	case "samplesets":
		return c.SampleSets
	case "contigs_of_interest":
		return c.ContigsOfInterest
	case "samplelist_dir":
		return c.SampleListDir
	case "windowsize":
		return c.WindowSize
	case "window_base":
		if c.WindowBase == nil {
			return nil
		}
		return *c.WindowBase
	}
	return c.Extra[key]
}
