package samples

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/runmeta/util"
)

// Sets maps a sample set name to its sorted, deduplicated members.
type Sets map[string][]string

// Names returns the set names in sorted order.
func (s Sets) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StabilizeOpts controls Stabilize.
type StabilizeOpts struct {
	// Pattern is a filepath.Glob pattern selecting the sample list files.
	Pattern string
	// Dir receives one persisted file per set, plus the Marker file.  It is
	// created if needed.
	Dir string
	// Ext is stripped from list file names to form set names, and appended to
	// set names to form persisted file names.
	Ext string
	// AllSamples names the implicit union of every set.
	AllSamples string
	// Marker names the file in Dir that points operators at Pattern.
	Marker string
}

// DefaultStabilizeOpts holds the defaults for everything but Pattern.
var DefaultStabilizeOpts = StabilizeOpts{
	Dir:        "output/samplelists",
	Ext:        ".txt",
	AllSamples: "all_samples",
	Marker:     "GENERATED_FILES_DO_NOT_EDIT",
}

// StripExt removes each of exts, in order, from the end of path when present.
func StripExt(path string, exts ...string) string {
	for _, ext := range exts {
		path = strings.TrimSuffix(path, ext)
	}
	return path
}

// Normalize returns the members sorted and without duplicates.
func Normalize(members []string) []string {
	sorted := append([]string{}, members...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, m := range sorted {
		if i == 0 || m != sorted[i-1] {
			out = append(out, m)
		}
	}
	return out
}

// Digest returns the seahash of the persisted form of a normalized set.
func Digest(members []string) uint64 {
	h := seahash.New()
	for _, m := range members {
		_, _ = io.WriteString(h, m)
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}

// readMembers returns the trimmed, non-empty lines of r.
func readMembers(r io.Reader) ([]string, error) {
	var members []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if m := strings.TrimSpace(sc.Text()); m != "" {
			members = append(members, m)
		}
	}
	return members, sc.Err()
}

// ReadList reads one sample list file.
func ReadList(ctx context.Context, path string) (members []string, err error) {
	in, err := util.OpenInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if members, err = readMembers(in.Reader()); err != nil {
		return nil, errors.E(err, "read", path)
	}
	return members, nil
}

// LoadSets reads every file matching opts.Pattern and adds the
// opts.AllSamples union.  Set names come from the file base names with
// opts.Ext stripped; two files yielding the same name, or a file named after
// the union set, are an error.
func LoadSets(ctx context.Context, opts StabilizeOpts) (Sets, error) {
	paths, err := filepath.Glob(opts.Pattern)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "sample set pattern", opts.Pattern)
	}
	sort.Strings(paths)
	sets := Sets{}
	source := map[string]string{}
	var everything []string
	for _, path := range paths {
		name := StripExt(filepath.Base(path), opts.Ext)
		if name == opts.AllSamples {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("sample list %s collides with the implicit %s set", path, opts.AllSamples))
		}
		if prev, ok := source[name]; ok {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("sample lists %s and %s both define set %s", prev, path, name))
		}
		members, err := ReadList(ctx, path)
		if err != nil {
			return nil, err
		}
		source[name] = path
		sets[name] = Normalize(members)
		everything = append(everything, members...)
	}
	sets[opts.AllSamples] = Normalize(everything)
	log.Debug.Printf("samples.LoadSets: %s: %d list(s), %d sample(s) overall",
		opts.Pattern, len(paths), len(sets[opts.AllSamples]))
	return sets, nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// persisted returns the normalized members stored at path.  A missing file
// is an empty set.
func persisted(ctx context.Context, path string) ([]string, error) {
	members, err := ReadList(ctx, path)
	if err != nil {
		if util.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return Normalize(members), nil
}

func writeLines(ctx context.Context, path string, lines []string) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	e := errorreporter.T{}
	w := bufio.NewWriter(out.Writer(ctx))
	for _, l := range lines {
		_, err := w.WriteString(l + "\n")
		e.Set(err)
	}
	e.Set(w.Flush())
	e.Set(out.Close(ctx))
	return e.Err()
}

// Persist writes members (which must be normalized) to path unless the file
// already holds the same set, in which case it is left untouched so that its
// modification time does not change.  It reports whether the file was
// written.
func Persist(ctx context.Context, path string, members []string) (bool, error) {
	current, err := persisted(ctx, path)
	if err != nil {
		return false, err
	}
	if equal(current, members) {
		return false, nil
	}
	if err := writeLines(ctx, path, members); err != nil {
		return false, err
	}
	return true, nil
}

// Stabilize loads the sample sets selected by opts.Pattern and persists each
// one to opts.Dir, rewriting a set's file only when its content changed.
// Every rewrite is logged as a warning since it will make mtime-based
// downstream builds rerun.  The marker file is rewritten on every call.
func Stabilize(ctx context.Context, opts StabilizeOpts) (Sets, error) {
	sets, err := LoadSets(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Dir, 0777); err != nil {
		return nil, errors.E(err, "mkdir", opts.Dir)
	}
	marker := filepath.Join(opts.Dir, opts.Marker)
	if err := writeLines(ctx, marker, []string{"you're probably looking for " + opts.Pattern}); err != nil {
		return nil, err
	}
	for _, name := range sets.Names() {
		members := sets[name]
		path := filepath.Join(opts.Dir, name+opts.Ext)
		changed, err := Persist(ctx, path, members)
		if err != nil {
			return nil, err
		}
		if changed {
			log.Error.Printf("WARNING: updating sample set %s (%d samples, digest %016x); this will trigger reruns",
				name, len(members), Digest(members))
		}
	}
	return sets, nil
}
