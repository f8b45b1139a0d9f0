package samples

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/runmeta/util"
)

// Column names in the run/library/sample metadata table.
const (
	RunColumn     = "run"
	LibraryColumn = "library"
	SampleColumn  = "sample"
	// IncludeColumn is optional.  When present, only rows whose value is
	// exactly "Y" are used.
	IncludeColumn = "Include"
)

// RunLibrary identifies one sequencing run of one library.
type RunLibrary struct {
	Run     string
	Library string
}

func (rl RunLibrary) String() string { return rl.Run + "/" + rl.Library }

// Lineage relates sequencing runs/libraries to the samples they belong to.
type Lineage struct {
	// RunLibToSample maps each run/library to its sample.
	RunLibToSample map[RunLibrary]string
	// SampleToRunLibs lists the run/libraries of each sample in table order,
	// without repeats.
	SampleToRunLibs map[string][]RunLibrary
}

// LineageOpts controls ReadLineage.
type LineageOpts struct {
	// Comma is the field delimiter.  If zero, it is '\t' for *.tsv and *.tsv.gz
	// paths and ',' otherwise.
	Comma rune
	// StrictDuplicates makes a repeated run/library key an error.  By default
	// the last row wins in RunLibToSample, and every sample that claimed the
	// key keeps it in SampleToRunLibs.
	StrictDuplicates bool
}

// DefaultLineageOpts is the default set of options for ReadLineage.
var DefaultLineageOpts = LineageOpts{}

func delimiterFor(path string) rune {
	if strings.HasSuffix(path, ".tsv") || strings.HasSuffix(path, ".tsv.gz") {
		return '\t'
	}
	return ','
}

// Excluded reports whether a metadata row is left out of the lineage: blank
// libraries (empty, or starting with "blank" in any case) and, when the
// Include column exists, rows not marked "Y".
func Excluded(library, include string, hasInclude bool) bool {
	if library == "" || strings.HasPrefix(strings.ToLower(library), "blank") {
		return true
	}
	return hasInclude && include != "Y"
}

type columns struct {
	run, library, sample, include int
}

func findColumns(path string, header []string) (columns, error) {
	cols := columns{run: -1, library: -1, sample: -1, include: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case RunColumn:
			cols.run = i
		case LibraryColumn:
			cols.library = i
		case SampleColumn:
			cols.sample = i
		case IncludeColumn:
			cols.include = i
		}
	}
	var missing []string
	for _, c := range []struct {
		name string
		idx  int
	}{{RunColumn, cols.run}, {LibraryColumn, cols.library}, {SampleColumn, cols.sample}} {
		if c.idx < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return cols, errors.E(errors.Invalid,
			fmt.Sprintf("%s: missing required column(s) %s", path, strings.Join(missing, ", ")))
	}
	return cols, nil
}

// ReadLineage builds a Lineage from a delimited metadata table with a header
// row.  Rows are processed in file order; see Excluded for the rows that are
// skipped.  A missing table is an error of kind errors.NotExist.
func ReadLineage(ctx context.Context, path string, opts LineageOpts) (lin *Lineage, err error) {
	in, err := util.OpenInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	r := csv.NewReader(in.Reader())
	r.Comma = opts.Comma
	if r.Comma == 0 {
		r.Comma = delimiterFor(path)
	}
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.E(errors.Invalid, path, "empty metadata table")
	} else if err != nil {
		return nil, errors.E(errors.Invalid, err, path)
	}
	cols, err := findColumns(path, header)
	if err != nil {
		return nil, err
	}

	lin = &Lineage{
		RunLibToSample:  map[RunLibrary]string{},
		SampleToRunLibs: map[string][]RunLibrary{},
	}
	var nRow, nSkipped, nDup int
	for {
		row, err := r.Read()
		nRow++
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.E(errors.Invalid, err, path)
		}
		var include string
		if cols.include >= 0 {
			include = row[cols.include]
		}
		if Excluded(row[cols.library], include, cols.include >= 0) {
			nSkipped++
			continue
		}
		rl := RunLibrary{Run: row[cols.run], Library: row[cols.library]}
		sample := row[cols.sample]
		if prev, ok := lin.RunLibToSample[rl]; ok {
			if opts.StrictDuplicates {
				return nil, errors.E(errors.Invalid,
					fmt.Sprintf("%s: row %d: run/library %v already maps to sample %s", path, nRow, rl, prev))
			}
			nDup++
			log.Debug.Printf("samples.ReadLineage: %s: run/library %v remapped from %s to %s", path, rl, prev, sample)
		}
		lin.RunLibToSample[rl] = sample
		lin.SampleToRunLibs[sample] = appendUnique(lin.SampleToRunLibs[sample], rl)
	}
	log.Debug.Printf("samples.ReadLineage: %s: %d run/libraries, %d samples, %d rows skipped, %d duplicate keys",
		path, len(lin.RunLibToSample), len(lin.SampleToRunLibs), nSkipped, nDup)
	return lin, nil
}

func appendUnique(rls []RunLibrary, rl RunLibrary) []RunLibrary {
	for _, x := range rls {
		if x == rl {
			return rls
		}
	}
	return append(rls, rl)
}
