package interval

import (
	"bufio"
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/runmeta/encoding/fasta"
	"github.com/grailbio/runmeta/util"
)

// AllowList is the set of contig names that may be windowed.
type AllowList map[string]struct{}

// Contains reports whether contig is allowed.
func (a AllowList) Contains(contig string) bool {
	_, ok := a[contig]
	return ok
}

// Len returns the number of allowed contigs.
func (a AllowList) Len() int { return len(a) }

// firstToken returns the first run of bytes > ' ' in line, or nil if the
// line is blank.  Tabs and spaces both delimit, as in the BED readers of
// samtools and bedtools.
func firstToken(line []byte) []byte {
	start := 0
	for start < len(line) && line[start] <= ' ' {
		start++
	}
	end := start
	for end < len(line) && line[end] > ' ' {
		end++
	}
	if start == end {
		return nil
	}
	return line[start:end]
}

// isBEDHeader reports whether a line is a comment or a "track"/"browser"
// declaration.  first is the line's first token; contigs whose names merely
// start with "track" or "browser" are data.
func isBEDHeader(line, first []byte) bool {
	if len(line) > 0 && line[0] == '#' {
		return true
	}
	switch string(first) {
	case "track", "browser":
		return true
	}
	return false
}

// scanAllowList collects the first column of every data line.
func scanAllowList(scanner *bufio.Scanner, name string) (AllowList, error) {
	allow := AllowList{}
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		contig := firstToken(curLine)
		if contig == nil || isBEDHeader(curLine, contig) {
			continue
		}
		allow[string(contig)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, fmt.Sprintf("interval.LoadAllowList: %s: line %d", name, lineIdx))
	}
	return allow, nil
}

// LoadAllowList reads the contigs of interest from a BED-like file: the first
// whitespace-delimited field of each line names an allowed contig.  Header
// lines ('#', "track", "browser") and blank lines are ignored.  Files ending
// in .gz are decompressed.
//
// An empty file yields an empty AllowList.  A missing file is an error of kind
// errors.NotExist.
func LoadAllowList(ctx context.Context, path string) (allow AllowList, err error) {
	in, err := util.OpenInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if allow, err = scanAllowList(bufio.NewScanner(in.Reader()), path); err != nil {
		return nil, err
	}
	log.Debug.Printf("interval.LoadAllowList: %s: %d contig(s)", path, allow.Len())
	return allow, nil
}

// WriteAllowList writes a BED3 file covering every given contig in full.
func WriteAllowList(ctx context.Context, path string, contigs []fasta.Contig) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	for _, c := range contigs {
		w.WriteString(c.Name)
		w.WriteInt64(0)
		w.WriteInt64(c.Length)
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// EnsureAllowList writes an allow-list covering every contig of ref to path,
// unless path already exists.  It reports whether the file was written.
func EnsureAllowList(ctx context.Context, path string, ref fasta.Reference) (bool, error) {
	exists, err := util.Exists(ctx, path)
	if err != nil || exists {
		return false, err
	}
	contigs, err := fasta.ReadIndexPath(ctx, ref.IndexPath())
	if err != nil {
		return false, err
	}
	if err := WriteAllowList(ctx, path, contigs); err != nil {
		return false, err
	}
	log.Printf("interval: wrote %d contig(s) of %s to %s", len(contigs), ref.Name, path)
	return true, nil
}
