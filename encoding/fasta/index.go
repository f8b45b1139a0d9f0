package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/runmeta/util"
	pkgerrors "github.com/pkg/errors"
)

// IndexScanner reads contigs from a FASTA index (*.fai) one line at a time,
// in file order.
//
// Only the first two whitespace-separated columns (name and length) are
// interpreted; the remaining samtools columns (offset, bases per line, bytes
// per line) are ignored. Blank lines are skipped.
//
//   sc := fasta.NewIndexScanner(r)
//   for sc.Scan() {
//     c := sc.Contig()
//   }
//   if err := sc.Err(); err != nil { ... }
type IndexScanner struct {
	name    string
	sc      *bufio.Scanner
	lineNum int
	contig  Contig
	err     error
}

// NewIndexScanner creates a scanner over the index contents in r.
func NewIndexScanner(r io.Reader) *IndexScanner {
	return newIndexScanner(r, "fai")
}

func newIndexScanner(r io.Reader, name string) *IndexScanner {
	return &IndexScanner{name: name, sc: bufio.NewScanner(r)}
}

// Scan advances to the next contig. It returns false at EOF or on the first
// error.
func (s *IndexScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.sc.Scan() {
		s.lineNum++
		fields := strings.Fields(s.sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			s.err = errors.E(errors.Invalid,
				fmt.Sprintf("%s:%d: malformed index row: want name and length, got %q", s.name, s.lineNum, s.sc.Text()))
			return false
		}
		length, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || length < 0 {
			s.err = errors.E(errors.Invalid,
				fmt.Sprintf("%s:%d: malformed index row: bad length %q for contig %s", s.name, s.lineNum, fields[1], fields[0]))
			return false
		}
		s.contig = Contig{Name: fields[0], Length: length}
		return true
	}
	if err := s.sc.Err(); err != nil {
		s.err = pkgerrors.Wrapf(err, "read %s", s.name)
	}
	return false
}

// Contig returns the contig parsed by the last successful call to Scan.
func (s *IndexScanner) Contig() Contig { return s.contig }

// Err returns the first error encountered while scanning.
func (s *IndexScanner) Err() error { return s.err }

// ScanIndexPath opens the index at path and calls fn for every contig in file
// order. Each call re-reads the file, so the sequence can be replayed. The
// scan stops at the first error returned by fn.
func ScanIndexPath(ctx context.Context, path string, fn func(Contig) error) (err error) {
	in, err := util.OpenInput(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	sc := newIndexScanner(in.Reader(), path)
	for sc.Scan() {
		if err = fn(sc.Contig()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadIndexPath returns all contigs listed in the index at path.
func ReadIndexPath(ctx context.Context, path string) ([]Contig, error) {
	var contigs []Contig
	err := ScanIndexPath(ctx, path, func(c Contig) error {
		contigs = append(contigs, c)
		return nil
	})
	return contigs, err
}

// faiRecord accumulates the index row of one FASTA record while its sequence
// lines are read.
type faiRecord struct {
	name      string
	offset    int64 // of the first base
	length    int64
	lineBases int64
	lineBytes int64
}

// addLine accounts for one sequence line.  The line geometry is taken from the
// first line; samtools assumes every other line but the last matches it.
func (rec *faiRecord) addLine(nBytes, nBases int) {
	if rec.lineBytes == 0 {
		rec.lineBytes = int64(nBytes)
		rec.lineBases = int64(nBases)
	}
	rec.length += int64(nBases)
}

func (rec *faiRecord) write(w *tsv.Writer) error {
	w.WriteString(rec.name)
	w.WriteInt64(rec.length)
	w.WriteInt64(rec.offset)
	w.WriteInt64(rec.lineBases)
	w.WriteInt64(rec.lineBytes)
	return w.EndLine()
}

// GenerateIndex writes the index (*.fai) of the FASTA read from in.
//
// The index format is defined by "samtools faidx"
// (http://www.htslib.org/doc/faidx.html).  A record with a header but no
// sequence gets a row of length 0.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w     = tsv.NewWriter(out)
		r     = bufio.NewReader(in)
		rec   *faiRecord
		nRead int64
	)
	for lineNum := 1; ; lineNum++ {
		fullLine, readErr := r.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return pkgerrors.Wrapf(readErr, "read FASTA line %d", lineNum)
		}
		nRead += int64(len(fullLine))
		line := bytes.TrimRight(fullLine, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if rec != nil {
				if err := rec.write(w); err != nil {
					return err
				}
			}
			fields := bytes.Fields(line[1:])
			if len(fields) == 0 {
				return errors.E(errors.Invalid, fmt.Sprintf("malformed FASTA file: line %d: header without a name", lineNum))
			}
			rec = &faiRecord{name: string(fields[0]), offset: nRead}
		case rec == nil:
			return errors.E(errors.Invalid, fmt.Sprintf("malformed FASTA file: line %d: sequence before the first header", lineNum))
		default:
			rec.addLine(len(fullLine), len(line))
		}
		if readErr == io.EOF {
			break
		}
	}
	if nRead == 0 {
		return errors.E(errors.Invalid, "empty FASTA file")
	}
	if rec != nil {
		if err := rec.write(w); err != nil {
			return err
		}
	}
	return w.Flush()
}

// EnsureIndex writes ref.IndexPath() from the reference FASTA unless the
// index already exists. It reports whether a new index was written.
func EnsureIndex(ctx context.Context, ref Reference) (created bool, err error) {
	idxPath := ref.IndexPath()
	exists, err := util.Exists(ctx, idxPath)
	if err != nil || exists {
		return false, err
	}
	in, err := util.OpenInput(ctx, ref.Path)
	if err != nil {
		return false, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	out, err := file.Create(ctx, idxPath)
	if err != nil {
		return false, errors.E(err, "create", idxPath)
	}
	defer file.CloseAndReport(ctx, out, &err)
	if err = GenerateIndex(out.Writer(ctx), in.Reader()); err != nil {
		return false, errors.E(err, "index", ref.Path)
	}
	log.Printf("fasta: indexed %s (%s) -> %s", ref.Name, ref.Path, idxPath)
	return true, nil
}
