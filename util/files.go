package util

import (
	"context"
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// Input is a read-only handle on a (possibly gzip-compressed) text file.
type Input struct {
	path string
	f    file.File
	gz   *gzip.Reader
	r    io.Reader
}

// OpenInput opens path for reading. Files ending in .gz are decompressed
// transparently. A file that does not exist yields an error of kind
// errors.NotExist.
func OpenInput(ctx context.Context, path string) (*Input, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, openError(path, err)
	}
	in := &Input{path: path, f: f, r: f.Reader(ctx)}
	if fileio.DetermineType(path) == fileio.Gzip {
		if in.gz, err = gzip.NewReader(in.r); err != nil {
			_ = f.Close(ctx)
			return nil, errors.E(errors.Invalid, err, "gunzip", path)
		}
		in.r = in.gz
	}
	return in, nil
}

// Reader returns the decompressed contents.
func (in *Input) Reader() io.Reader { return in.r }

// Path returns the path the input was opened from.
func (in *Input) Path() string { return in.path }

// Close releases the underlying file.
func (in *Input) Close(ctx context.Context) error {
	var err error
	if in.gz != nil {
		err = in.gz.Close()
	}
	if e := in.f.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}

// Exists reports whether path names an existing file.
func Exists(ctx context.Context, path string) (bool, error) {
	if _, err := file.Stat(ctx, path); err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsNotExist reports whether err says that a file is missing.
func IsNotExist(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
		return true
	}
	if e, ok := err.(*errors.Error); ok {
		return IsNotExist(e.Err)
	}
	return false
}

func openError(path string, err error) error {
	if IsNotExist(err) {
		return errors.E(errors.NotExist, "missing input file", path, err)
	}
	return errors.E(err, "open", path)
}
