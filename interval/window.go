package interval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/runmeta/encoding/fasta"
	"github.com/grailbio/runmeta/util"
)

// Window is a coordinate range on one contig.  With the default Base of 1,
// Start and End are 1-based and inclusive.
type Window struct {
	Contig     string
	Start, End int64
}

// String renders w as "<contig>:<start>-<end>", with both coordinates
// zero-padded to nine digits, e.g. "chr1:000000001-000400000".
func (w Window) String() string {
	return fmt.Sprintf("%s:%09d-%09d", w.Contig, w.Start, w.End)
}

// Entry is a 0-based half-open interval [Start0, End) on one contig.
type Entry struct {
	ChrName string
	Start0  int64
	End     int64
}

// Entry converts w, produced with the given coordinate base, to a 0-based
// half-open Entry.  A window of a zero-length contig yields an empty Entry.
func (w Window) Entry(base int64) Entry {
	return Entry{ChrName: w.Contig, Start0: w.Start - base, End: w.End}
}

// ParseWindow parses a string produced by Window.String.  The contig name may
// itself contain colons; the last one separates the coordinates.
func ParseWindow(s string) (Window, error) {
	colonPos := strings.LastIndexByte(s, ':')
	if colonPos <= 0 {
		return Window{}, errors.E(errors.Invalid, fmt.Sprintf("interval.ParseWindow: no contig in %q", s))
	}
	rangeStr := s[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		return Window{}, errors.E(errors.Invalid, fmt.Sprintf("interval.ParseWindow: no range in %q", s))
	}
	start, err := strconv.ParseInt(rangeStr[:dashPos], 10, 64)
	if err != nil {
		return Window{}, errors.E(errors.Invalid, err, "interval.ParseWindow:", s)
	}
	end, err := strconv.ParseInt(rangeStr[dashPos+1:], 10, 64)
	if err != nil {
		return Window{}, errors.E(errors.Invalid, err, "interval.ParseWindow:", s)
	}
	return Window{Contig: s[:colonPos], Start: start, End: end}, nil
}

// WindowStrings renders every window with Window.String.
func WindowStrings(windows []Window) []string {
	strs := make([]string, len(windows))
	for i, w := range windows {
		strs[i] = w.String()
	}
	return strs
}

// WindowOpts controls MakeRegions.
type WindowOpts struct {
	// Size is the number of bases per window.  Must be positive.
	Size int64
	// Base is added to the 0-based window start.  1 yields 1-based inclusive
	// windows; 0 yields 0-based half-open ones.
	Base int64
	// AllowListPath names the contigs-of-interest file.  It is reread for every
	// reference.
	AllowListPath string
	// AllowMissingAllowList treats a missing AllowListPath as an empty list
	// (no windows) instead of failing.
	AllowMissingAllowList bool
}

// DefaultWindowOpts are the defaults used by the pipeline config.
var DefaultWindowOpts = WindowOpts{
	Size:          1000000,
	Base:          1,
	AllowListPath: "metadata/contigs_of_interest.bed",
}

func (o WindowOpts) validate() error {
	if o.Size <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("interval: window size must be positive, got %d", o.Size))
	}
	if o.Base < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("interval: window base must be non-negative, got %d", o.Base))
	}
	return nil
}

// ContigWindows splits a contig of the given length into consecutive windows
// of at most size bases.  The last window is truncated at the contig end.  A
// zero-length contig still yields one window, {base, 0}.
func ContigWindows(contig string, length, size, base int64) []Window {
	if length <= 0 {
		return []Window{{Contig: contig, Start: base, End: 0}}
	}
	windows := make([]Window, 0, (length+size-1)/size)
	for start := int64(0); start < length; start += size {
		wlen := size
		if rem := length - start; rem < wlen {
			wlen = rem
		}
		windows = append(windows, Window{Contig: contig, Start: start + base, End: start + wlen})
	}
	return windows
}

func loadAllowList(ctx context.Context, opts WindowOpts) (AllowList, error) {
	allow, err := LoadAllowList(ctx, opts.AllowListPath)
	if err != nil && opts.AllowMissingAllowList && util.IsNotExist(err) {
		log.Printf("interval: %s does not exist; no contigs will be windowed", opts.AllowListPath)
		return AllowList{}, nil
	}
	return allow, err
}

// MakeRegions returns, for every reference, the windows covering each of its
// allow-listed contigs, in index order.  Contigs absent from the allow-list
// are never windowed.  References are processed independently.
func MakeRegions(ctx context.Context, refs []fasta.Reference, opts WindowOpts) (map[string][]Window, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	regions := make(map[string][]Window, len(refs))
	for _, ref := range refs {
		allow, err := loadAllowList(ctx, opts)
		if err != nil {
			return nil, err
		}
		windows := []Window{}
		err = fasta.ScanIndexPath(ctx, ref.IndexPath(), func(c fasta.Contig) error {
			if allow.Contains(c.Name) {
				windows = append(windows, ContigWindows(c.Name, c.Length, opts.Size, opts.Base)...)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		log.Debug.Printf("interval.MakeRegions: %s: %d window(s)", ref.Name, len(windows))
		regions[ref.Name] = windows
	}
	return regions, nil
}
