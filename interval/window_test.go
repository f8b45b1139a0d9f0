package interval

import (
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/runmeta/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func writeFile(t *testing.T, path, data string) {
	assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestWindowString(t *testing.T) {
	w := Window{Contig: "chr1", Start: 400001, End: 800000}
	expect.EQ(t, w.String(), "chr1:000400001-000800000")

	got, err := ParseWindow(w.String())
	assert.NoError(t, err)
	expect.EQ(t, got, w)
	expect.EQ(t, got.Entry(1), Entry{ChrName: "chr1", Start0: 400000, End: 800000})
	expect.EQ(t, Window{Contig: "chr1", Start: 400000, End: 800000}.Entry(0),
		Entry{ChrName: "chr1", Start0: 400000, End: 800000})
	expect.EQ(t, Window{Contig: "chrM", Start: 1, End: 0}.Entry(1), Entry{ChrName: "chrM", Start0: 0, End: 0})

	got, err = ParseWindow("HLA-A*01:01:01:01:000000001-000003503")
	assert.NoError(t, err)
	expect.EQ(t, got, Window{Contig: "HLA-A*01:01:01:01", Start: 1, End: 3503})

	for _, bad := range []string{"", "chr1", ":1-2", "chr1:12", "chr1:a-2", "chr1:1-b"} {
		_, err := ParseWindow(bad)
		expect.True(t, errors.Is(errors.Invalid, err), "input %q", bad)
	}
}

func TestContigWindows(t *testing.T) {
	tests := []struct {
		length, size, base int64
		want               []string
	}{
		{1000000, 400000, 1, []string{
			"chr1:000000001-000400000",
			"chr1:000400001-000800000",
			"chr1:000800001-001000000",
		}},
		{800000, 400000, 1, []string{
			"chr1:000000001-000400000",
			"chr1:000400001-000800000",
		}},
		{17, 400000, 1, []string{"chr1:000000001-000000017"}},
		{0, 400000, 1, []string{"chr1:000000001-000000000"}},
		{25, 10, 0, []string{
			"chr1:000000000-000000010",
			"chr1:000000010-000000020",
			"chr1:000000020-000000025",
		}},
	}
	for _, tt := range tests {
		expect.EQ(t, WindowStrings(ContigWindows("chr1", tt.length, tt.size, tt.base)), tt.want,
			"length %d size %d base %d", tt.length, tt.size, tt.base)
	}
}

// Windows partition [1, L]: each starts right after its predecessor ends, the
// first starts at 1, the last ends at L, and none is longer than the size.
func TestContigWindowsPartition(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for i := 0; i < 1000; i++ {
		length := 1 + r.Int63n(5000)
		size := 1 + r.Int63n(700)
		windows := ContigWindows("c", length, size, 1)
		assert.True(t, len(windows) > 0)
		expect.EQ(t, windows[0].Start, int64(1))
		expect.EQ(t, windows[len(windows)-1].End, length)
		var covered int64
		for j, w := range windows {
			assert.True(t, w.Start <= w.End, "window %v", w)
			assert.True(t, w.End-w.Start+1 <= size, "window %v size %d", w, size)
			if j > 0 {
				assert.EQ(t, w.Start, windows[j-1].End+1)
			}
			covered += w.End - w.Start + 1
		}
		expect.EQ(t, covered, length)

		// Parsed tokens convert to 0-based entries tiling [0, length).
		var end0 int64
		for _, w := range windows {
			parsed, err := ParseWindow(w.String())
			assert.NoError(t, err)
			e := parsed.Entry(1)
			assert.EQ(t, e.Start0, end0)
			end0 = e.End
		}
		expect.EQ(t, end0, length)
	}
}

func TestMakeRegions(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	refA := fasta.Reference{Name: "a", Path: filepath.Join(tmpdir, "a.fa")}
	refB := fasta.Reference{Name: "b", Path: filepath.Join(tmpdir, "b.fa")}
	writeFile(t, refA.IndexPath(),
		"chr1\t1000000\t6\t60\t61\n"+
			"scaffold_9\t250\t1016673\t60\t61\n"+
			"chr2\t30\t1016933\t60\t61\n")
	writeFile(t, refB.IndexPath(), "chr2\t15\t6\t60\t61\nchrM\t16569\t28\t60\t61\n")
	allowPath := filepath.Join(tmpdir, "contigs_of_interest.bed")
	writeFile(t, allowPath, "#contigs\nchr1\t0\t1000000\nchr2\t0\t30\n")

	opts := WindowOpts{Size: 400000, Base: 1, AllowListPath: allowPath}
	regions, err := MakeRegions(ctx, []fasta.Reference{refA, refB}, opts)
	assert.NoError(t, err)
	expect.EQ(t, len(regions), 2)
	expect.EQ(t, WindowStrings(regions["a"]), []string{
		"chr1:000000001-000400000",
		"chr1:000400001-000800000",
		"chr1:000800001-001000000",
		"chr2:000000001-000000030",
	})
	expect.EQ(t, WindowStrings(regions["b"]), []string{"chr2:000000001-000000015"})

	// Contig names that look like BED header keywords are still windowed.
	refC := fasta.Reference{Name: "c", Path: filepath.Join(tmpdir, "c.fa")}
	writeFile(t, refC.IndexPath(), "trackA\t5\t8\t60\t61\nbrowser_ctg\t7\t21\t60\t61\n")
	writeFile(t, allowPath, "track name=coi\ntrackA\t0\t5\nbrowser_ctg\t0\t7\n")
	regions, err = MakeRegions(ctx, []fasta.Reference{refC}, opts)
	assert.NoError(t, err)
	expect.EQ(t, WindowStrings(regions["c"]), []string{
		"trackA:000000001-000000005",
		"browser_ctg:000000001-000000007",
	})

	// An empty allow-list yields no windows.
	writeFile(t, allowPath, "")
	regions, err = MakeRegions(ctx, []fasta.Reference{refA}, opts)
	assert.NoError(t, err)
	expect.EQ(t, regions["a"], []Window{})
}

// No window is ever emitted for a contig outside the allow-list.
func TestMakeRegionsRespectsAllowList(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	r := rand.New(rand.NewSource(1))
	names := []string{"chr1", "chr2", "chrX", "chrUn_1", "scaf1", "scaf2", "MT"}
	ref := fasta.Reference{Name: "r", Path: filepath.Join(tmpdir, "r.fa")}
	allowPath := filepath.Join(tmpdir, "allow.bed")
	for i := 0; i < 50; i++ {
		fai := ""
		for _, name := range names {
			fai += name + "\t" + itoa(r.Int63n(3000)) + "\t0\t60\t61\n"
		}
		writeFile(t, ref.IndexPath(), fai)
		allowed := map[string]bool{}
		bed := ""
		for _, name := range names {
			if r.Intn(2) == 0 {
				allowed[name] = true
				bed += name + "\t0\t1\n"
			}
		}
		writeFile(t, allowPath, bed)

		regions, err := MakeRegions(ctx, []fasta.Reference{ref},
			WindowOpts{Size: 1 + r.Int63n(1000), Base: 1, AllowListPath: allowPath})
		assert.NoError(t, err)
		for _, w := range regions["r"] {
			expect.True(t, allowed[w.Contig], "window %v outside allow-list", w)
		}
	}
}

func TestMakeRegionsErrors(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	ref := fasta.Reference{Name: "a", Path: filepath.Join(tmpdir, "a.fa")}
	writeFile(t, ref.IndexPath(), "chr1\t100\t6\t60\t61\n")
	missing := filepath.Join(tmpdir, "missing.bed")

	_, err := MakeRegions(ctx, []fasta.Reference{ref}, WindowOpts{Size: 0, Base: 1, AllowListPath: missing})
	expect.True(t, errors.Is(errors.Invalid, err))

	_, err = MakeRegions(ctx, []fasta.Reference{ref}, WindowOpts{Size: 10, Base: 1, AllowListPath: missing})
	expect.True(t, errors.Is(errors.NotExist, err))

	regions, err := MakeRegions(ctx, []fasta.Reference{ref},
		WindowOpts{Size: 10, Base: 1, AllowListPath: missing, AllowMissingAllowList: true})
	assert.NoError(t, err)
	expect.EQ(t, len(regions["a"]), 0)

	allowPath := filepath.Join(tmpdir, "allow.bed")
	writeFile(t, allowPath, "chr1\n")
	noIndex := fasta.Reference{Name: "b", Path: filepath.Join(tmpdir, "b.fa")}
	_, err = MakeRegions(ctx, []fasta.Reference{noIndex}, WindowOpts{Size: 10, Base: 1, AllowListPath: allowPath})
	expect.True(t, errors.Is(errors.NotExist, err))
}
