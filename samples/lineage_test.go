package samples_test

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/runmeta/samples"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, dir, name, data string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	return path
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		library, include string
		hasInclude       bool
		want             bool
	}{
		{"lib1", "", false, false},
		{"", "", false, true},
		{"blank1", "", false, true},
		{"BLANK_extraction", "Y", true, true},
		{"Blank", "", false, true},
		{"lib1", "Y", true, false},
		{"lib1", "N", true, true},
		{"lib1", "", true, true},
		{"lib1", "y", true, true},
		{"notblank", "", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, samples.Excluded(tt.library, tt.include, tt.hasInclude), "%+v", tt)
	}
}

func TestReadLineage(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	path := writeTable(t, tmpdir, "sample2runlib.csv",
		"run,library,sample,Include,notes\n"+
			"R1,L1,S1,Y,\n"+
			"R2,L1,S1,Y,resequenced\n"+
			"R1,L2,S2,Y,\n"+
			"R1,blank-01,S3,Y,\n"+
			"R1,,S4,Y,\n"+
			"R3,L3,S5,N,failed QC\n"+
			"R1,L1,S1,Y,duplicate row\n")
	lin, err := samples.ReadLineage(ctx, path, samples.DefaultLineageOpts)
	require.NoError(t, err)
	assert.Equal(t, map[samples.RunLibrary]string{
		{Run: "R1", Library: "L1"}: "S1",
		{Run: "R2", Library: "L1"}: "S1",
		{Run: "R1", Library: "L2"}: "S2",
	}, lin.RunLibToSample)
	assert.Equal(t, map[string][]samples.RunLibrary{
		"S1": {{Run: "R1", Library: "L1"}, {Run: "R2", Library: "L1"}},
		"S2": {{Run: "R1", Library: "L2"}},
	}, lin.SampleToRunLibs)
}

func TestReadLineageWithoutIncludeColumn(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	path := writeTable(t, tmpdir, "sample2runlib.tsv",
		"sample\trun\tlibrary\n"+
			"S1\tR1\tL1\n"+
			"S2\tR1\tBlankLib\n"+
			"S3\tR2\tL9\n")
	lin, err := samples.ReadLineage(ctx, path, samples.DefaultLineageOpts)
	require.NoError(t, err)
	assert.Equal(t, map[samples.RunLibrary]string{
		{Run: "R1", Library: "L1"}: "S1",
		{Run: "R2", Library: "L9"}: "S3",
	}, lin.RunLibToSample)
	assert.Len(t, lin.SampleToRunLibs, 2)
}

func TestReadLineageDuplicateKeys(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	path := writeTable(t, tmpdir, "dups.csv",
		"run,library,sample\n"+
			"R1,L1,S1\n"+
			"R1,L1,S2\n")

	// Last row wins for the key; the earlier sample keeps its claim.
	lin, err := samples.ReadLineage(ctx, path, samples.DefaultLineageOpts)
	require.NoError(t, err)
	rl := samples.RunLibrary{Run: "R1", Library: "L1"}
	assert.Equal(t, "S2", lin.RunLibToSample[rl])
	assert.Equal(t, []samples.RunLibrary{rl}, lin.SampleToRunLibs["S1"])
	assert.Equal(t, []samples.RunLibrary{rl}, lin.SampleToRunLibs["S2"])

	_, err = samples.ReadLineage(ctx, path, samples.LineageOpts{StrictDuplicates: true})
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Contains(t, err.Error(), "R1/L1 already maps to sample S1")
}

func TestReadLineageErrors(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	_, err := samples.ReadLineage(ctx, filepath.Join(tmpdir, "missing.csv"), samples.DefaultLineageOpts)
	assert.True(t, errors.Is(errors.NotExist, err))

	path := writeTable(t, tmpdir, "nocols.csv", "sample,Include\nS1,Y\n")
	_, err = samples.ReadLineage(ctx, path, samples.DefaultLineageOpts)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Contains(t, err.Error(), "missing required column(s) run, library")

	path = writeTable(t, tmpdir, "empty.csv", "")
	_, err = samples.ReadLineage(ctx, path, samples.DefaultLineageOpts)
	assert.True(t, errors.Is(errors.Invalid, err))

	path = writeTable(t, tmpdir, "ragged.csv", "run,library,sample\nR1,L1\n")
	_, err = samples.ReadLineage(ctx, path, samples.DefaultLineageOpts)
	assert.True(t, errors.Is(errors.Invalid, err))
}
