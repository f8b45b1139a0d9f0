package cmd

import (
	"bytes"
	"testing"

	"github.com/grailbio/runmeta/samples"
	"github.com/grailbio/testutil/expect"
)

func TestLineageToJSON(t *testing.T) {
	lin := &samples.Lineage{
		RunLibToSample: map[samples.RunLibrary]string{
			{Run: "R2", Library: "L1"}: "S2",
			{Run: "R1", Library: "L2"}: "S1",
			{Run: "R1", Library: "L1"}: "S1",
		},
		SampleToRunLibs: map[string][]samples.RunLibrary{
			"S1": {{Run: "R1", Library: "L1"}, {Run: "R1", Library: "L2"}},
			"S2": {{Run: "R2", Library: "L1"}},
		},
	}
	out := lineageToJSON(lin)
	expect.EQ(t, out.RunLibToSample, []runLibJSON{
		{Run: "R1", Library: "L1", Sample: "S1"},
		{Run: "R1", Library: "L2", Sample: "S1"},
		{Run: "R2", Library: "L1", Sample: "S2"},
	})
	expect.EQ(t, out.SampleToRunLibs["S2"], []runLibJSON{{Run: "R2", Library: "L1"}})

	var buf bytes.Buffer
	expect.NoError(t, writeJSON(&buf, out))
	expect.Regexp(t, buf.String(), `"runlib2samp"`)
	expect.Regexp(t, buf.String(), `"samp2runlib"`)
}
