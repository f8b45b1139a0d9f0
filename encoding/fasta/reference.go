package fasta

// IndexSuffix is appended to a FASTA path to locate its samtools index.
const IndexSuffix = ".fai"

// Reference names a reference genome and the FASTA file holding it.
type Reference struct {
	Name string
	Path string
}

// IndexPath returns the path of the reference's .fai index.
func (r Reference) IndexPath() string {
	return r.Path + IndexSuffix
}

// Contig is one named sequence listed in a FASTA index.
type Contig struct {
	Name   string
	Length int64
}
