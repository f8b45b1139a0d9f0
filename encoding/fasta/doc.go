// Package fasta reads and writes samtools FASTA indexes (*.fai).
// See http://www.htslib.org/doc/faidx.html.  Briefly, an index has one
// tab-separated line per sequence in the associated FASTA file:
//
//   <sequence name> <length> <byte offset> <bases per line> <bytes per line>
//
// For example: "chr3\t12345\t9000\t80\t81".  Sequence names are the stretch
// of characters excluding spaces immediately after '>' in the FASTA file, so
// '>chr1 A viral sequence' is indexed as 'chr1'.
package fasta
