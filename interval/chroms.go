package interval

import (
	"context"
	"strings"

	"github.com/grailbio/runmeta/encoding/fasta"
)

// ScaffoldsGroup collects every contig that is not a chromosome.
const ScaffoldsGroup = "scaffolds"

// ChromGroups maps a group name to its contigs, in index order.
type ChromGroups map[string][]string

// IsChromosome reports whether a contig is treated as a chromosome, i.e.
// whether its name starts with "chr", ignoring case.
func IsChromosome(contig string) bool {
	return len(contig) >= 3 && strings.EqualFold(contig[:3], "chr")
}

// GroupContigs puts every chromosome in a singleton group named after itself
// and the remaining contigs in ScaffoldsGroup.  ScaffoldsGroup is absent when
// there are no such contigs.
func GroupContigs(contigs []fasta.Contig) ChromGroups {
	groups := ChromGroups{}
	var scaffolds []string
	for _, c := range contigs {
		if IsChromosome(c.Name) {
			groups[c.Name] = []string{c.Name}
		} else {
			scaffolds = append(scaffolds, c.Name)
		}
	}
	if len(scaffolds) > 0 {
		groups[ScaffoldsGroup] = scaffolds
	}
	return groups
}

// MakeChroms groups the contigs of each reference.  Unlike MakeRegions, every
// contig in the index takes part; no allow-list is applied.
func MakeChroms(ctx context.Context, refs []fasta.Reference) (map[string]ChromGroups, error) {
	chroms := make(map[string]ChromGroups, len(refs))
	for _, ref := range refs {
		contigs, err := fasta.ReadIndexPath(ctx, ref.IndexPath())
		if err != nil {
			return nil, err
		}
		chroms[ref.Name] = GroupContigs(contigs)
	}
	return chroms, nil
}
