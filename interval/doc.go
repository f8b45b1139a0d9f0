/*Package interval splits reference contigs into fixed-size region windows and
  groups contigs into per-chromosome jobs.
  Only contigs named in the contigs-of-interest list (a BED-like file; only the
  first column matters) are windowed.  Windows are 1-based and inclusive by
  default, rendered as "<contig>:<start>-<end>" with nine-digit zero padding so
  that they sort lexically in coordinate order.
*/
package interval
