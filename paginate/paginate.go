// Package paginate partitions inclusive integer ranges into bounded
// sub-ranges, spec §4.7. Partition splits level ranges (chainsync);
// PartitionIds splits id lists into batches and has no caller outside
// its tests.
package paginate

// Range is an inclusive integer range [Start, End]. An empty range has
// End < Start.
type Range struct {
	Start, End int
}

// Len returns the number of integers covered by r, or 0 if r is empty.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Empty reports whether r covers no integers.
func (r Range) Empty() bool { return r.End < r.Start }

// Partition splits r into contiguous sub-ranges each of size at most
// pageSize, preserving order and omitting the empty tail. An empty
// input range yields an empty slice (spec property 1).
func Partition(r Range, pageSize int) []Range {
	if pageSize < 1 {
		pageSize = 1
	}
	if r.Empty() {
		return nil
	}

	var pages []Range
	for start := r.Start; start <= r.End; start += pageSize {
		end := start + pageSize - 1
		if end > r.End {
			end = r.End
		}
		pages = append(pages, Range{Start: start, End: end})
	}
	return pages
}

// PartitionIds splits ids into contiguous batches of at most pageSize
// elements, the account-id analogue of Partition (spec §4.7: "used for
// ... account-id lists by indexing into the id list").
func PartitionIds[T any](ids []T, pageSize int) [][]T {
	if pageSize < 1 {
		pageSize = 1
	}
	if len(ids) == 0 {
		return nil
	}
	var batches [][]T
	for start := 0; start < len(ids); start += pageSize {
		end := start + pageSize
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
