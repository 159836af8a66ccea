package index

// The binned index uses the SAM/BAM hierarchical binning scheme: six levels
// of bins over positions up to 2^29-1, with 16384bp windows for the linear
// index. Bin assignment is a pure function of the record's coordinate span.

const (
	// TileWidth is the genomic span covered by one linear-index window.
	TileWidth = 1 << 14

	// maxBinID is the largest real bin id (level 5 bin of the last tile).
	maxBinID = ((1 << 18) - 1) / 7

	// StatsBin is the pseudo-bin id that carries per-reference statistics
	// in the serialized index. It is never produced by RegionToBin.
	StatsBin = maxBinID + 1
)

// RegionToBin returns the single bin covering the zero-based half-open
// interval [beg, end). A record is assigned to the smallest bin that fully
// contains its span.
func RegionToBin(beg, end int) uint32 {
	end--
	switch {
	case beg>>14 == end>>14:
		return uint32(((1<<15)-1)/7 + beg>>14)
	case beg>>17 == end>>17:
		return uint32(((1<<12)-1)/7 + beg>>17)
	case beg>>20 == end>>20:
		return uint32(((1<<9)-1)/7 + beg>>20)
	case beg>>23 == end>>23:
		return uint32(((1<<6)-1)/7 + beg>>23)
	case beg>>26 == end>>26:
		return uint32(((1<<3)-1)/7 + beg>>26)
	}
	return 0
}

// windowIndex returns the linear-index window holding position pos.
func windowIndex(pos int) int {
	return pos / TileWidth
}
