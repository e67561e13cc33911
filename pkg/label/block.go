// CLAUDE:SUMMARY First-token blocking index over diacritic-free reference forms, bounding fuzzy comparisons.
package label

// BlockEntry is one reference inside a block.
type BlockEntry struct {
	Folded    string // diacritic-free form, compared against
	Reference string // display form, returned on a match
}

// BlockIndex maps the first token of a folded reference to the references
// sharing it. A candidate whose first token differs from a true match never
// meets it here: blocking bounds cost, it does not guarantee recall.
type BlockIndex struct {
	blocks map[string][]BlockEntry
}

// NewBlockIndex builds the index once from a frozen reference set.
// Entries inside a block are ordered by folded form.
func NewBlockIndex(rs *ReferenceSet) *BlockIndex {
	idx := &BlockIndex{blocks: make(map[string][]BlockEntry)}
	for _, folded := range rs.foldedKeys() {
		tok := FirstToken(folded)
		display, _ := rs.ByFolded(folded)
		idx.blocks[tok] = append(idx.blocks[tok], BlockEntry{Folded: folded, Reference: display})
	}
	return idx
}

// Block returns the references sharing token. A missing token yields nil.
func (b *BlockIndex) Block(token string) []BlockEntry {
	return b.blocks[token]
}

// Len returns the number of blocks.
func (b *BlockIndex) Len() int {
	return len(b.blocks)
}

// AvgBlockSize returns the mean number of references per block.
func (b *BlockIndex) AvgBlockSize() float64 {
	if len(b.blocks) == 0 {
		return 0
	}
	total := 0
	for _, entries := range b.blocks {
		total += len(entries)
	}
	return float64(total) / float64(len(b.blocks))
}
