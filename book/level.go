package book

// levelNode is one price level in a side's price tree: the aggregate open
// volume at Price, plus the subtree height used to keep lookups and
// top-of-book extraction at O(log n)/O(depth).
type levelNode struct {
	Price  uint32
	Volume uint64

	Left   *levelNode
	Right  *levelNode
	Height int
}
