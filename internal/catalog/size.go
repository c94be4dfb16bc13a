package catalog

import "strconv"

// Sizes are formatted in binary units: 1KB = 1024 bytes.
const unitBase = 1024

var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// TotalSelectedSize sums the declared sizes of all checked components. It
// ignores what is installed and is used when downloading into an empty
// destination.
func TotalSelectedSize(sel *Selection) int64 {
	var total int64
	for _, h := range sel.CheckedComponents() {
		total += sel.tree.Node(h).Component.Size
	}
	return total
}

// SizeDelta is the declared size of the checked components minus the actual
// size of every installed component in the catalog. A checked installed
// component with actual size S and declared size D adds D to the proposed side
// and S to the current side, so a pending update shows as D-S. The result is
// negative when the change frees more than it adds.
func SizeDelta(sel *Selection, installed InstalledState) int64 {
	return TotalSelectedSize(sel) - InstalledSize(sel.tree, installed)
}

// InstalledSize sums the recorded sizes of the catalog's installed
// components. Components with unreadable records count as not installed.
func InstalledSize(tree *Tree, installed InstalledState) int64 {
	if installed == nil {
		return 0
	}
	var current int64
	for _, h := range tree.Components() {
		id := tree.Node(h).ID
		if !installed.Exists(id) {
			continue
		}
		if size, err := installed.ActualSize(id); err == nil {
			current += size
		}
	}
	return current
}

// CategorySize sums the declared sizes of every component under h, checked or
// not. For a component it is the component's own declared size.
func CategorySize(tree *Tree, h Handle) int64 {
	var total int64
	tree.WalkFrom(h, func(_ Handle, n *Node) bool {
		if n.IsComponent() {
			total += n.Component.Size
		}
		return true
	})
	return total
}

// FormatBytes renders n in the largest binary unit whose value is at least 1,
// with one fractional digit and no space: 500000000 -> "476.8MB".
// An exact power of 1024 renders as "1.0" in that unit. Rounding happens after
// the unit is chosen, so the top of a bracket can show "1024.0KB".
func FormatBytes(n int64) string {
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-(n + 1)) + 1
	}

	i := 0
	for i < len(units)-1 && u >= uint64(1)<<(10*(i+1)) {
		i++
	}
	v := float64(u) / float64(uint64(1)<<(10*i))

	s := strconv.FormatFloat(v, 'f', 1, 64) + units[i]
	if neg {
		return "-" + s
	}
	return s
}

// FormatDelta is FormatBytes with an explicit sign for positive values.
func FormatDelta(n int64) string {
	if n > 0 {
		return "+" + FormatBytes(n)
	}
	return FormatBytes(n)
}
