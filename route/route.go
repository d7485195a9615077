// Package route provides a read-only routing table and longest-prefix-match
// lookup over 32-bit IPv4 destinations.
package route

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Route is a single entry of a routing table: traffic destined for Dest&Mask
// goes out IfaceName, next-hop Gateway (or the packet's own destination if
// Gateway is the zero address).
type Route struct {
	Dest      [4]byte
	Mask      [4]byte
	Gateway   [4]byte
	IfaceName string
}

func (r Route) String() string {
	return fmt.Sprintf("%d.%d.%d.%d/%d via %d.%d.%d.%d dev %s",
		r.Dest[0], r.Dest[1], r.Dest[2], r.Dest[3], maskBits(r.Mask),
		r.Gateway[0], r.Gateway[1], r.Gateway[2], r.Gateway[3], r.IfaceName)
}

func maskBits(mask [4]byte) int {
	return bits.OnesCount32(binary.BigEndian.Uint32(mask[:]))
}

// Table is a read-only, ordered routing table.
type Table struct {
	routes []Route
}

// NewTable builds a Table preserving the order of routes; this order is the
// scan order used to break ties in LPM.
func NewTable(routes []Route) Table {
	return Table{routes: append([]Route(nil), routes...)}
}

// LPM performs a longest-prefix-match lookup for dest: among every route
// whose masked destination equals dest masked by the same mask, the route
// with the greatest population count of Mask wins. Ties keep the first
// match in table scan order. The legacy implementation this router
// replaces compared the raw integer value of (mask & dest) across
// candidates as if it were a prefix length, which does not monotonically
// increase with prefix length; this selects by mask bit-count instead.
func (t Table) LPM(dest [4]byte) (Route, bool) {
	var (
		best     Route
		bestBits = -1
		found    bool
	)
	destInt := binary.BigEndian.Uint32(dest[:])
	for _, r := range t.routes {
		maskInt := binary.BigEndian.Uint32(r.Mask[:])
		rDestInt := binary.BigEndian.Uint32(r.Dest[:])
		if destInt&maskInt != rDestInt&maskInt {
			continue
		}
		nbits := bits.OnesCount32(maskInt)
		if nbits > bestBits {
			best = r
			bestBits = nbits
			found = true
		}
	}
	return best, found
}

// All returns every route in the table, in scan order.
func (t Table) All() []Route {
	return t.routes
}
