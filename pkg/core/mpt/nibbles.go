package mpt

import "bytes"

// Nibbles is a standalone sequence of 4-bit symbols stored one per byte.
type Nibbles []byte

// NibblePath is a key viewed as a sequence of nibbles with a cursor over it.
// Key bytes are shared between copies, only the cursor is copied.
type NibblePath struct {
	data   []byte
	offset int
}

// NewNibblePath returns a path over the key positioned at its first nibble.
func NewNibblePath(key []byte) NibblePath {
	return NibblePath{data: key}
}

func newNibblePathAt(key []byte, offset int) NibblePath {
	p := NibblePath{data: key}
	p.OffsetAdd(offset)
	return p
}

// nibbleAt returns the i-th nibble of the key, high nibble first.
func nibbleAt(key []byte, i int) byte {
	b := key[i/2]
	if i%2 == 0 {
		return b >> 4
	}
	return b & 0x0f
}

// Data returns the full underlying key.
func (p NibblePath) Data() []byte { return p.data }

// Offset returns the number of nibbles consumed so far.
func (p NibblePath) Offset() int { return p.offset }

// Len returns the number of remaining nibbles.
func (p NibblePath) Len() int { return 2*len(p.data) - p.offset }

// Nth returns the i-th remaining nibble.
func (p NibblePath) Nth(i int) (byte, bool) {
	if i < 0 || i >= p.Len() {
		return 0, false
	}
	return nibbleAt(p.data, p.offset+i), true
}

// Next consumes and returns the next nibble.
func (p *NibblePath) Next() (byte, bool) {
	n, ok := p.Nth(0)
	if ok {
		p.offset++
	}
	return n, ok
}

// OffsetAdd moves the cursor n nibbles forward, stopping at the end of the key.
func (p *NibblePath) OffsetAdd(n int) {
	p.offset += n
	if end := 2 * len(p.data); p.offset > end {
		p.offset = end
	}
}

// CountPrefix returns the length of the common prefix of the remaining
// nibbles of both paths.
func (p NibblePath) CountPrefix(other NibblePath) int {
	var i int
	for ; i < p.Len() && i < other.Len(); i++ {
		if nibbleAt(p.data, p.offset+i) != nibbleAt(other.data, other.offset+i) {
			break
		}
	}
	return i
}

// CountPrefixNibbles returns the length of the common prefix of the remaining
// nibbles and n.
func (p NibblePath) CountPrefixNibbles(n Nibbles) int {
	var i int
	for ; i < p.Len() && i < len(n); i++ {
		if nibbleAt(p.data, p.offset+i) != n[i] {
			break
		}
	}
	return i
}

// CmpRest checks that the remaining nibbles are equal to the nibbles of key
// starting at the same offset and that both end together.
func (p NibblePath) CmpRest(key []byte) bool {
	if len(key) != len(p.data) {
		return false
	}
	i := p.offset
	if i%2 == 1 {
		if nibbleAt(key, i) != nibbleAt(p.data, i) {
			return false
		}
		i++
	}
	return bytes.Equal(key[i/2:], p.data[i/2:])
}

// SplitToVec copies the first n remaining nibbles (or less if there are not
// enough of them).
func (p NibblePath) SplitToVec(n int) Nibbles {
	if n > p.Len() {
		n = p.Len()
	}
	res := make(Nibbles, n)
	for i := range res {
		res[i] = nibbleAt(p.data, p.offset+i)
	}
	return res
}

// toNibbles mangles path by splitting every byte into 2 nibbles.
func toNibbles(path []byte) Nibbles {
	return NewNibblePath(path).SplitToVec(2 * len(path))
}

// compactEncode returns the hex-prefix encoding of the nibbles with the
// leaf flag set if needed.
func compactEncode(n Nibbles, leaf bool) []byte {
	res := make([]byte, len(n)/2+1)
	if leaf {
		res[0] = 0x20
	}
	i := 0
	if len(n)%2 == 1 {
		res[0] |= 0x10 | n[0]
		i = 1
	}
	for j := 1; i < len(n); i, j = i+2, j+1 {
		res[j] = n[i]<<4 | n[i+1]
	}
	return res
}

// compactDecode is the inverse of compactEncode.
func compactDecode(b []byte) (Nibbles, bool) {
	if len(b) == 0 {
		return Nibbles{}, false
	}
	leaf := b[0]&0x20 != 0
	n := toNibbles(b)
	if b[0]&0x10 != 0 {
		return n[1:], leaf
	}
	return n[2:], leaf
}
