package mozjpeg

// HuffmanSpec describes a Huffman table the way DHT segments do: code
// counts per bit length, then symbol values in code order.
type HuffmanSpec struct {
	// Counts[i] is the number of codes of length i bits; Counts[0] is unused.
	Counts [17]uint8
	// Symbols holds the symbol values in increasing code order.
	Symbols []uint8
}

// HuffmanEncodeTable contains precomputed codes and lengths for encoding.
type HuffmanEncodeTable struct {
	codes   [256]uint16
	lengths [256]uint8

	// maxEOBRun is the largest end-of-band run the table can express in a
	// single symbol (progressive AC only).
	maxEOBRun uint16
}

// BuildEncodeTable derives the canonical code assignment from a spec.
func BuildEncodeTable(spec *HuffmanSpec) *HuffmanEncodeTable {
	encTable := &HuffmanEncodeTable{}

	code := uint16(0)
	symbolIdx := 0

	for bits := 1; bits <= 16; bits++ {
		for i := 0; i < int(spec.Counts[bits]); i++ {
			symbol := spec.Symbols[symbolIdx]
			encTable.codes[symbol] = code
			encTable.lengths[symbol] = uint8(bits)
			code++
			symbolIdx++
		}
		code <<= 1
	}

	// Determine max EOB run supported by this table (progressive AC)
	for i := 14; i >= 0; i-- {
		symbol := uint8(i << 4)
		if encTable.lengths[symbol] > 0 {
			encTable.maxEOBRun = uint16((2 << i) - 1)
			break
		}
	}

	return encTable
}

// CodeLength returns the bit length assigned to a symbol, or 0 if the
// symbol has no code in this table.
func (t *HuffmanEncodeTable) CodeLength(symbol uint8) int {
	return int(t.lengths[symbol])
}

// EntropyTables bundles the DC and AC encoding tables for the two table
// classes (0 = luminance, 1 = chrominance).
type EntropyTables struct {
	DC [2]*HuffmanEncodeTable
	AC [2]*HuffmanEncodeTable
}

// StandardEntropyTables builds the Annex K tables used for all scans.
func StandardEntropyTables() *EntropyTables {
	return &EntropyTables{
		DC: [2]*HuffmanEncodeTable{
			BuildEncodeTable(&StdDCLuminanceSpec),
			BuildEncodeTable(&StdDCChrominanceSpec),
		},
		AC: [2]*HuffmanEncodeTable{
			BuildEncodeTable(&StdACLuminanceSpec),
			BuildEncodeTable(&StdACChrominanceSpec),
		},
	}
}

// tableClass maps a component index to its table class. Component 0 is
// luminance, everything else shares the chrominance tables.
func tableClass(cmp int) int {
	if cmp == 0 {
		return 0
	}
	return 1
}

// jpegNbits returns the magnitude category of v: the number of bits needed
// to represent |v|, with jpegNbits(0) == 0.
func jpegNbits(v int32) int {
	if v < 0 {
		v = -v
	}
	n := 0
	for v != 0 {
		n++
		v >>= 1
	}
	return n
}
