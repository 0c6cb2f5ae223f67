package mozjpeg

import "testing"

func TestBuildEncodeTableCanonicalCodes(t *testing.T) {
	dc := BuildEncodeTable(&StdDCLuminanceSpec)

	// The canonical assignment for the standard DC luminance table:
	// category 0 gets the single 2-bit code, categories 1..5 the 3-bit
	// codes in order.
	testCases := []struct {
		symbol uint8
		code   uint16
		length uint8
	}{
		{0, 0x0, 2},
		{1, 0x2, 3},
		{2, 0x3, 3},
		{3, 0x4, 3},
		{4, 0x5, 3},
		{5, 0x6, 3},
		{6, 0xE, 4},
		{11, 0x1FE, 9},
	}
	for _, tc := range testCases {
		if dc.codes[tc.symbol] != tc.code || dc.lengths[tc.symbol] != tc.length {
			t.Errorf("symbol %d: code %#x len %d, want %#x len %d",
				tc.symbol, dc.codes[tc.symbol], dc.lengths[tc.symbol], tc.code, tc.length)
		}
	}
}

func TestBuildEncodeTableACWellKnownLengths(t *testing.T) {
	ac := BuildEncodeTable(&StdACLuminanceSpec)

	if got := ac.CodeLength(0x01); got != 2 {
		t.Errorf("symbol 0x01 length %d, want 2", got)
	}
	if got := ac.CodeLength(symEOB); got != 4 {
		t.Errorf("EOB length %d, want 4", got)
	}
	if got := ac.CodeLength(symZRL); got != 11 {
		t.Errorf("ZRL length %d, want 11", got)
	}
}

func TestMaxEOBRunStandardTables(t *testing.T) {
	// The standard tables carry no EOBn symbols beyond plain EOB, so runs
	// cap at one block.
	for _, spec := range []*HuffmanSpec{&StdACLuminanceSpec, &StdACChrominanceSpec} {
		ac := BuildEncodeTable(spec)
		if ac.maxEOBRun != 1 {
			t.Errorf("maxEOBRun = %d, want 1", ac.maxEOBRun)
		}
	}
}

func TestJpegNbits(t *testing.T) {
	testCases := []struct {
		v    int32
		want int
	}{
		{0, 0},
		{1, 1},
		{-1, 1},
		{2, 2},
		{-3, 2},
		{255, 8},
		{-256, 9},
		{1023, 10},
	}
	for _, tc := range testCases {
		if got := jpegNbits(tc.v); got != tc.want {
			t.Errorf("jpegNbits(%d) = %d, want %d", tc.v, got, tc.want)
		}
	}
}
