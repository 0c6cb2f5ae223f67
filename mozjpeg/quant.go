package mozjpeg

// QualityScaleFactor maps a quality setting in 1..100 to the percentage
// applied to the base quantization tables. Quality 50 keeps the tables as-is,
// lower qualities scale them up, higher qualities scale them down.
func QualityScaleFactor(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	if quality < 50 {
		return 5000 / quality
	}
	return 200 - quality*2
}

// QuantTable holds one quantization table in zigzag order, each step in
// 1..255 (baseline range).
type QuantTable struct {
	Steps [64]uint16
}

// ScaledQuantTable scales a base table (raster order) by the given percentage
// and returns the result in zigzag order. Steps are clamped to 1..255; the
// low clamp keeps division well defined, the high clamp keeps the table
// representable with 8-bit precision.
func ScaledQuantTable(base *[64]uint16, scalePct int) QuantTable {
	var t QuantTable
	for i := 0; i < DCTSize2; i++ {
		v := (int(base[i])*scalePct + 50) / 100
		if v < 1 {
			v = 1
		}
		if v > 255 {
			v = 255
		}
		t.Steps[RasterToZigzag[i]] = uint16(v)
	}
	return t
}

// StandardQuantTables returns the Annex K luminance and chrominance tables
// scaled for the given quality.
func StandardQuantTables(quality int) (luma, chroma QuantTable) {
	pct := QualityScaleFactor(quality)
	return ScaledQuantTable(&StdLuminanceQuantTbl, pct),
		ScaledQuantTable(&StdChrominanceQuantTbl, pct)
}

// Validate rejects tables with a zero step. A zero divisor would make
// quantization undefined, so it is a configuration error rather than
// something to patch up silently.
func (t *QuantTable) Validate() error {
	for i, s := range t.Steps {
		if s == 0 {
			return ErrCodef(CodeBadQuantTable, "zero step at zigzag index %d", i)
		}
	}
	return nil
}

// meanSquareStep returns the mean of the squared AC step sizes. The DC step
// is excluded: DC prediction makes its rate behavior unlike the AC band.
func (t *QuantTable) meanSquareStep() float64 {
	var sum float64
	for i := 1; i < DCTSize2; i++ {
		s := float64(t.Steps[i])
		sum += s * s
	}
	return sum / float64(DCTSize2-1)
}

// TableLambda derives the rate-distortion multiplier for a table. Coarser
// tables produce larger quantization error per coefficient, so the same bit
// saving must be allowed to offset more distortion; lambda therefore grows
// monotonically with the step sizes. The weight is the caller's tradeoff
// knob, 1.0 by default.
func (t *QuantTable) TableLambda(weight float64) float64 {
	return weight * t.meanSquareStep() / 16.0
}
