package mozjpeg

import "io"

// testSource generates deterministic coefficient blocks for a layout.
// Low frequencies carry most of the energy, the way real transforms do.
type testSource struct {
	layout *ComponentLayout
	cmp    int
	x, y   uint32
	rng    uint32
}

func newTestSource(layout *ComponentLayout, seed uint32) *testSource {
	if seed == 0 {
		seed = 1
	}
	return &testSource{layout: layout, rng: seed}
}

func (s *testSource) next() uint32 {
	// xorshift32
	s.rng ^= s.rng << 13
	s.rng ^= s.rng >> 17
	s.rng ^= s.rng << 5
	return s.rng
}

func (s *testSource) Next() (int, uint32, uint32, [64]int16, error) {
	for s.cmp < len(s.layout.Components) {
		ci := &s.layout.Components[s.cmp]
		if s.y >= ci.Bcv {
			s.cmp++
			s.x, s.y = 0, 0
			continue
		}
		cmp, x, y := s.cmp, s.x, s.y

		var raster [64]int16
		raster[0] = int16(s.next()%1024) - 512
		for i := 1; i < DCTSize2; i++ {
			r := s.next()
			switch {
			case i < 10:
				raster[i] = int16(r%128) - 64
			case i < 32 && r%3 == 0:
				raster[i] = int16(r%32) - 16
			case r%11 == 0:
				raster[i] = int16(r%8) - 4
			}
		}

		s.x++
		if s.x >= ci.Bch {
			s.x = 0
			s.y++
		}
		return cmp, x, y, raster, nil
	}
	return 0, 0, 0, [64]int16{}, io.EOF
}

// buildTestGrid fills and quantizes a grid for entropy and selection tests.
func buildTestGrid(t interface{ Fatalf(string, ...interface{}) }, layout *ComponentLayout, seed uint32, quality int) *CoefficientGrid {
	grid, err := FillGridFromSource(layout, newTestSource(layout, seed))
	if err != nil {
		t.Fatalf("FillGridFromSource: %v", err)
	}
	luma, chroma := StandardQuantTables(quality)
	tables := []*QuantTable{&luma}
	if !layout.IsGray() {
		tables = append(tables, &chroma)
	}
	opt := NewRateDistortionOptimizer(DefaultTrellisOptions(), StandardEntropyTables())
	if err := opt.OptimizeGrid(grid, tables); err != nil {
		t.Fatalf("OptimizeGrid: %v", err)
	}
	return grid
}

func mustLayout(t interface{ Fatalf(string, ...interface{}) }, width, height uint32, sampling []SamplingFactor) *ComponentLayout {
	layout, err := ComputeLayout(width, height, sampling)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	return layout
}
