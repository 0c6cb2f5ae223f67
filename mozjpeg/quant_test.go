package mozjpeg

import "testing"

func TestQualityScaleFactor(t *testing.T) {
	testCases := []struct {
		quality int
		want    int
	}{
		{1, 5000},
		{10, 500},
		{25, 200},
		{50, 100},
		{75, 50},
		{90, 20},
		{100, 0},
		{-5, 5000}, // clamped to 1
		{200, 0},   // clamped to 100
	}

	for _, tc := range testCases {
		if got := QualityScaleFactor(tc.quality); got != tc.want {
			t.Errorf("QualityScaleFactor(%d) = %d, want %d", tc.quality, got, tc.want)
		}
	}
}

func TestScaledQuantTableClamps(t *testing.T) {
	// Quality 100 scales everything to 0 before clamping
	luma, _ := StandardQuantTables(100)
	for i, s := range luma.Steps {
		if s != 1 {
			t.Errorf("quality 100 step[%d] = %d, want 1", i, s)
		}
	}

	// Quality 1 scales by 5000%; large base steps must clamp to 255
	luma, _ = StandardQuantTables(1)
	for i, s := range luma.Steps {
		if s < 1 || s > 255 {
			t.Errorf("quality 1 step[%d] = %d outside 1..255", i, s)
		}
	}
}

func TestScaledQuantTableZigzagOrder(t *testing.T) {
	// At quality 50 the table is the base table reordered to zigzag
	luma, _ := StandardQuantTables(50)
	for raster := 0; raster < DCTSize2; raster++ {
		zz := RasterToZigzag[raster]
		if luma.Steps[zz] != StdLuminanceQuantTbl[raster] {
			t.Errorf("zigzag %d: got %d, want base[%d] = %d",
				zz, luma.Steps[zz], raster, StdLuminanceQuantTbl[raster])
		}
	}
}

func TestQuantTableValidateZeroStep(t *testing.T) {
	luma, _ := StandardQuantTables(50)
	if err := luma.Validate(); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}

	luma.Steps[17] = 0
	err := luma.Validate()
	if err == nil {
		t.Fatal("zero step accepted")
	}
	ee, ok := IsEncodeError(err)
	if !ok || ee.Code != CodeBadQuantTable {
		t.Errorf("got %v, want CodeBadQuantTable", err)
	}
}

func TestTableLambdaMonotonicInQuality(t *testing.T) {
	// Lower quality means coarser steps, which must raise lambda
	prev := -1.0
	for _, quality := range []int{95, 85, 70, 50, 30, 10} {
		luma, _ := StandardQuantTables(quality)
		lambda := luma.TableLambda(1.0)
		if lambda <= prev {
			t.Errorf("quality %d: lambda %g not above previous %g", quality, lambda, prev)
		}
		prev = lambda
	}
}
