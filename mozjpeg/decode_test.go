package mozjpeg

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"
	"testing"
)

// positionDCSource emits DC-only blocks whose flat value encodes the
// block's grid position, so a decode detects any misplacement. Padding
// blocks outside the image get a neutral zero.
type positionDCSource struct {
	layout *ComponentLayout
	cmp    int
	x, y   uint32
}

// positionDCWant is the decoded sample value for a block, distinct per
// position within a plane. A raw DC of 8*(v-128) dequantizes at quality
// 100 to a flat block of value v.
func positionDCWant(bx, by uint32) int {
	return 70 + 6*int(by*4+bx)
}

func (s *positionDCSource) Next() (int, uint32, uint32, [64]int16, error) {
	for s.cmp < len(s.layout.Components) {
		ci := &s.layout.Components[s.cmp]
		if s.y >= ci.Bcv {
			s.cmp++
			s.x, s.y = 0, 0
			continue
		}
		cmp, bx, by := s.cmp, s.x, s.y

		var raster [64]int16
		if bx < ci.Nch && by < ci.Ncv {
			raster[0] = int16(positionDCWant(bx, by)-128) * 8
		}

		s.x++
		if s.x >= ci.Bch {
			s.x = 0
			s.y++
		}
		return cmp, bx, by, raster, nil
	}
	return 0, 0, 0, [64]int16{}, io.EOF
}

func decodedSample(t *testing.T, img image.Image, cmp, x, y int) int {
	t.Helper()
	switch im := img.(type) {
	case *image.Gray:
		return int(im.GrayAt(x, y).Y)
	case *image.YCbCr:
		switch cmp {
		case 0:
			return int(im.Y[im.YOffset(x, y)])
		case 1:
			return int(im.Cb[im.COffset(x, y)])
		default:
			return int(im.Cr[im.COffset(x, y)])
		}
	}
	t.Fatalf("unexpected decoded image type %T", img)
	return 0
}

func TestDecodeRoundTripBlockPlacement(t *testing.T) {
	testCases := []struct {
		name     string
		sampling []SamplingFactor
		width    uint32
		height   uint32
	}{
		{"gray aligned", SamplingGray, 32, 32},
		{"gray unaligned", SamplingGray, 20, 20},
		{"444 unaligned", Sampling444, 20, 20},
		{"420 aligned", Sampling420, 32, 32},
		{"420 unaligned", Sampling420, 20, 20},
		{"422 unaligned", Sampling422, 20, 20},
	}

	for _, progressive := range []bool{false, true} {
		mode := "sequential"
		if progressive {
			mode = "progressive"
		}
		for _, tc := range testCases {
			t.Run(mode+"/"+tc.name, func(t *testing.T) {
				cfg := Config{
					Width:       tc.width,
					Height:      tc.height,
					Sampling:    tc.sampling,
					Quality:     100,
					Progressive: progressive,
					Trellis:     DefaultTrellisOptions(),
				}
				enc, err := NewEncoder(cfg)
				if err != nil {
					t.Fatalf("NewEncoder: %v", err)
				}

				var out bytes.Buffer
				if _, err := enc.Encode(&positionDCSource{layout: enc.Layout()}, &out); err != nil {
					t.Fatalf("Encode: %v", err)
				}

				img, err := jpeg.Decode(bytes.NewReader(out.Bytes()))
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				if b := img.Bounds(); b.Dx() != int(tc.width) || b.Dy() != int(tc.height) {
					t.Fatalf("decoded %dx%d, want %dx%d", b.Dx(), b.Dy(), tc.width, tc.height)
				}

				// Sample each block's top-left pixel of each plane and
				// check it decodes to that block's own value.
				layout := enc.Layout()
				for cmp := range layout.Components {
					ci := &layout.Components[cmp]
					ratioH := int(layout.MaxSfh / ci.Sfh)
					ratioV := int(layout.MaxSfv / ci.Sfv)
					for by := uint32(0); by < ci.Ncv; by++ {
						for bx := uint32(0); bx < ci.Nch; bx++ {
							x := int(bx) * 8 * ratioH
							y := int(by) * 8 * ratioV
							got := decodedSample(t, img, cmp, x, y)
							want := positionDCWant(bx, by)
							if got < want-2 || got > want+2 {
								t.Errorf("component %d block (%d,%d): decoded %d, want %d",
									cmp, bx, by, got, want)
							}
						}
					}
				}
			})
		}
	}
}
