package mozjpeg

// ComponentInfo holds per-component geometry derived from the image size
// and sampling factors.
type ComponentInfo struct {
	// Jid is the JPEG component ID written into scan headers
	Jid uint8

	// Sfh is the horizontal sampling factor
	Sfh uint32

	// Sfv is the vertical sampling factor
	Sfv uint32

	// QuantIndex selects the quantization table (0 = luma, 1 = chroma)
	QuantIndex uint8

	// Bch is the block count horizontal, padded to whole MCUs
	Bch uint32

	// Bcv is the block count vertical, padded to whole MCUs
	Bcv uint32

	// Bc is the total padded block count
	Bc uint32

	// Nch is the block count horizontal without MCU padding
	Nch uint32

	// Ncv is the block count vertical without MCU padding
	Ncv uint32
}

// ComponentLayout describes the component geometry of one image.
type ComponentLayout struct {
	Width  uint32
	Height uint32

	Components []ComponentInfo

	MaxSfh uint32
	MaxSfv uint32

	// Mcuh and Mcuv are the MCU counts across and down
	Mcuh uint32
	Mcuv uint32
}

// SamplingFactor is a horizontal/vertical sampling pair for one component.
type SamplingFactor struct {
	H uint32
	V uint32
}

// Common sampling configurations.
var (
	SamplingGray = []SamplingFactor{{1, 1}}
	Sampling444  = []SamplingFactor{{1, 1}, {1, 1}, {1, 1}}
	Sampling420  = []SamplingFactor{{2, 2}, {1, 1}, {1, 1}}
	Sampling422  = []SamplingFactor{{2, 1}, {1, 1}, {1, 1}}
)

// ComputeLayout derives the full component geometry from the pixel
// dimensions and sampling factors. Validation is eager: a malformed layout
// fails here, before any coefficient block is touched.
func ComputeLayout(width, height uint32, sampling []SamplingFactor) (*ComponentLayout, error) {
	if width == 0 || height == 0 {
		return nil, ErrCode(CodeBadLayout, "image dimensions cannot be zero")
	}
	if len(sampling) == 0 || len(sampling) > MaxComponents {
		return nil, ErrCodef(CodeBadLayout, "component count %d out of range 1..%d",
			len(sampling), MaxComponents)
	}

	layout := &ComponentLayout{
		Width:      width,
		Height:     height,
		Components: make([]ComponentInfo, len(sampling)),
		MaxSfh:     1,
		MaxSfv:     1,
	}

	for i, sf := range sampling {
		if sf.H == 0 || sf.V == 0 || sf.H > 2 || sf.V > 2 {
			return nil, ErrCodef(CodeBadLayout,
				"component %d sampling factor %dx%d not supported", i, sf.H, sf.V)
		}
		if sf.H > layout.MaxSfh {
			layout.MaxSfh = sf.H
		}
		if sf.V > layout.MaxSfv {
			layout.MaxSfv = sf.V
		}
	}

	mcuWidth := layout.MaxSfh * 8
	mcuHeight := layout.MaxSfv * 8
	layout.Mcuh = (width + mcuWidth - 1) / mcuWidth
	layout.Mcuv = (height + mcuHeight - 1) / mcuHeight

	for i, sf := range sampling {
		ci := &layout.Components[i]
		ci.Jid = uint8(i + 1)
		ci.Sfh = sf.H
		ci.Sfv = sf.V
		if i > 0 {
			ci.QuantIndex = 1
		}

		ci.Bch = layout.Mcuh * sf.H
		ci.Bcv = layout.Mcuv * sf.V
		ci.Bc = ci.Bch * ci.Bcv
		ci.Nch = (width*sf.H + mcuWidth - 1) / mcuWidth
		ci.Ncv = (height*sf.V + mcuHeight - 1) / mcuHeight
	}

	return layout, nil
}

// IsGray reports whether the layout is single-component.
func (l *ComponentLayout) IsGray() bool {
	return len(l.Components) == 1
}
