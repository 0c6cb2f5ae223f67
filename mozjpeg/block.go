package mozjpeg

import "io"

// maxRawCoef bounds raw transform coefficients for 8-bit samples.
const maxRawCoef = 1 << 13

// Block holds the 64 coefficients of one 8x8 tile in zigzag order.
// CoefficientSource fills it with raw DCT values; the rate-distortion
// optimizer rewrites it in place with quantized levels, after which it is
// read-only for the rest of the pipeline.
type Block struct {
	Coef [64]int16
}

// BlockFromRaster builds a Block from raster (row-major) coefficients.
func BlockFromRaster(raster [64]int16) Block {
	var b Block
	for i := 0; i < DCTSize2; i++ {
		b.Coef[RasterToZigzag[i]] = raster[i]
	}
	return b
}

// Raster returns the coefficients in raster (row-major) order.
func (b *Block) Raster() [64]int16 {
	var r [64]int16
	for i := 0; i < DCTSize2; i++ {
		r[ZigzagToRaster[i]] = b.Coef[i]
	}
	return r
}

// lastNonZero returns the zigzag index of the last nonzero coefficient,
// or 0 if only the DC (possibly zero) remains.
func (b *Block) lastNonZero() int {
	for i := DCTSize2 - 1; i > 0; i-- {
		if b.Coef[i] != 0 {
			return i
		}
	}
	return 0
}

// CoefficientPlane stores all blocks for one component, row-major. The plane
// is allocated at full padded size up front; each cell must be written
// exactly once before encoding starts.
type CoefficientPlane struct {
	blocks  []Block
	written []bool
	filled  int

	widthBlocks  uint32
	heightBlocks uint32
}

// NewCoefficientPlane allocates an empty plane for a component.
func NewCoefficientPlane(ci *ComponentInfo) *CoefficientPlane {
	total := int(ci.Bc)
	return &CoefficientPlane{
		blocks:       make([]Block, total),
		written:      make([]bool, total),
		widthBlocks:  ci.Bch,
		heightBlocks: ci.Bcv,
	}
}

// WidthBlocks returns the padded block width of the plane.
func (p *CoefficientPlane) WidthBlocks() uint32 { return p.widthBlocks }

// HeightBlocks returns the padded block height of the plane.
func (p *CoefficientPlane) HeightBlocks() uint32 { return p.heightBlocks }

// NumBlocks returns the total padded block count.
func (p *CoefficientPlane) NumBlocks() int { return len(p.blocks) }

// GetBlock returns a pointer to the block at the linear position dpos,
// or nil if dpos is out of range.
func (p *CoefficientPlane) GetBlock(dpos uint32) *Block {
	if dpos >= uint32(len(p.blocks)) {
		return nil
	}
	return &p.blocks[dpos]
}

// GetBlockXY returns a pointer to the block at the given grid position.
func (p *CoefficientPlane) GetBlockXY(blockX, blockY uint32) *Block {
	return p.GetBlock(blockY*p.widthBlocks + blockX)
}

// SetBlock writes the block at the given grid position. Writing the same
// cell twice is a data error.
func (p *CoefficientPlane) SetBlock(blockX, blockY uint32, b Block) error {
	if blockX >= p.widthBlocks || blockY >= p.heightBlocks {
		return ErrCodef(CodeBadLayout, "block position (%d,%d) outside plane %dx%d",
			blockX, blockY, p.widthBlocks, p.heightBlocks)
	}
	idx := blockY*p.widthBlocks + blockX
	if p.written[idx] {
		return ErrCodef(CodeDuplicateBlock, "block (%d,%d) written twice", blockX, blockY)
	}
	p.blocks[idx] = b
	p.written[idx] = true
	p.filled++
	return nil
}

// Complete reports whether every cell has been written exactly once.
func (p *CoefficientPlane) Complete() bool {
	return p.filled == len(p.blocks)
}

// missingBlock returns the grid position of the first unwritten cell.
func (p *CoefficientPlane) missingBlock() (uint32, uint32) {
	for i, w := range p.written {
		if !w {
			return uint32(i) % p.widthBlocks, uint32(i) / p.widthBlocks
		}
	}
	return 0, 0
}

// CoefficientGrid owns the coefficient planes for one image.
type CoefficientGrid struct {
	Layout *ComponentLayout
	Planes []*CoefficientPlane
}

// NewCoefficientGrid allocates empty planes for every component in the layout.
func NewCoefficientGrid(layout *ComponentLayout) *CoefficientGrid {
	planes := make([]*CoefficientPlane, len(layout.Components))
	for i := range layout.Components {
		planes[i] = NewCoefficientPlane(&layout.Components[i])
	}
	return &CoefficientGrid{Layout: layout, Planes: planes}
}

// Validate checks grid completeness. Every later stage assumes every block
// is present, so a gap is fatal rather than silently zero-filled.
func (g *CoefficientGrid) Validate() error {
	if len(g.Planes) != len(g.Layout.Components) {
		return ErrCodef(CodeIncompleteGrid, "grid has %d planes for %d components",
			len(g.Planes), len(g.Layout.Components))
	}
	for cmp, p := range g.Planes {
		if !p.Complete() {
			x, y := p.missingBlock()
			return ErrCodef(CodeIncompleteGrid,
				"component %d missing block at (%d,%d)", cmp, x, y)
		}
	}
	return nil
}

// CoefficientSource supplies raw transform-coefficient blocks in a stable
// enumeration order: component-major, then row-major, then column. Next
// returns io.EOF when the image is exhausted.
type CoefficientSource interface {
	Next() (cmp int, blockX, blockY uint32, raster [64]int16, err error)
}

// FillGridFromSource drains a CoefficientSource into a fresh grid and
// validates completeness.
func FillGridFromSource(layout *ComponentLayout, src CoefficientSource) (*CoefficientGrid, error) {
	grid := NewCoefficientGrid(layout)
	for {
		cmp, x, y, raster, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if cmp < 0 || cmp >= len(grid.Planes) {
			return nil, ErrCodef(CodeBadLayout, "block for unknown component %d", cmp)
		}
		for i, v := range raster {
			if v < -maxRawCoef || v >= maxRawCoef {
				return nil, ErrCodef(CodeCoefficientRange,
					"component %d block (%d,%d) coefficient %d out of range: %d", cmp, x, y, i, v)
			}
		}
		if err := grid.Planes[cmp].SetBlock(x, y, BlockFromRaster(raster)); err != nil {
			return nil, err
		}
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return grid, nil
}
