package mozjpeg

// ScanCoder packs one scan's worth of quantized coefficients into entropy
// coded bytes. Implementations must be deterministic for identical inputs.
type ScanCoder interface {
	EncodeScan(sc *ScanDescriptor) ([]byte, error)
}

// ScanEncoder turns one scan's worth of quantized coefficients into an
// entropy-coded segment, with FF bytes escaped and the tail padded with
// 1 bits. Each call encodes a complete scan; DC prediction and EOB runs
// never cross scan boundaries.
type ScanEncoder struct {
	grid   *CoefficientGrid
	tables *EntropyTables
	stats  *SymbolStats

	bitWriter *BitWriter
	lastDC    [MaxComponents]int32
}

// NewScanEncoder creates an encoder over a validated grid.
func NewScanEncoder(grid *CoefficientGrid, tables *EntropyTables) *ScanEncoder {
	return &ScanEncoder{
		grid:      grid,
		tables:    tables,
		bitWriter: NewBitWriter(1 << 16),
	}
}

// SetStats attaches a symbol counter. Pass nil to disable.
func (e *ScanEncoder) SetStats(stats *SymbolStats) {
	e.stats = stats
}

// EncodeScan encodes the scan described by sc and returns the entropy-coded
// bytes. The returned slice is owned by the caller.
func (e *ScanEncoder) EncodeScan(sc *ScanDescriptor) ([]byte, error) {
	if err := sc.Validate(len(e.grid.Layout.Components)); err != nil {
		return nil, err
	}

	for i := range e.lastDC {
		e.lastDC[i] = 0
	}

	var err error
	switch {
	case sc.Ss == 0 && sc.Se == 0:
		err = e.encodeDCScan(sc)
	case sc.Ss == 0:
		err = e.encodeFullBandScan(sc)
	default:
		err = e.encodeACScan(sc)
	}
	if err != nil {
		return nil, err
	}

	e.bitWriter.Pad()
	return e.bitWriter.DetachBuffer(), nil
}

// encodeDCScan writes a DC-only scan. Multi-component DC scans are
// MCU-interleaved and cover the MCU-padded block grid; a single-component
// scan carries only the unpadded blocks, in row-major order.
func (e *ScanEncoder) encodeDCScan(sc *ScanDescriptor) error {
	if len(sc.Components) == 1 {
		cmp := sc.Components[0]
		ci := &e.grid.Layout.Components[cmp]
		plane := e.grid.Planes[cmp]
		for by := uint32(0); by < ci.Ncv; by++ {
			for bx := uint32(0); bx < ci.Nch; bx++ {
				if err := e.encodeDCBlock(plane.GetBlockXY(bx, by), cmp, sc); err != nil {
					return err
				}
			}
		}
		return nil
	}

	layout := e.grid.Layout
	for mcuY := uint32(0); mcuY < layout.Mcuv; mcuY++ {
		for mcuX := uint32(0); mcuX < layout.Mcuh; mcuX++ {
			for _, cmp := range sc.Components {
				ci := &layout.Components[cmp]
				for v := uint32(0); v < ci.Sfv; v++ {
					for h := uint32(0); h < ci.Sfh; h++ {
						blockX := mcuX*ci.Sfh + h
						blockY := mcuY*ci.Sfv + v
						if err := e.encodeDCBlock(e.grid.Planes[cmp].GetBlockXY(blockX, blockY), cmp, sc); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

func (e *ScanEncoder) encodeDCBlock(block *Block, cmp int, sc *ScanDescriptor) error {
	dc := int32(block.Coef[0])
	if sc.Ah == 0 {
		shiftedDC := dc >> sc.Al
		diff := shiftedDC - e.lastDC[cmp]
		e.lastDC[cmp] = shiftedDC
		return e.encodeDCDiff(diff, e.tables.DC[tableClass(cmp)], cmp)
	}
	// Refinement emits the single bit at position Al
	e.bitWriter.Write(uint32(dc>>sc.Al)&1, 1)
	return nil
}

func (e *ScanEncoder) encodeDCDiff(diff int32, table *HuffmanEncodeTable, cmp int) error {
	category := jpegNbits(diff)
	symbol := uint8(category)
	length := table.lengths[symbol]
	if length == 0 {
		return ErrCodef(CodeEntropyOverflow,
			"DC difference %d needs category %d, which has no Huffman code", diff, category)
	}
	e.bitWriter.Write(uint32(table.codes[symbol]), uint32(length))
	e.stats.countDC(tableClass(cmp), symbol)

	if category > 0 {
		var additionalBits uint32
		if diff >= 0 {
			additionalBits = uint32(diff)
		} else {
			additionalBits = uint32(diff-1) & ((1 << category) - 1)
		}
		e.bitWriter.Write(additionalBits, uint32(category))
	}
	return nil
}

// encodeACScan writes a single-component AC band scan over the unpadded
// block region.
func (e *ScanEncoder) encodeACScan(sc *ScanDescriptor) error {
	cmp := sc.Components[0]
	ci := &e.grid.Layout.Components[cmp]
	plane := e.grid.Planes[cmp]
	acTable := e.tables.AC[tableClass(cmp)]

	eobRun := 0
	correctionBits := make([]uint8, 0, 64)

	for by := uint32(0); by < ci.Ncv; by++ {
		for bx := uint32(0); bx < ci.Nch; bx++ {
			block := plane.GetBlockXY(bx, by)
			var err error
			if sc.Ah == 0 {
				eobRun, err = e.encodeACFirst(block, acTable, sc, cmp, eobRun)
			} else {
				eobRun, err = e.encodeACRefine(block, acTable, sc, cmp, eobRun, &correctionBits)
			}
			if err != nil {
				return err
			}
		}
	}

	if eobRun > 0 {
		if err := e.encodeEOBRun(acTable, cmp, eobRun); err != nil {
			return err
		}
		e.writeCorrectionBits(&correctionBits)
	}
	return nil
}

// encodeACFirst encodes one block's band for the first approximation stage.
func (e *ScanEncoder) encodeACFirst(block *Block, acTable *HuffmanEncodeTable, sc *ScanDescriptor, cmp, eobRun int) (int, error) {
	zeroRunLength := 0
	for i := int(sc.Ss); i <= int(sc.Se); i++ {
		coef := divPow2(block.Coef[i], sc.Al)
		if coef != 0 {
			if eobRun > 0 {
				if err := e.encodeEOBRun(acTable, cmp, eobRun); err != nil {
					return 0, err
				}
				eobRun = 0
			}
			for zeroRunLength >= 16 {
				if err := e.writeACSymbol(acTable, cmp, symZRL); err != nil {
					return 0, err
				}
				zeroRunLength -= 16
			}
			if err := e.writeCoef(acTable, cmp, coef, zeroRunLength); err != nil {
				return 0, err
			}
			zeroRunLength = 0
		} else {
			zeroRunLength++
		}
	}

	if zeroRunLength > 0 {
		if acTable.maxEOBRun == 0 {
			return 0, ErrCode(CodeEntropyOverflow, "no EOB run symbol in Huffman table")
		}
		eobRun++
		if eobRun == int(acTable.maxEOBRun) {
			if err := e.encodeEOBRun(acTable, cmp, eobRun); err != nil {
				return 0, err
			}
			eobRun = 0
		}
	}

	return eobRun, nil
}

// encodeACRefine encodes one block's band for a refinement stage.
func (e *ScanEncoder) encodeACRefine(block *Block, acTable *HuffmanEncodeTable, sc *ScanDescriptor, cmp, eobRun int, correctionBits *[]uint8) (int, error) {
	from := int(sc.Ss)
	to := int(sc.Se)

	// eob marks one past the last coefficient that becomes newly nonzero
	// at this precision
	eob := from
	for bpos := to; bpos >= from; bpos-- {
		coef := divPow2(block.Coef[bpos], sc.Al)
		if coef == 1 || coef == -1 {
			eob = bpos + 1
			break
		}
	}

	if eob > from && eobRun > 0 {
		if err := e.encodeEOBRun(acTable, cmp, eobRun); err != nil {
			return 0, err
		}
		e.writeCorrectionBits(correctionBits)
		eobRun = 0
	}

	zeroRunLength := 0
	for bpos := from; bpos < eob; bpos++ {
		coef := divPow2(block.Coef[bpos], sc.Al)
		if coef == 0 {
			zeroRunLength++
			if zeroRunLength == 16 {
				if err := e.writeACSymbol(acTable, cmp, symZRL); err != nil {
					return 0, err
				}
				e.writeCorrectionBits(correctionBits)
				zeroRunLength = 0
			}
			continue
		}

		if coef == 1 || coef == -1 {
			if err := e.writeCoef(acTable, cmp, coef, zeroRunLength); err != nil {
				return 0, err
			}
			e.writeCorrectionBits(correctionBits)
			zeroRunLength = 0
		} else {
			*correctionBits = append(*correctionBits, uint8(coef&1))
		}
	}

	for bpos := eob; bpos <= to; bpos++ {
		coef := divPow2(block.Coef[bpos], sc.Al)
		if coef != 0 {
			*correctionBits = append(*correctionBits, uint8(coef&1))
		}
	}

	if eob <= to {
		if acTable.maxEOBRun == 0 {
			return 0, ErrCode(CodeEntropyOverflow, "no EOB run symbol in Huffman table")
		}
		eobRun++
		if eobRun == int(acTable.maxEOBRun) {
			if err := e.encodeEOBRun(acTable, cmp, eobRun); err != nil {
				return 0, err
			}
			e.writeCorrectionBits(correctionBits)
			eobRun = 0
		}
	}

	return eobRun, nil
}

// encodeFullBandScan writes a sequential scan: DC difference followed by
// run-length coded AC, per unpadded block. Single component only;
// interleaved sequential output is expressed as one full-band scan per
// component.
func (e *ScanEncoder) encodeFullBandScan(sc *ScanDescriptor) error {
	cmp := sc.Components[0]
	ci := &e.grid.Layout.Components[cmp]
	plane := e.grid.Planes[cmp]
	class := tableClass(cmp)
	dcTable := e.tables.DC[class]
	acTable := e.tables.AC[class]

	for by := uint32(0); by < ci.Ncv; by++ {
		for bx := uint32(0); bx < ci.Nch; bx++ {
			block := plane.GetBlockXY(bx, by)

			dc := int32(block.Coef[0])
			diff := dc - e.lastDC[cmp]
			e.lastDC[cmp] = dc
			if err := e.encodeDCDiff(diff, dcTable, cmp); err != nil {
				return err
			}

			lastNZ := block.lastNonZero()
			zeroRunLength := 0
			for i := 1; i <= lastNZ; i++ {
				coef := block.Coef[i]
				if coef == 0 {
					zeroRunLength++
					continue
				}
				for zeroRunLength >= 16 {
					if err := e.writeACSymbol(acTable, cmp, symZRL); err != nil {
						return err
					}
					zeroRunLength -= 16
				}
				if err := e.writeCoef(acTable, cmp, coef, zeroRunLength); err != nil {
					return err
				}
				zeroRunLength = 0
			}
			if lastNZ < DCTSize2-1 {
				if err := e.writeACSymbol(acTable, cmp, symEOB); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// encodeEOBRun encodes a pending end-of-band run.
func (e *ScanEncoder) encodeEOBRun(acTable *HuffmanEncodeTable, cmp, eobRun int) error {
	if eobRun == 0 {
		return nil
	}

	category := jpegNbits(int32(eobRun)) - 1
	symbol := uint8(category << 4)

	if err := e.writeACSymbol(acTable, cmp, symbol); err != nil {
		return err
	}

	if category > 0 {
		additionalBits := eobRun - (1 << category)
		e.bitWriter.Write(uint32(additionalBits), uint32(category))
	}
	return nil
}

// writeACSymbol writes one AC Huffman symbol. A symbol the table carries no
// code for makes the stream undecodable, so it is a hard error.
func (e *ScanEncoder) writeACSymbol(table *HuffmanEncodeTable, cmp int, symbol uint8) error {
	length := table.lengths[symbol]
	if length == 0 {
		return ErrCodef(CodeEntropyOverflow, "AC symbol %#02x has no Huffman code", symbol)
	}
	e.bitWriter.Write(uint32(table.codes[symbol]), uint32(length))
	e.stats.countAC(tableClass(cmp), symbol)
	return nil
}

func (e *ScanEncoder) writeCoef(table *HuffmanEncodeTable, cmp int, coef int16, zeroRunLength int) error {
	category := jpegNbits(int32(coef))
	symbol := uint8(zeroRunLength<<4) | uint8(category)
	if err := e.writeACSymbol(table, cmp, symbol); err != nil {
		return err
	}

	if category > 0 {
		var additionalBits uint32
		if coef >= 0 {
			additionalBits = uint32(coef)
		} else {
			additionalBits = uint32(int32(coef)-1) & ((1 << category) - 1)
		}
		e.bitWriter.Write(additionalBits, uint32(category))
	}
	return nil
}

func (e *ScanEncoder) writeCorrectionBits(bits *[]uint8) {
	for _, b := range *bits {
		e.bitWriter.Write(uint32(b), 1)
	}
	*bits = (*bits)[:0]
}

// divPow2 divides by 2^p rounding toward zero (progressive point transform).
func divPow2(v int16, p uint8) int16 {
	if p == 0 {
		return v
	}
	val := int32(v)
	if val < 0 {
		val += (1 << p) - 1
	}
	return int16(val >> p)
}

// SymbolStats counts emitted Huffman symbols per table class, for the
// diagnostics tooling. A nil *SymbolStats is a no-op.
type SymbolStats struct {
	DCCounts [2][256]uint64
	ACCounts [2][256]uint64
}

func (s *SymbolStats) countDC(class int, symbol uint8) {
	if s == nil {
		return
	}
	s.DCCounts[class][symbol]++
}

func (s *SymbolStats) countAC(class int, symbol uint8) {
	if s == nil {
		return
	}
	s.ACCounts[class][symbol]++
}

// TotalSymbols returns the number of symbols recorded across both classes.
func (s *SymbolStats) TotalSymbols() uint64 {
	if s == nil {
		return 0
	}
	var total uint64
	for class := 0; class < 2; class++ {
		for i := 0; i < 256; i++ {
			total += s.DCCounts[class][i] + s.ACCounts[class][i]
		}
	}
	return total
}
