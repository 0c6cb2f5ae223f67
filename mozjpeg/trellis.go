package mozjpeg

import (
	"runtime"
	"sync"
)

// TrellisOptions controls rate-distortion quantization.
type TrellisOptions struct {
	// OptimizeAC enables candidate search for AC coefficients. When false
	// every coefficient is quantized by plain rounding.
	OptimizeAC bool

	// OptimizeDC extends the candidate search to the DC coefficient.
	OptimizeDC bool

	// LambdaWeight scales the rate term. 1.0 is the balanced default;
	// larger values trade more distortion for fewer bits.
	LambdaWeight float64

	// Workers bounds the number of concurrent block workers; 0 means one
	// per CPU.
	Workers int
}

// DefaultTrellisOptions returns the settings used by the encoder unless
// overridden.
func DefaultTrellisOptions() TrellisOptions {
	return TrellisOptions{
		OptimizeAC:   true,
		OptimizeDC:   false,
		LambdaWeight: 1.0,
	}
}

// RateDistortionOptimizer converts raw transform coefficients into
// quantized levels, choosing each level to minimize
// distortion + lambda * estimatedBits against the table that will entropy
// code the block. The bit estimate uses the table's code lengths plus the
// magnitude bits, with zero-run symbols accounted for.
type RateDistortionOptimizer struct {
	opts   TrellisOptions
	tables *EntropyTables
}

// NewRateDistortionOptimizer creates an optimizer encoding against the
// given entropy tables. A zero LambdaWeight takes the default; a negative
// one fails at OptimizeGrid.
func NewRateDistortionOptimizer(opts TrellisOptions, tables *EntropyTables) *RateDistortionOptimizer {
	if opts.LambdaWeight == 0 {
		opts.LambdaWeight = 1.0
	}
	return &RateDistortionOptimizer{opts: opts, tables: tables}
}

// OptimizeGrid quantizes every block of the grid in place. Raw coefficients
// are replaced with quantized levels. Blocks are independent, so the work
// is spread over a bounded worker pool.
func (o *RateDistortionOptimizer) OptimizeGrid(grid *CoefficientGrid, quantTables []*QuantTable) error {
	if o.opts.LambdaWeight < 0 {
		return ErrCodef(CodeBadConfig, "lambda weight %g must not be negative",
			o.opts.LambdaWeight)
	}
	if len(quantTables) == 0 {
		return ErrCode(CodeBadQuantTable, "no quantization tables")
	}
	for _, qt := range quantTables {
		if err := qt.Validate(); err != nil {
			return err
		}
	}

	workers := o.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type job struct {
		plane *CoefficientPlane
		qt    *QuantTable
		class int
		from  int
		to    int
	}
	jobs := make(chan job, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				for dpos := j.from; dpos < j.to; dpos++ {
					o.optimizeBlock(j.plane.GetBlock(uint32(dpos)), j.qt, j.class)
				}
			}
		}()
	}

	for cmp, plane := range grid.Planes {
		qi := int(grid.Layout.Components[cmp].QuantIndex)
		if qi >= len(quantTables) {
			close(jobs)
			wg.Wait()
			return ErrCodef(CodeBadQuantTable, "component %d wants quant table %d of %d",
				cmp, qi, len(quantTables))
		}
		qt := quantTables[qi]
		class := tableClass(cmp)
		total := plane.NumBlocks()
		const chunk = 256
		for from := 0; from < total; from += chunk {
			to := from + chunk
			if to > total {
				to = total
			}
			jobs <- job{plane: plane, qt: qt, class: class, from: from, to: to}
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}

// optimizeBlock rewrites one block's raw coefficients with quantized
// levels. Deterministic for a given input: candidate order is fixed and
// ties resolve toward the smaller magnitude.
func (o *RateDistortionOptimizer) optimizeBlock(block *Block, qt *QuantTable, class int) {
	lambda := qt.TableLambda(o.opts.LambdaWeight)
	acTable := o.tables.AC[class]

	raw := block.Coef

	// DC first: plain rounding unless the search is extended to it.
	dcLevel := roundDiv(int32(raw[0]), int32(qt.Steps[0]))
	if o.opts.OptimizeDC {
		dcLevel = o.pickDCLevel(int32(raw[0]), int32(qt.Steps[0]), dcLevel, lambda, class)
	}
	block.Coef[0] = clampLevel(dcLevel, MaxDCLevel)

	if !o.opts.OptimizeAC {
		for i := 1; i < DCTSize2; i++ {
			block.Coef[i] = clampLevel(roundDiv(int32(raw[i]), int32(qt.Steps[i])), MaxACLevel)
		}
		return
	}

	// Zero-run context comes from the rounding pass, so every
	// coefficient's rate estimate is independent of the others' choices.
	var naive [DCTSize2]int32
	for i := 1; i < DCTSize2; i++ {
		naive[i] = roundDiv(int32(raw[i]), int32(qt.Steps[i]))
	}
	var runBefore [DCTSize2]int
	run := 0
	for i := 1; i < DCTSize2; i++ {
		runBefore[i] = run
		if naive[i] == 0 {
			run++
		} else {
			run = 0
		}
	}

	var levels [DCTSize2]int32
	var rates [DCTSize2]float64
	for i := 1; i < DCTSize2; i++ {
		levels[i], rates[i] = o.pickACLevel(int32(raw[i]), int32(qt.Steps[i]), naive[i],
			runBefore[i], lambda, acTable)
	}

	o.truncateTail(&raw, &levels, &rates, qt, lambda, acTable)

	for i := 1; i < DCTSize2; i++ {
		block.Coef[i] = clampLevel(levels[i], MaxACLevel)
	}
}

// pickACLevel evaluates the rounded level and its two magnitude neighbors
// and returns the cheapest, along with its rate term for the tail pass.
func (o *RateDistortionOptimizer) pickACLevel(raw, step, rounded int32, run int, lambda float64, acTable *HuffmanEncodeTable) (int32, float64) {
	mag := rounded
	if mag < 0 {
		mag = -mag
	}

	bestLevel := int32(0)
	bestCost := -1.0
	bestRate := 0.0
	for m := mag - 1; m <= mag+1; m++ {
		if m < 0 {
			continue
		}
		level := m
		if rounded < 0 || (rounded == 0 && raw < 0) {
			level = -m
		}
		dist := float64(raw-level*step) * float64(raw-level*step)
		rate := 0.0
		if level != 0 {
			rate = lambda * float64(acSymbolBits(acTable, run, level))
		}
		cost := dist + rate
		// Strict comparison keeps ties on the smaller magnitude, which
		// is evaluated first.
		if bestCost < 0 || cost < bestCost {
			bestCost = cost
			bestLevel = level
			bestRate = rate
		}
	}
	return bestLevel, bestRate
}

// pickDCLevel compares the rounded DC level with its magnitude neighbors
// using the DC table's category lengths as the rate proxy.
func (o *RateDistortionOptimizer) pickDCLevel(raw, step, rounded int32, lambda float64, class int) int32 {
	dcTable := o.tables.DC[class]

	mag := rounded
	if mag < 0 {
		mag = -mag
	}
	bestLevel := int32(0)
	bestCost := -1.0
	for m := mag - 1; m <= mag+1; m++ {
		if m < 0 {
			continue
		}
		level := m
		if rounded < 0 {
			level = -m
		}
		dist := float64(raw-level*step) * float64(raw-level*step)
		cat := jpegNbits(level)
		codeLen := dcTable.CodeLength(uint8(cat))
		if codeLen == 0 {
			codeLen = 24
		}
		cost := dist + lambda*float64(codeLen+cat)
		if bestCost < 0 || cost < bestCost {
			bestCost = cost
			bestLevel = level
		}
	}
	return bestLevel
}

// truncateTail zeroes trailing nonzero levels when the bits they cost
// outweigh the distortion of dropping them, so short blocks end in a cheap
// end-of-block symbol instead of sparse high-frequency singletons.
func (o *RateDistortionOptimizer) truncateTail(raw *[DCTSize2]int16, levels *[DCTSize2]int32, rates *[DCTSize2]float64, qt *QuantTable, lambda float64, acTable *HuffmanEncodeTable) {
	lastNZ := 0
	for i := DCTSize2 - 1; i > 0; i-- {
		if levels[i] != 0 {
			lastNZ = i
			break
		}
	}
	if lastNZ == 0 {
		return
	}

	// Walking inward from the end, accumulate the cost delta of zeroing
	// everything past each candidate cut and keep the best.
	delta := 0.0
	bestDelta := 0.0
	bestCut := lastNZ
	for i := lastNZ; i > 0; i-- {
		if levels[i] == 0 {
			continue
		}
		err := float64(int32(raw[i]) - levels[i]*int32(qt.Steps[i]))
		zeroDist := float64(raw[i]) * float64(raw[i])
		delta += (zeroDist - err*err) - rates[i]
		if delta < bestDelta {
			bestDelta = delta
			bestCut = i - 1
		}
	}

	if bestCut < lastNZ {
		for i := bestCut + 1; i < DCTSize2; i++ {
			levels[i] = 0
			rates[i] = 0
		}
	}
}

// acSymbolBits estimates the bits to code a nonzero level preceded by run
// zeros: any ZRL symbols, the run/size symbol, and the magnitude bits.
func acSymbolBits(table *HuffmanEncodeTable, run int, level int32) int {
	bits := 0
	for run >= 16 {
		bits += table.CodeLength(symZRL)
		run -= 16
	}
	cat := jpegNbits(level)
	symbol := uint8(run<<4) | uint8(cat)
	codeLen := table.CodeLength(symbol)
	if codeLen == 0 {
		// Symbol absent from the table; price it above any real code so
		// the search avoids it.
		codeLen = 24
	}
	return bits + codeLen + cat
}

// roundDiv quantizes v by step, rounding half away from zero.
func roundDiv(v, step int32) int32 {
	if v >= 0 {
		return (v + step/2) / step
	}
	return -((-v + step/2) / step)
}

func clampLevel(level, max int32) int16 {
	if level > max {
		level = max
	}
	if level < -max {
		level = -max
	}
	return int16(level)
}
