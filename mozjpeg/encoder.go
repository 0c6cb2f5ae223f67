package mozjpeg

import "io"

// Config holds everything needed to set up an Encoder.
type Config struct {
	Width  uint32
	Height uint32

	// Sampling gives one factor pair per component. The presets
	// (SamplingGray, Sampling444, Sampling420, Sampling422) cover the
	// common cases.
	Sampling []SamplingFactor

	// Quality in 1..100 scales the Annex K quantization tables.
	Quality int

	// Progressive enables the scan search; otherwise the output is one
	// full-band scan per component.
	Progressive bool

	// DCScanMode arranges the DC scans of a progressive output.
	DCScanMode DCScanMode

	// DepthPolicy steers the approximation-depth search; nil means
	// greedy.
	DepthPolicy DepthPolicy

	Trellis TrellisOptions
}

// Validate rejects configurations before any work starts.
func (c *Config) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return ErrCode(CodeBadConfig, "image dimensions cannot be zero")
	}
	if c.Width > 65535 || c.Height > 65535 {
		return ErrCodef(CodeBadConfig, "image %dx%d exceeds 65535", c.Width, c.Height)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return ErrCodef(CodeBadConfig, "quality %d out of range 1..100", c.Quality)
	}
	if len(c.Sampling) == 0 || len(c.Sampling) > MaxComponents {
		return ErrCodef(CodeBadConfig, "component count %d out of range 1..%d",
			len(c.Sampling), MaxComponents)
	}
	if c.Trellis.LambdaWeight < 0 {
		return ErrCodef(CodeBadConfig, "lambda weight %g must not be negative",
			c.Trellis.LambdaWeight)
	}
	return nil
}

// EncodeResult summarizes one encode.
type EncodeResult struct {
	// ScanCount is the number of scans in the output.
	ScanCount int

	// EntropySize is the total entropy-coded byte count.
	EntropySize int

	// TrialsRun counts the candidate scans encoded during the search;
	// zero for sequential output.
	TrialsRun int

	// Scans lists the emitted scan parameters in order.
	Scans []ScanDescriptor

	// Stats holds the Huffman symbol counts gathered while encoding. In
	// progressive mode the counts span every trialed candidate, not only
	// the selected scans.
	Stats *SymbolStats
}

// Encoder turns quantizable coefficient blocks into a JPEG byte stream.
// An Encoder is configured once and can encode multiple images of the same
// geometry; it is not safe for concurrent use.
type Encoder struct {
	cfg    Config
	layout *ComponentLayout

	quantTables []*QuantTable
	tables      *EntropyTables
	optimizer   *RateDistortionOptimizer
}

// NewEncoder validates the config and precomputes layout and tables.
func NewEncoder(cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	layout, err := ComputeLayout(cfg.Width, cfg.Height, cfg.Sampling)
	if err != nil {
		return nil, err
	}

	luma, chroma := StandardQuantTables(cfg.Quality)
	quantTables := []*QuantTable{&luma}
	if !layout.IsGray() {
		quantTables = append(quantTables, &chroma)
	}

	tables := StandardEntropyTables()

	return &Encoder{
		cfg:         cfg,
		layout:      layout,
		quantTables: quantTables,
		tables:      tables,
		optimizer:   NewRateDistortionOptimizer(cfg.Trellis, tables),
	}, nil
}

// Layout exposes the computed geometry so callers can enumerate blocks.
func (e *Encoder) Layout() *ComponentLayout { return e.layout }

// QuantTables exposes the scaled quantization tables.
func (e *Encoder) QuantTables() []*QuantTable { return e.quantTables }

// Encode drains src, quantizes the coefficients, runs the scan search when
// progressive output is requested, and writes the complete byte stream to
// out.
func (e *Encoder) Encode(src CoefficientSource, out io.Writer) (*EncodeResult, error) {
	grid, err := FillGridFromSource(e.layout, src)
	if err != nil {
		return nil, err
	}
	return e.EncodeGrid(grid, out)
}

// EncodeGrid encodes an already-filled grid. The grid's raw coefficients
// are quantized in place.
func (e *Encoder) EncodeGrid(grid *CoefficientGrid, out io.Writer) (*EncodeResult, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := e.optimizer.OptimizeGrid(grid, e.quantTables); err != nil {
		return nil, err
	}

	var selection *SelectionResult
	if e.cfg.Progressive {
		plan := NewSearchPlan(e.layout, e.cfg.DCScanMode)
		trials := NewScanTrialEncoder(grid, e.tables)
		selector := NewScanSelector(plan, trials, e.cfg.DepthPolicy)
		var err error
		selection, err = selector.Select()
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		selection, err = e.encodeSequential(grid)
		if err != nil {
			return nil, err
		}
	}

	stream, err := AssembleScans(selection)
	if err != nil {
		return nil, err
	}
	writer := NewFileWriter(out, e.layout, e.quantTables, e.cfg.Progressive)
	if err := writer.WriteFile(stream); err != nil {
		return nil, err
	}

	result := &EncodeResult{
		ScanCount:   len(selection.Scans),
		EntropySize: selection.TotalSize,
		TrialsRun:   selection.TrialsRun,
		Stats:       selection.Stats,
	}
	for i := range selection.Scans {
		result.Scans = append(result.Scans, selection.Scans[i].Scan)
	}
	return result, nil
}

// encodeSequential produces one full-band scan per component, in component
// order, with no selection step.
func (e *Encoder) encodeSequential(grid *CoefficientGrid) (*SelectionResult, error) {
	plan := NewSequentialPlan(e.layout)
	enc := NewScanEncoder(grid, e.tables)
	stats := &SymbolStats{}
	enc.SetStats(stats)

	result := &SelectionResult{Stats: stats}
	for i := range plan.Scans {
		sc := &plan.Scans[i]
		data, err := enc.EncodeScan(sc)
		if err != nil {
			return nil, err
		}
		result.Scans = append(result.Scans, SelectedScan{Scan: *sc, Data: data})
		result.TotalSize += len(data)
	}
	return result, nil
}
