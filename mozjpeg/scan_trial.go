package mozjpeg

// alNotSignaled marks a coefficient position no scan has carried yet.
const alNotSignaled = 127

// RefinementState tracks, per component and coefficient position, the
// precision (Al) down to which bits have been emitted. Committed scans must
// form a legal progression: a coarse pass before any refinement, and each
// refinement picking up exactly where the previous stage stopped.
type RefinementState struct {
	signaled [][DCTSize2]uint8
}

// NewRefinementState creates the empty state for an image.
func NewRefinementState(numComponents int) *RefinementState {
	signaled := make([][DCTSize2]uint8, numComponents)
	for c := range signaled {
		for k := range signaled[c] {
			signaled[c][k] = alNotSignaled
		}
	}
	return &RefinementState{signaled: signaled}
}

// CheckScan validates sc against the progression so far without changing
// state.
func (s *RefinementState) CheckScan(sc *ScanDescriptor) error {
	for _, cmp := range sc.Components {
		if cmp >= len(s.signaled) {
			return ErrCodef(CodeScanOrder, "scan references component %d of %d", cmp, len(s.signaled))
		}
		for k := int(sc.Ss); k <= int(sc.Se); k++ {
			cur := s.signaled[cmp][k]
			if sc.Ah == 0 {
				if cur != alNotSignaled {
					return ErrCodef(CodeScanOrder,
						"component %d coefficient %d already sent at Al=%d, second first-stage scan %s",
						cmp, k, cur, sc.Signature())
				}
			} else {
				if cur == alNotSignaled {
					return ErrCodef(CodeScanOrder,
						"refinement %s before any first-stage scan for component %d coefficient %d",
						sc.Signature(), cmp, k)
				}
				if cur != sc.Ah {
					return ErrCodef(CodeScanOrder,
						"refinement %s expects prior precision Al=%d, component %d coefficient %d is at Al=%d",
						sc.Signature(), sc.Ah, cmp, k, cur)
				}
			}
		}
	}
	return nil
}

// RecordScan commits sc to the state. The caller must have run CheckScan
// first; precision only ever moves downward.
func (s *RefinementState) RecordScan(sc *ScanDescriptor) {
	for _, cmp := range sc.Components {
		for k := int(sc.Ss); k <= int(sc.Se); k++ {
			s.signaled[cmp][k] = sc.Al
		}
	}
}

// SignaledAl returns the precision sent so far for one coefficient
// position, or alNotSignaled.
func (s *RefinementState) SignaledAl(cmp, k int) uint8 {
	return s.signaled[cmp][k]
}

// TrialResult holds one trial-encoded scan.
type TrialResult struct {
	Scan ScanDescriptor
	Data []byte
}

// Size returns the entropy-coded byte length.
func (r *TrialResult) Size() int { return len(r.Data) }

// ScanTrialEncoder encodes candidate scans over a fixed coefficient grid
// and memoizes the results by scan signature. Trial encoding is pure:
// repeating a trial returns the identical bytes, so overlapping candidates
// (the same band at different precisions, alternative splits) can be
// compared freely before anything is committed.
type ScanTrialEncoder struct {
	enc    ScanCoder
	stats  *SymbolStats
	trials map[string]*TrialResult
}

// NewScanTrialEncoder creates a trial encoder over a validated grid. Symbol
// statistics accumulate across all trials and are exposed via Stats.
func NewScanTrialEncoder(grid *CoefficientGrid, tables *EntropyTables) *ScanTrialEncoder {
	enc := NewScanEncoder(grid, tables)
	stats := &SymbolStats{}
	enc.SetStats(stats)
	t := NewScanTrialEncoderFor(enc)
	t.stats = stats
	return t
}

// NewScanTrialEncoderFor creates a trial encoder over any scan coder, so
// tests can substitute a counting or failing implementation.
func NewScanTrialEncoderFor(coder ScanCoder) *ScanTrialEncoder {
	return &ScanTrialEncoder{
		enc:    coder,
		trials: make(map[string]*TrialResult),
	}
}

// Stats returns the symbol counts gathered over every trial run so far, or
// nil when the underlying coder does not collect them.
func (t *ScanTrialEncoder) Stats() *SymbolStats { return t.stats }

// Trial encodes the scan, or returns the memoized result of an earlier
// identical trial.
func (t *ScanTrialEncoder) Trial(sc *ScanDescriptor) (*TrialResult, error) {
	sig := sc.Signature()
	if r, ok := t.trials[sig]; ok {
		return r, nil
	}
	data, err := t.enc.EncodeScan(sc)
	if err != nil {
		return nil, err
	}
	r := &TrialResult{Scan: *sc, Data: data}
	t.trials[sig] = r
	return r, nil
}

// Size returns the encoded length of a scan, trialing it if needed.
func (t *ScanTrialEncoder) Size(sc *ScanDescriptor) (int, error) {
	r, err := t.Trial(sc)
	if err != nil {
		return 0, err
	}
	return r.Size(), nil
}

// Result returns a previously trialed scan, or nil.
func (t *ScanTrialEncoder) Result(sc *ScanDescriptor) *TrialResult {
	return t.trials[sc.Signature()]
}

// ReleaseExcept drops every memoized trial whose signature is not in keep,
// freeing the buffers of candidates the selection rejected.
func (t *ScanTrialEncoder) ReleaseExcept(keep map[string]bool) {
	for sig := range t.trials {
		if !keep[sig] {
			delete(t.trials, sig)
		}
	}
}

// TrialCount returns the number of memoized trials.
func (t *ScanTrialEncoder) TrialCount() int { return len(t.trials) }
