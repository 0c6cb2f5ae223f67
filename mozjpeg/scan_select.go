package mozjpeg

// DepthPolicy decides how far down the approximation depths the search
// walks. Explore is called after each depth's cost is known; returning
// false stops the descent for that component.
type DepthPolicy interface {
	Explore(costs []int) bool
}

// GreedyDepthPolicy descends while the newest depth improved on the best
// cost seen, mirroring the observation that scan sizes are roughly convex
// in the approximation depth.
type GreedyDepthPolicy struct{}

func (GreedyDepthPolicy) Explore(costs []int) bool {
	if len(costs) < 2 {
		return true
	}
	best := costs[0]
	for _, c := range costs[1 : len(costs)-1] {
		if c < best {
			best = c
		}
	}
	return costs[len(costs)-1] < best
}

// ExhaustiveDepthPolicy evaluates every candidate depth.
type ExhaustiveDepthPolicy struct{}

func (ExhaustiveDepthPolicy) Explore(costs []int) bool { return true }

// SelectedScan pairs a chosen descriptor with its entropy-coded bytes.
type SelectedScan struct {
	Scan ScanDescriptor
	Data []byte
}

// SelectionResult is the outcome of the search: the winning scans in
// output order, plus totals for diagnostics.
type SelectionResult struct {
	Scans []SelectedScan

	// TotalSize is the entropy-coded byte count across selected scans.
	TotalSize int

	// TrialsRun counts the candidate encodings performed.
	TrialsRun int

	// Stats holds the Huffman symbol counts gathered while encoding, for
	// diagnostics and downstream table optimization.
	Stats *SymbolStats
}

// ScanSelector walks a search plan, trial-encodes candidates, and keeps
// the cheapest legal progression. Selection minimizes total entropy-coded
// bytes; header overhead is identical across alternatives of a group, so
// it never affects the ordering.
type ScanSelector struct {
	plan   *ScanPlan
	trials *ScanTrialEncoder
	policy DepthPolicy
}

// NewScanSelector creates a selector. A nil policy defaults to greedy.
func NewScanSelector(plan *ScanPlan, trials *ScanTrialEncoder, policy DepthPolicy) *ScanSelector {
	if policy == nil {
		policy = GreedyDepthPolicy{}
	}
	return &ScanSelector{plan: plan, trials: trials, policy: policy}
}

// Select runs the search and returns the winning progression. Rejected
// trial buffers are released before returning.
func (s *ScanSelector) Select() (*SelectionResult, error) {
	if err := s.plan.Validate(); err != nil {
		return nil, err
	}

	var order []int

	if s.plan.LumaDC >= 0 {
		order = append(order, s.plan.LumaDC)
	}

	for gi := range s.plan.Groups {
		group := &s.plan.Groups[gi]
		var (
			chosen []int
			err    error
		)
		if group.Cmp < 0 {
			chosen, err = s.selectChromaDC(group)
		} else {
			chosen, err = s.selectComponent(group)
		}
		if err != nil {
			return nil, err
		}
		order = append(order, chosen...)
	}

	return s.commit(order)
}

// selectChromaDC picks between one combined chroma DC scan and two
// per-component scans. A tie goes to the combined form, which needs one
// scan header fewer.
func (s *ScanSelector) selectChromaDC(group *ComponentGroup) ([]int, error) {
	combined, err := s.trials.Size(&s.plan.Scans[group.DCCombined])
	if err != nil {
		return nil, err
	}
	sep0, err := s.trials.Size(&s.plan.Scans[group.DCSeparate[0]])
	if err != nil {
		return nil, err
	}
	sep1, err := s.trials.Size(&s.plan.Scans[group.DCSeparate[1]])
	if err != nil {
		return nil, err
	}

	if sep0+sep1 < combined {
		return []int{group.DCSeparate[0], group.DCSeparate[1]}, nil
	}
	return []int{group.DCCombined}, nil
}

// selectComponent picks one component's AC progression: the approximation
// depth whose scans plus refinements are cheapest. Depth zero is costed as
// the best of its band arrangements, so deeper approximations compete
// against the strongest full-precision candidate.
func (s *ScanSelector) selectComponent(group *ComponentGroup) ([]int, error) {
	depthZero, depthZeroCost, err := s.selectDepthZeroBands(group)
	if err != nil {
		return nil, err
	}

	// Cost of depth d>0 is the band pair coded at Al=d plus every
	// refinement needed to restore full precision.
	refineSizes := make([]int, len(group.Refine))
	costs := []int{depthZeroCost}
	for d := 1; d < len(group.Pairs); d++ {
		if !s.policy.Explore(costs) {
			break
		}
		size, err := s.trials.Size(&s.plan.Scans[group.Refine[d-1]])
		if err != nil {
			return nil, err
		}
		refineSizes[d-1] = size

		low, err := s.trials.Size(&s.plan.Scans[group.Pairs[d][0]])
		if err != nil {
			return nil, err
		}
		high, err := s.trials.Size(&s.plan.Scans[group.Pairs[d][1]])
		if err != nil {
			return nil, err
		}
		cost := low + high
		for r := 0; r < d; r++ {
			cost += refineSizes[r]
		}
		costs = append(costs, cost)
	}

	bestDepth := 0
	for d := 1; d < len(costs); d++ {
		if costs[d] < costs[bestDepth] {
			bestDepth = d
		}
	}

	var chosen []int
	if bestDepth == 0 {
		chosen = depthZero
	} else {
		chosen = []int{group.Pairs[bestDepth][0], group.Pairs[bestDepth][1]}
	}

	// Refinements follow in descending Al so precision lands at zero.
	for d := bestDepth - 1; d >= 0; d-- {
		chosen = append(chosen, group.Refine[d])
	}
	return chosen, nil
}

// selectDepthZeroBands compares the default pair against the whole-band
// scan and the alternative split points, all at full precision. Ties keep
// the earlier candidate.
func (s *ScanSelector) selectDepthZeroBands(group *ComponentGroup) ([]int, int, error) {
	low, err := s.trials.Size(&s.plan.Scans[group.Pairs[0][0]])
	if err != nil {
		return nil, 0, err
	}
	high, err := s.trials.Size(&s.plan.Scans[group.Pairs[0][1]])
	if err != nil {
		return nil, 0, err
	}
	best := []int{group.Pairs[0][0], group.Pairs[0][1]}
	bestCost := low + high

	full, err := s.trials.Size(&s.plan.Scans[group.Full])
	if err != nil {
		return nil, 0, err
	}
	if full < bestCost {
		bestCost = full
		best = []int{group.Full}
	}

	for _, split := range group.Splits {
		low, err := s.trials.Size(&s.plan.Scans[split[0]])
		if err != nil {
			return nil, 0, err
		}
		high, err := s.trials.Size(&s.plan.Scans[split[1]])
		if err != nil {
			return nil, 0, err
		}
		if low+high < bestCost {
			bestCost = low + high
			best = []int{split[0], split[1]}
		}
	}
	return best, bestCost, nil
}

// commit validates the winning order as a legal progression, gathers the
// encoded buffers, and releases everything else.
func (s *ScanSelector) commit(order []int) (*SelectionResult, error) {
	state := NewRefinementState(len(s.plan.Layout.Components))
	result := &SelectionResult{Stats: s.trials.Stats()}

	keep := make(map[string]bool, len(order))
	for _, idx := range order {
		sc := &s.plan.Scans[idx]
		if err := state.CheckScan(sc); err != nil {
			return nil, err
		}
		state.RecordScan(sc)

		trial := s.trials.Result(sc)
		if trial == nil {
			// Selected scans were not all trial-encoded (DC scans are
			// chosen without alternatives); encode them now.
			var err error
			trial, err = s.trials.Trial(sc)
			if err != nil {
				return nil, err
			}
		}
		keep[sc.Signature()] = true
		result.Scans = append(result.Scans, SelectedScan{Scan: *sc, Data: trial.Data})
		result.TotalSize += len(trial.Data)
	}

	result.TrialsRun = s.trials.TrialCount()
	s.trials.ReleaseExcept(keep)
	return result, nil
}
