package mozjpeg

import (
	"fmt"
	"strings"
)

// ScanDescriptor describes one scan: which components it covers, the
// spectral band [Ss,Se], and the successive-approximation stage (Ah, Al).
type ScanDescriptor struct {
	Components []int
	Ss, Se     uint8
	Ah, Al     uint8
}

// Validate checks the descriptor against the coded constraints: band within
// 0..63, DC and AC never mixed, multi-component scans DC-only, and the
// approximation fields consistent (a refinement stage has Ah == Al+1).
func (sc *ScanDescriptor) Validate(numComponents int) error {
	if len(sc.Components) == 0 || len(sc.Components) > MaxComponents {
		return ErrCodef(CodeUnsupportedScan, "scan covers %d components", len(sc.Components))
	}
	seen := make(map[int]bool, len(sc.Components))
	for _, cmp := range sc.Components {
		if cmp < 0 || cmp >= numComponents {
			return ErrCodef(CodeUnsupportedScan, "scan references component %d of %d", cmp, numComponents)
		}
		if seen[cmp] {
			return ErrCodef(CodeUnsupportedScan, "scan lists component %d twice", cmp)
		}
		seen[cmp] = true
	}
	if sc.Se > 63 || sc.Ss > sc.Se {
		return ErrCodef(CodeUnsupportedScan, "bad spectral band %d..%d", sc.Ss, sc.Se)
	}
	if sc.Ss == 0 && sc.Se > 0 && (sc.Ah != 0 || sc.Al != 0) {
		return ErrCodef(CodeUnsupportedScan, "full band scan cannot use approximation %d/%d", sc.Ah, sc.Al)
	}
	if sc.Ss > 0 && len(sc.Components) > 1 {
		return ErrCode(CodeUnsupportedScan, "AC scan must cover a single component")
	}
	if sc.Ah != 0 && sc.Ah != sc.Al+1 {
		return ErrCodef(CodeUnsupportedScan, "refinement stage Ah=%d Al=%d", sc.Ah, sc.Al)
	}
	if sc.Al > MaxCoefBits {
		return ErrCodef(CodeUnsupportedScan, "point transform %d too deep", sc.Al)
	}
	return nil
}

// IsDC reports whether the scan carries only DC coefficients.
func (sc *ScanDescriptor) IsDC() bool { return sc.Ss == 0 && sc.Se == 0 }

// IsRefinement reports whether the scan refines previously sent bits.
func (sc *ScanDescriptor) IsRefinement() bool { return sc.Ah != 0 }

// Signature returns a stable key identifying the scan's parameters.
func (sc *ScanDescriptor) Signature() string {
	var b strings.Builder
	for i, cmp := range sc.Components {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", cmp)
	}
	fmt.Fprintf(&b, ":%d-%d:%d.%d", sc.Ss, sc.Se, sc.Ah, sc.Al)
	return b.String()
}

func (sc *ScanDescriptor) String() string {
	return fmt.Sprintf("scan[%s]", sc.Signature())
}

// DCScanMode selects how DC scans are arranged in the output.
type DCScanMode int

const (
	// DCScanSeparate emits a luma-only DC scan and lets the selector
	// choose between a combined chroma DC scan and per-component scans.
	DCScanSeparate DCScanMode = iota
	// DCScanInterleaved emits one DC scan covering every component.
	DCScanInterleaved
)

// Search parameters matching the candidate progression tried for each
// component class.
const (
	alMaxLuma   = 3
	alMaxChroma = 2
	dcSplitFreq = 8
)

// acSplitFreqs are the alternative low/high band boundaries tried at full
// precision.
var acSplitFreqs = [5]uint8{2, 8, 5, 12, 18}

// ComponentGroup holds the candidate scans for one selection decision: the
// spectral/approximation alternatives for a single component's AC band, or
// the chroma DC arrangement. Indexes refer to ScanPlan.Scans.
type ComponentGroup struct {
	// Cmp is the component covered, or -1 for the chroma DC group.
	Cmp int

	// DC is the index of the component's dedicated DC scan, or -1.
	DC int

	// DCCombined and DCSeparate are the chroma DC alternatives (group
	// Cmp == -1 only); unused entries are -1.
	DCCombined int
	DCSeparate [2]int

	// Pairs[d] indexes the low/high band pair encoded at Al=d.
	Pairs [][2]int

	// Refine[d] indexes the refinement scan with Al=d, Ah=d+1.
	Refine []int

	// Full indexes the whole-band scan at full precision, and Splits the
	// alternative band boundaries, both tried only when depth 0 wins.
	Full   int
	Splits [][2]int
}

// ScanPlan is a set of candidate scans plus the group structure the
// selector walks. Sequential plans have no groups: every scan is kept.
type ScanPlan struct {
	Layout *ComponentLayout
	Scans  []ScanDescriptor
	Groups []ComponentGroup

	// LumaDC indexes the standalone luma DC scan (DCScanSeparate), or the
	// all-component DC scan (DCScanInterleaved).
	LumaDC int
	Mode   DCScanMode
}

// NewSequentialPlan builds the trivial plan: one full-band scan per
// component, in component order.
func NewSequentialPlan(layout *ComponentLayout) *ScanPlan {
	plan := &ScanPlan{Layout: layout, LumaDC: -1}
	for cmp := range layout.Components {
		plan.Scans = append(plan.Scans, ScanDescriptor{
			Components: []int{cmp},
			Ss:         0, Se: 63, Ah: 0, Al: 0,
		})
	}
	return plan
}

// NewSearchPlan builds the full candidate progression for the layout. For a
// three-component image this produces 64 candidate scans; grayscale gets
// the luma subset.
func NewSearchPlan(layout *ComponentLayout, mode DCScanMode) *ScanPlan {
	plan := &ScanPlan{Layout: layout, Mode: mode, LumaDC: -1}

	if mode == DCScanInterleaved || layout.IsGray() {
		all := make([]int, len(layout.Components))
		for i := range all {
			all[i] = i
		}
		plan.LumaDC = plan.add(ScanDescriptor{Components: all, Ss: 0, Se: 0})
	} else {
		plan.LumaDC = plan.add(ScanDescriptor{Components: []int{0}, Ss: 0, Se: 0})

		group := ComponentGroup{Cmp: -1, DC: -1, Full: -1}
		group.DCCombined = plan.add(ScanDescriptor{Components: []int{1, 2}, Ss: 0, Se: 0})
		group.DCSeparate[0] = plan.add(ScanDescriptor{Components: []int{1}, Ss: 0, Se: 0})
		group.DCSeparate[1] = plan.add(ScanDescriptor{Components: []int{2}, Ss: 0, Se: 0})
		plan.Groups = append(plan.Groups, group)
	}

	for cmp := range layout.Components {
		alMax := alMaxLuma
		if cmp > 0 {
			alMax = alMaxChroma
		}
		plan.Groups = append(plan.Groups, plan.addComponentCandidates(cmp, alMax))
	}

	return plan
}

// addComponentCandidates generates one component's AC alternatives: a
// low/high pair at each approximation depth, the refinement scans that
// restore full precision, and the full-band and split alternatives tried at
// depth 0.
func (p *ScanPlan) addComponentCandidates(cmp, alMax int) ComponentGroup {
	group := ComponentGroup{Cmp: cmp, DC: -1, DCCombined: -1, DCSeparate: [2]int{-1, -1}}

	for al := 0; al <= alMax; al++ {
		group.Pairs = append(group.Pairs, [2]int{
			p.add(ScanDescriptor{Components: []int{cmp}, Ss: 1, Se: dcSplitFreq, Ah: 0, Al: uint8(al)}),
			p.add(ScanDescriptor{Components: []int{cmp}, Ss: dcSplitFreq + 1, Se: 63, Ah: 0, Al: uint8(al)}),
		})
		if al < alMax {
			group.Refine = append(group.Refine, p.add(ScanDescriptor{
				Components: []int{cmp}, Ss: 1, Se: 63, Ah: uint8(al + 1), Al: uint8(al),
			}))
		}
	}

	group.Full = p.add(ScanDescriptor{Components: []int{cmp}, Ss: 1, Se: 63})
	for _, freq := range acSplitFreqs {
		group.Splits = append(group.Splits, [2]int{
			p.add(ScanDescriptor{Components: []int{cmp}, Ss: 1, Se: freq}),
			p.add(ScanDescriptor{Components: []int{cmp}, Ss: freq + 1, Se: 63}),
		})
	}
	return group
}

func (p *ScanPlan) add(sc ScanDescriptor) int {
	p.Scans = append(p.Scans, sc)
	return len(p.Scans) - 1
}

// Validate checks every candidate against the layout.
func (p *ScanPlan) Validate() error {
	n := len(p.Layout.Components)
	for i := range p.Scans {
		if err := p.Scans[i].Validate(n); err != nil {
			return fmt.Errorf("candidate %d: %w", i, err)
		}
	}
	return nil
}
