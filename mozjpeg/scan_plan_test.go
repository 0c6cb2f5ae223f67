package mozjpeg

import "testing"

func TestSearchPlanColorCandidateCount(t *testing.T) {
	layout := mustLayout(t, 64, 64, Sampling420)
	plan := NewSearchPlan(layout, DCScanSeparate)

	if len(plan.Scans) != 64 {
		t.Errorf("candidate count %d, want 64", len(plan.Scans))
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("plan validation: %v", err)
	}

	// One chroma DC group plus one AC group per component
	if len(plan.Groups) != 4 {
		t.Fatalf("group count %d, want 4", len(plan.Groups))
	}
	if plan.Groups[0].Cmp != -1 {
		t.Error("first group is not the chroma DC group")
	}
}

func TestSearchPlanGrayCandidateCount(t *testing.T) {
	layout := mustLayout(t, 64, 64, SamplingGray)
	plan := NewSearchPlan(layout, DCScanSeparate)

	if len(plan.Scans) != 23 {
		t.Errorf("candidate count %d, want 23", len(plan.Scans))
	}
	if len(plan.Groups) != 1 {
		t.Fatalf("group count %d, want 1", len(plan.Groups))
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("plan validation: %v", err)
	}
}

func TestSearchPlanGroupStructure(t *testing.T) {
	layout := mustLayout(t, 64, 64, Sampling444)
	plan := NewSearchPlan(layout, DCScanSeparate)

	for _, group := range plan.Groups[1:] {
		alMax := alMaxLuma
		if group.Cmp > 0 {
			alMax = alMaxChroma
		}
		if len(group.Pairs) != alMax+1 {
			t.Errorf("component %d: %d pairs, want %d", group.Cmp, len(group.Pairs), alMax+1)
		}
		if len(group.Refine) != alMax {
			t.Errorf("component %d: %d refinements, want %d", group.Cmp, len(group.Refine), alMax)
		}
		if len(group.Splits) != len(acSplitFreqs) {
			t.Errorf("component %d: %d splits, want %d", group.Cmp, len(group.Splits), len(acSplitFreqs))
		}

		// The pair at depth d is the 1..8 / 9..63 bands at Al=d
		for d, pair := range group.Pairs {
			low := plan.Scans[pair[0]]
			high := plan.Scans[pair[1]]
			if low.Ss != 1 || low.Se != dcSplitFreq || low.Al != uint8(d) || low.Ah != 0 {
				t.Errorf("component %d depth %d low band: %s", group.Cmp, d, low.String())
			}
			if high.Ss != dcSplitFreq+1 || high.Se != 63 || high.Al != uint8(d) || high.Ah != 0 {
				t.Errorf("component %d depth %d high band: %s", group.Cmp, d, high.String())
			}
		}

		// Refinement d restores Al=d from Al=d+1 over the whole AC band
		for d, idx := range group.Refine {
			sc := plan.Scans[idx]
			if sc.Ss != 1 || sc.Se != 63 || sc.Al != uint8(d) || sc.Ah != uint8(d+1) {
				t.Errorf("component %d refinement %d: %s", group.Cmp, d, sc.String())
			}
		}
	}
}

func TestSearchPlanInterleavedDC(t *testing.T) {
	layout := mustLayout(t, 64, 64, Sampling444)
	plan := NewSearchPlan(layout, DCScanInterleaved)

	dc := plan.Scans[plan.LumaDC]
	if len(dc.Components) != 3 || !dc.IsDC() {
		t.Errorf("interleaved DC scan: %s", dc.String())
	}
	// No chroma DC group in interleaved mode
	for _, group := range plan.Groups {
		if group.Cmp < 0 {
			t.Error("interleaved plan still has a chroma DC group")
		}
	}
}

func TestSequentialPlan(t *testing.T) {
	layout := mustLayout(t, 64, 64, Sampling420)
	plan := NewSequentialPlan(layout)

	if len(plan.Scans) != 3 {
		t.Fatalf("scan count %d, want 3", len(plan.Scans))
	}
	for cmp, sc := range plan.Scans {
		if len(sc.Components) != 1 || sc.Components[0] != cmp {
			t.Errorf("scan %d covers %v", cmp, sc.Components)
		}
		if sc.Ss != 0 || sc.Se != 63 || sc.Ah != 0 || sc.Al != 0 {
			t.Errorf("scan %d is not full band: %s", cmp, sc.String())
		}
	}
}

func TestScanDescriptorValidate(t *testing.T) {
	testCases := []struct {
		name string
		sc   ScanDescriptor
		ok   bool
	}{
		{"full band", ScanDescriptor{Components: []int{0}, Ss: 0, Se: 63}, true},
		{"dc only", ScanDescriptor{Components: []int{0, 1, 2}, Ss: 0, Se: 0}, true},
		{"ac band", ScanDescriptor{Components: []int{1}, Ss: 1, Se: 8, Al: 2}, true},
		{"refinement", ScanDescriptor{Components: []int{0}, Ss: 1, Se: 63, Ah: 2, Al: 1}, true},
		{"no components", ScanDescriptor{Ss: 0, Se: 63}, false},
		{"bad component", ScanDescriptor{Components: []int{5}, Ss: 0, Se: 0}, false},
		{"duplicate component", ScanDescriptor{Components: []int{1, 1}, Ss: 0, Se: 0}, false},
		{"band out of range", ScanDescriptor{Components: []int{0}, Ss: 2, Se: 64}, false},
		{"inverted band", ScanDescriptor{Components: []int{0}, Ss: 9, Se: 8}, false},
		{"interleaved ac", ScanDescriptor{Components: []int{0, 1}, Ss: 1, Se: 8}, false},
		{"bad refinement gap", ScanDescriptor{Components: []int{0}, Ss: 1, Se: 63, Ah: 3, Al: 1}, false},
		{"approximated full band", ScanDescriptor{Components: []int{0}, Ss: 0, Se: 63, Al: 1}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sc.Validate(3)
			if tc.ok && err != nil {
				t.Errorf("rejected: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("accepted")
			}
		})
	}
}
