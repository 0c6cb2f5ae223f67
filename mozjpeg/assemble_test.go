package mozjpeg

import (
	"bytes"
	"testing"
)

func TestAssembleScansOffsets(t *testing.T) {
	result := &SelectionResult{
		Scans: []SelectedScan{
			{Scan: ScanDescriptor{Components: []int{0}, Ss: 0, Se: 0}, Data: []byte{1, 2, 3}},
			{Scan: ScanDescriptor{Components: []int{0}, Ss: 1, Se: 63}, Data: []byte{4}},
			{Scan: ScanDescriptor{Components: []int{1}, Ss: 1, Se: 63}, Data: []byte{5, 6}},
		},
		TotalSize: 6,
	}

	stream, err := AssembleScans(result)
	if err != nil {
		t.Fatalf("AssembleScans: %v", err)
	}

	if len(stream.Data) != 6 {
		t.Errorf("stream length %d, want 6", len(stream.Data))
	}
	wantOffsets := []int{0, 3, 4}
	wantLengths := []int{3, 1, 2}
	for i, h := range stream.Headers {
		if h.Offset != wantOffsets[i] || h.Length != wantLengths[i] {
			t.Errorf("header %d: offset %d length %d, want %d/%d",
				i, h.Offset, h.Length, wantOffsets[i], wantLengths[i])
		}
	}
	if !bytes.Equal(stream.Data, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("stream data % x", stream.Data)
	}
}

func TestAssembleScansMissingData(t *testing.T) {
	result := &SelectionResult{
		Scans: []SelectedScan{
			{Scan: ScanDescriptor{Components: []int{0}, Ss: 0, Se: 0}},
		},
	}

	_, err := AssembleScans(result)
	if err == nil {
		t.Fatal("scan without data accepted")
	}
	if ee, ok := IsEncodeError(err); !ok || ee.Code != CodeMissingTrial {
		t.Errorf("got %v, want CodeMissingTrial", err)
	}
}

// scanMarkers walks the marker structure of a JPEG stream, returning the
// marker bytes in order. Entropy-coded data is skipped via the stuffing
// convention.
func scanMarkers(t *testing.T, data []byte) []byte {
	var markers []byte
	i := 0
	for i+1 < len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		m := data[i+1]
		if m == 0x00 || (m >= 0xD0 && m <= 0xD7) {
			i += 2
			continue
		}
		markers = append(markers, m)
		i += 2
		if m == markerSOI || m == markerEOI {
			continue
		}
		if i+1 >= len(data) {
			t.Fatalf("truncated segment after marker %#x", m)
		}
		segLen := int(data[i])<<8 | int(data[i+1])
		i += segLen
	}
	return markers
}

func TestFileWriterMarkerStructure(t *testing.T) {
	layout := mustLayout(t, 32, 32, Sampling420)
	grid := buildTestGrid(t, layout, 33, 75)

	plan := NewSearchPlan(layout, DCScanSeparate)
	trials := NewScanTrialEncoder(grid, StandardEntropyTables())
	result, err := NewScanSelector(plan, trials, nil).Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	stream, err := AssembleScans(result)
	if err != nil {
		t.Fatalf("AssembleScans: %v", err)
	}

	luma, chroma := StandardQuantTables(75)
	var out bytes.Buffer
	writer := NewFileWriter(&out, layout, []*QuantTable{&luma, &chroma}, true)
	if err := writer.WriteFile(stream); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data := out.Bytes()
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		t.Fatal("output does not start with SOI")
	}
	if data[len(data)-2] != 0xFF || data[len(data)-1] != markerEOI {
		t.Fatal("output does not end with EOI")
	}

	markers := scanMarkers(t, data)
	counts := make(map[byte]int)
	for _, m := range markers {
		counts[m]++
	}
	if counts[markerSOF2] != 1 {
		t.Errorf("%d SOF2 markers, want 1", counts[markerSOF2])
	}
	if counts[markerSOF0] != 0 {
		t.Errorf("progressive output contains SOF0")
	}
	if counts[markerDQT] != 2 {
		t.Errorf("%d DQT segments, want 2", counts[markerDQT])
	}
	if counts[markerSOS] != len(result.Scans) {
		t.Errorf("%d SOS markers, want %d", counts[markerSOS], len(result.Scans))
	}
}
