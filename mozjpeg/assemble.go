package mozjpeg

import (
	"encoding/binary"
	"io"
)

// JPEG markers used by the assembler.
const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOF0 = 0xC0
	markerSOF2 = 0xC2
	markerDHT  = 0xC4
	markerDQT  = 0xDB
	markerSOS  = 0xDA
)

// ScanHeader describes one scan's position inside the assembled stream
// along with its frame-header fields.
type ScanHeader struct {
	Scan ScanDescriptor

	// Offset and Length locate the entropy-coded bytes within
	// AssembledStream.Data.
	Offset int
	Length int
}

// AssembledStream is the concatenation of the selected scans' entropy data
// in output order, with per-scan locations.
type AssembledStream struct {
	Headers []ScanHeader
	Data    []byte
}

// AssembleScans concatenates a selection result into a single stream. The
// scans keep the selector's order, which is already a validated
// progression.
func AssembleScans(result *SelectionResult) (*AssembledStream, error) {
	out := &AssembledStream{
		Headers: make([]ScanHeader, 0, len(result.Scans)),
		Data:    make([]byte, 0, result.TotalSize),
	}
	for i := range result.Scans {
		sel := &result.Scans[i]
		if sel.Data == nil {
			return nil, ErrCodef(CodeMissingTrial, "scan %s selected without encoded data",
				sel.Scan.Signature())
		}
		out.Headers = append(out.Headers, ScanHeader{
			Scan:   sel.Scan,
			Offset: len(out.Data),
			Length: len(sel.Data),
		})
		out.Data = append(out.Data, sel.Data...)
	}
	return out, nil
}

// FileWriter emits a complete JFIF byte stream: markers, tables, frame
// header, and the entropy-coded scans.
type FileWriter struct {
	output io.Writer

	layout      *ComponentLayout
	quantTables []*QuantTable
	progressive bool
}

// NewFileWriter creates a writer for one image.
func NewFileWriter(output io.Writer, layout *ComponentLayout, quantTables []*QuantTable, progressive bool) *FileWriter {
	return &FileWriter{
		output:      output,
		layout:      layout,
		quantTables: quantTables,
		progressive: progressive,
	}
}

// WriteFile writes the whole image: SOI, quantization and Huffman tables,
// the frame header, every scan with its SOS header, and EOI.
func (w *FileWriter) WriteFile(stream *AssembledStream) error {
	if err := w.writeMarker(markerSOI); err != nil {
		return err
	}
	if err := w.writeDQT(); err != nil {
		return err
	}
	if err := w.writeSOF(); err != nil {
		return err
	}
	if err := w.writeDHT(); err != nil {
		return err
	}
	for i := range stream.Headers {
		h := &stream.Headers[i]
		if err := w.writeSOS(&h.Scan); err != nil {
			return err
		}
		if _, err := w.output.Write(stream.Data[h.Offset : h.Offset+h.Length]); err != nil {
			return err
		}
	}
	return w.writeMarker(markerEOI)
}

func (w *FileWriter) writeMarker(marker byte) error {
	_, err := w.output.Write([]byte{0xFF, marker})
	return err
}

func (w *FileWriter) writeSegment(marker byte, payload []byte) error {
	if err := w.writeMarker(marker); err != nil {
		return err
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)+2))
	if _, err := w.output.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.output.Write(payload)
	return err
}

// writeDQT emits every quantization table with 8-bit precision.
func (w *FileWriter) writeDQT() error {
	for idx, qt := range w.quantTables {
		payload := make([]byte, 1+DCTSize2)
		payload[0] = byte(idx) // Pq=0, Tq=idx
		for i := 0; i < DCTSize2; i++ {
			payload[1+i] = byte(qt.Steps[i])
		}
		if err := w.writeSegment(markerDQT, payload); err != nil {
			return err
		}
	}
	return nil
}

// writeSOF emits the frame header: SOF2 for progressive output, SOF0
// otherwise.
func (w *FileWriter) writeSOF() error {
	marker := byte(markerSOF0)
	if w.progressive {
		marker = markerSOF2
	}

	payload := make([]byte, 6+3*len(w.layout.Components))
	payload[0] = 8 // sample precision
	binary.BigEndian.PutUint16(payload[1:3], uint16(w.layout.Height))
	binary.BigEndian.PutUint16(payload[3:5], uint16(w.layout.Width))
	payload[5] = byte(len(w.layout.Components))
	for i := range w.layout.Components {
		ci := &w.layout.Components[i]
		payload[6+3*i] = ci.Jid
		payload[7+3*i] = byte(ci.Sfh<<4) | byte(ci.Sfv)
		payload[8+3*i] = ci.QuantIndex
	}
	return w.writeSegment(marker, payload)
}

// writeDHT emits the four standard Huffman tables in one segment.
func (w *FileWriter) writeDHT() error {
	specs := []struct {
		class, id byte
		spec      *HuffmanSpec
	}{
		{0, 0, &StdDCLuminanceSpec},
		{0, 1, &StdDCChrominanceSpec},
		{1, 0, &StdACLuminanceSpec},
		{1, 1, &StdACChrominanceSpec},
	}

	var payload []byte
	for _, s := range specs {
		if w.layout.IsGray() && s.id == 1 {
			continue
		}
		payload = append(payload, s.class<<4|s.id)
		payload = append(payload, s.spec.Counts[1:17]...)
		payload = append(payload, s.spec.Symbols...)
	}
	return w.writeSegment(markerDHT, payload)
}

// writeSOS emits one scan header.
func (w *FileWriter) writeSOS(sc *ScanDescriptor) error {
	payload := make([]byte, 1+2*len(sc.Components)+3)
	payload[0] = byte(len(sc.Components))
	for i, cmp := range sc.Components {
		class := byte(tableClass(cmp))
		payload[1+2*i] = w.layout.Components[cmp].Jid
		payload[2+2*i] = class<<4 | class // Td, Ta
	}
	base := 1 + 2*len(sc.Components)
	payload[base] = sc.Ss
	payload[base+1] = sc.Se
	payload[base+2] = sc.Ah<<4 | sc.Al
	return w.writeSegment(markerSOS, payload)
}
