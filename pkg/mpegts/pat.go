// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
)

// ---------------------------------------------------------------------------------------------------
// Program association section
// <iso13818-1.pdf> <2.4.4.3> <page 61/174>
// table_id                 [8b] *
// section_syntax_indicator [1b]
// '0'                      [1b]
// reserved                 [2b]
// section_length           [12b] **
// transport_stream_id      [16b] **
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]  *
// section_number           [8b]  *
// last_section_number      [8b]  *
// -----loop-----
// program_number           [16b] **
// reserved                 [3b]
// program_map_PID          [13b] ** if program_number == 0 then network_PID else then program_map_PID
// --------------
// CRC_32                   [32b] ****
// ---------------------------------------------------------------------------------------------------
type Pat struct {
	TableId                uint8
	SectionSyntaxIndicator uint8
	SectionLength          uint16
	TransportStreamId      uint16
	VersionNumber          uint8
	CurrentNextIndicator   uint8
	SectionNumber          uint8
	LastSectionNumber      uint8
	ProgramElements        []PatProgramElement
	Crc32                  uint32
}

type PatProgramElement struct {
	ProgramNumber uint16
	ProgramMapPid uint16 // ProgramNumber为0时是network_PID
}

func (ppe PatProgramElement) IsNetwork() bool {
	return ppe.ProgramNumber == 0
}

// ParsePat
//
// @param b: 从table_id开始，即已经跳过了pointer_field
func ParsePat(b []byte) (pat Pat, err error) {
	if len(b) < 12 {
		return pat, base.NewErrShortBuffer(12, len(b), "pat")
	}

	br := nazabits.NewBitReader(b)
	pat.TableId, _ = br.ReadBits8(8)
	pat.SectionSyntaxIndicator, _ = br.ReadBits8(1)
	_, _ = br.ReadBits8(3)
	pat.SectionLength, _ = br.ReadBits16(12)
	pat.TransportStreamId, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	pat.VersionNumber, _ = br.ReadBits8(5)
	pat.CurrentNextIndicator, _ = br.ReadBits8(1)
	pat.SectionNumber, _ = br.ReadBits8(8)
	pat.LastSectionNumber, _ = br.ReadBits8(8)

	if pat.SectionLength < 9 {
		return pat, base.NewErrShortBuffer(9, int(pat.SectionLength), "pat section length")
	}
	if len(b) < 3+int(pat.SectionLength) {
		return pat, base.NewErrShortBuffer(3+int(pat.SectionLength), len(b), "pat section")
	}

	// section_length包含了5字节的固定字段和4字节的CRC
	n := (int(pat.SectionLength) - 9) / 4
	for i := 0; i < n; i++ {
		var ppe PatProgramElement
		ppe.ProgramNumber, _ = br.ReadBits16(16)
		_, _ = br.ReadBits8(3)
		ppe.ProgramMapPid, _ = br.ReadBits16(13)
		pat.ProgramElements = append(pat.ProgramElements, ppe)
	}
	pat.Crc32, _ = br.ReadBits32(32)
	return pat, nil
}

// SearchPid 是否是某个节目的pmt pid，network pid不算
func (pat *Pat) SearchPid(pid uint16) bool {
	for _, ppe := range pat.ProgramElements {
		if !ppe.IsNetwork() && pid == ppe.ProgramMapPid {
			return true
		}
	}
	return false
}
