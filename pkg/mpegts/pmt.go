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

// Pmt
//
// ----------------------------------------
// Program Map Table
// <iso13818-1.pdf> <2.4.4.8> <page 64/174>
// table_id                 [8b]  *
// section_syntax_indicator [1b]
// 0                        [1b]
// reserved                 [2b]
// section_length           [12b] **
// program_number           [16b] **
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]  *
// section_number           [8b]  *
// last_section_number      [8b]  *
// reserved                 [3b]
// PCR_PID                  [13b] **
// reserved                 [4b]
// program_info_length      [12b] **
// descriptor()             [program_info_length*8b]
// -----loop-----
// stream_type              [8b]  *
// reserved                 [3b]
// elementary_PID           [13b] **
// reserved                 [4b]
// ES_info_length           [12b] **
// descriptor()             [ES_info_length*8b]
// --------------
// CRC32                    [32b] ****
// ----------------------------------------
type Pmt struct {
	TableId                uint8
	SectionSyntaxIndicator uint8
	SectionLength          uint16
	ProgramNumber          uint16
	VersionNumber          uint8
	CurrentNextIndicator   uint8
	SectionNumber          uint8
	LastSectionNumber      uint8
	PcrPid                 uint16
	ProgramInfoLength      uint16
	ProgramElements        []PmtProgramElement
	Crc32                  uint32
}

type PmtProgramElement struct {
	StreamType    uint8
	Pid           uint16
	Length        uint16 // ES_info_length
	ProgramNumber uint16 // 所属节目，由Pmt填充
}

// ParsePmt
//
// @param b: 从table_id开始，即已经跳过了pointer_field
//
// 注意，program_info和ES_info中的descriptor按声明的长度跳过，不解析内容
func ParsePmt(b []byte) (pmt Pmt, err error) {
	if len(b) < 16 {
		return pmt, base.NewErrShortBuffer(16, len(b), "pmt")
	}

	br := nazabits.NewBitReader(b)
	pmt.TableId, _ = br.ReadBits8(8)
	pmt.SectionSyntaxIndicator, _ = br.ReadBits8(1)
	_, _ = br.ReadBits8(3)
	pmt.SectionLength, _ = br.ReadBits16(12)
	pmt.ProgramNumber, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	pmt.VersionNumber, _ = br.ReadBits8(5)
	pmt.CurrentNextIndicator, _ = br.ReadBits8(1)
	pmt.SectionNumber, _ = br.ReadBits8(8)
	pmt.LastSectionNumber, _ = br.ReadBits8(8)
	_, _ = br.ReadBits8(3)
	pmt.PcrPid, _ = br.ReadBits16(13)
	_, _ = br.ReadBits8(4)
	pmt.ProgramInfoLength, _ = br.ReadBits16(12)

	if pmt.SectionLength < 13 {
		return pmt, base.NewErrShortBuffer(13, int(pmt.SectionLength), "pmt section length")
	}
	if len(b) < 3+int(pmt.SectionLength) {
		return pmt, base.NewErrShortBuffer(3+int(pmt.SectionLength), len(b), "pmt section")
	}

	// ES循环的字节数 = section_length - 9字节固定字段 - program_info - 4字节CRC
	remain := int(pmt.SectionLength) - 13 - int(pmt.ProgramInfoLength)
	if remain < 0 {
		return pmt, base.NewErrShortBuffer(int(pmt.ProgramInfoLength), int(pmt.SectionLength)-13, "pmt program info")
	}
	if pmt.ProgramInfoLength != 0 {
		Log.Debugf("skip pmt program info. length=%d", pmt.ProgramInfoLength)
		_, _ = br.ReadBytes(uint(pmt.ProgramInfoLength))
	}

	for remain >= 5 {
		var ppe PmtProgramElement
		ppe.StreamType, _ = br.ReadBits8(8)
		_, _ = br.ReadBits8(3)
		ppe.Pid, _ = br.ReadBits16(13)
		_, _ = br.ReadBits8(4)
		ppe.Length, _ = br.ReadBits16(12)
		ppe.ProgramNumber = pmt.ProgramNumber
		remain -= 5

		if int(ppe.Length) > remain {
			return pmt, base.NewErrShortBuffer(int(ppe.Length), remain, "pmt es info")
		}
		if ppe.Length != 0 {
			_, _ = br.ReadBytes(uint(ppe.Length))
			remain -= int(ppe.Length)
		}
		pmt.ProgramElements = append(pmt.ProgramElements, ppe)
	}
	if remain > 0 {
		_, _ = br.ReadBytes(uint(remain))
	}
	pmt.Crc32, _ = br.ReadBits32(32)

	return pmt, nil
}

func (pmt *Pmt) SearchPid(pid uint16) *PmtProgramElement {
	for i := range pmt.ProgramElements {
		if pmt.ProgramElements[i].Pid == pid {
			return &pmt.ProgramElements[i]
		}
	}
	return nil
}
