// Copyright 2024, Chef.  All rights reserved.
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

// ----------------------------------------
// Conditional access section
// <iso13818-1.pdf> <2.4.4.6> <page 63/174>
// table_id                 [8b]  *
// section_syntax_indicator [1b]
// '0'                      [1b]
// reserved                 [2b]
// section_length           [12b] **
// reserved                 [18b]
// version_number           [5b]
// current_next_indicator   [1b]  ***
// section_number           [8b]  *
// last_section_number      [8b]  *
// descriptor()             [n*8b]
// CRC_32                   [32b] ****
// ----------------------------------------
type Cat struct {
	TableId                uint8
	SectionSyntaxIndicator uint8
	SectionLength          uint16
	VersionNumber          uint8
	CurrentNextIndicator   uint8
	SectionNumber          uint8
	LastSectionNumber      uint8
	CaDescriptors          []CaDescriptor
	Crc32                  uint32
}

// ----------------------------------------
// CA_descriptor
// <iso13818-1.pdf> <2.6.16> <page 85/174>
// descriptor_tag           [8b]  * 0x09
// descriptor_length        [8b]  *
// CA_system_ID             [16b] **
// reserved                 [3b]
// CA_PID                   [13b] **
// private_data_byte        [n*8b]
// ----------------------------------------
type CaDescriptor struct {
	CaSystemId  uint16
	CaPid       uint16
	PrivateData []byte
}

const DescriptorTagCa = 0x09

// ParseCat
//
// @param b: 从table_id开始
//
// 非CA_descriptor的描述符按长度跳过
func ParseCat(b []byte) (cat Cat, err error) {
	if len(b) < 12 {
		return cat, base.NewErrShortBuffer(12, len(b), "cat")
	}

	br := nazabits.NewBitReader(b)
	cat.TableId, _ = br.ReadBits8(8)
	cat.SectionSyntaxIndicator, _ = br.ReadBits8(1)
	_, _ = br.ReadBits8(3)
	cat.SectionLength, _ = br.ReadBits16(12)
	_, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	cat.VersionNumber, _ = br.ReadBits8(5)
	cat.CurrentNextIndicator, _ = br.ReadBits8(1)
	cat.SectionNumber, _ = br.ReadBits8(8)
	cat.LastSectionNumber, _ = br.ReadBits8(8)

	if cat.SectionLength < 9 {
		return cat, base.NewErrShortBuffer(9, int(cat.SectionLength), "cat section length")
	}
	if len(b) < 3+int(cat.SectionLength) {
		return cat, base.NewErrShortBuffer(3+int(cat.SectionLength), len(b), "cat section")
	}

	remain := int(cat.SectionLength) - 9
	for remain >= 2 {
		tag, _ := br.ReadBits8(8)
		length, _ := br.ReadBits8(8)
		remain -= 2
		if int(length) > remain {
			return cat, base.NewErrShortBuffer(int(length), remain, "cat descriptor")
		}
		body, _ := br.ReadBytes(uint(length))
		remain -= int(length)

		if tag != DescriptorTagCa || len(body) < 4 {
			continue
		}
		dbr := nazabits.NewBitReader(body)
		var d CaDescriptor
		d.CaSystemId, _ = dbr.ReadBits16(16)
		_, _ = dbr.ReadBits8(3)
		d.CaPid, _ = dbr.ReadBits16(13)
		d.PrivateData = body[4:]
		cat.CaDescriptors = append(cat.CaDescriptors, d)
	}
	if remain > 0 {
		_, _ = br.ReadBytes(uint(remain))
	}
	cat.Crc32, _ = br.ReadBits32(32)
	return cat, nil
}
