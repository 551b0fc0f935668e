// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
)

// PsiId
const (
	TsPsiIdPas            = 0x00 // program_association_section
	TsPsiIdCas            = 0x01 // conditional_access_section (CA_section)
	TsPsiIdPms            = 0x02 // TS_program_map_section
	TsPsiIdDs             = 0x03 // TS_description_section
	TsPsiIdSds            = 0x04 // ISO_IEC_14496_scene_description_section
	TsPsiIdOds            = 0x05 // ISO_IEC_14496_object_descriptor_section
	TsPsiIdIso138181Start = 0x06 // ITU-T Rec. H.222.0 | ISO/IEC 13818-1 reserved
	TsPsiIdIso138181End   = 0x37
	TsPsiIdIso138186Start = 0x38 // Defined in ISO/IEC 13818-6
	TsPsiIdIso138186End   = 0x3F
	TsPsiIdUserStart      = 0x40 // User private
	TsPsiIdUserEnd        = 0xFE
	TsPsiIdForbidden      = 0xFF // forbidden
)

const (
	DescriptorTagRegistration = 0x5
	DescriptorTagExtension    = 0x7f
)

// PsiSection 打包psi section，目前支持PAT、PMT、CAT
//
// 打包结果可以被 ParsePat 、 ParsePmt 、 ParseCat 以及其他标准的ts解析器解析，
// 主要用于构造测试数据以及回环验证
type PsiSection struct {
	pointerField uint8

	tableId           uint8
	tableIdExtension  uint16 // PAT: transport_stream_id, PMT: program_number
	versionNumber     uint8
	sectionNumber     uint8
	lastSectionNumber uint8

	patData PsiPatData
	pmtData PsiPmtData
	catData PsiCatData
}

type PsiPatData struct {
	Programs []PatProgramElement
}

type PsiPmtData struct {
	PcrPid      uint16
	ProgramInfo []Descriptor
	Elements    []PsiPmtElement
}

type PsiPmtElement struct {
	StreamType  uint8
	Pid         uint16
	Descriptors []Descriptor
}

type PsiCatData struct {
	CaDescriptors []CaDescriptor
}

type Descriptor struct {
	Tag          uint8
	Registration DescriptorRegistration
	Extension    DescriptorExtension
	Raw          []byte // 其他tag时原样写入
}

type DescriptorRegistration struct {
	FormatIdentifier             uint32
	AdditionalIdentificationInfo []byte
}

type DescriptorExtension struct {
	Tag     uint8
	Unknown []byte
}

func NewPatSection(transportStreamId uint16, programs []PatProgramElement) *PsiSection {
	return &PsiSection{
		tableId:          TsPsiIdPas,
		tableIdExtension: transportStreamId,
		patData:          PsiPatData{Programs: programs},
	}
}

func NewPmtSection(programNumber uint16, data PsiPmtData) *PsiSection {
	return &PsiSection{
		tableId:          TsPsiIdPms,
		tableIdExtension: programNumber,
		pmtData:          data,
	}
}

func NewCatSection(data PsiCatData) *PsiSection {
	return &PsiSection{
		tableId:          TsPsiIdCas,
		tableIdExtension: 0xFFFF,
		catData:          data,
	}
}

func (psi *PsiSection) WithVersion(versionNumber uint8) *PsiSection {
	psi.versionNumber = versionNumber
	return psi
}

// Pack
//
// @return: pointer_field + section，section末尾为CRC_32
func (psi *PsiSection) Pack() []byte {
	sectionLength := psi.calcSectionLength()
	out := make([]byte, 1+3+int(sectionLength))
	bw := nazabits.NewBitWriter(out)

	bw.WriteBits8(8, psi.pointerField)

	bw.WriteBits8(8, psi.tableId)
	bw.WriteBit(1) // section_syntax_indicator
	bw.WriteBit(0)
	bw.WriteBits8(2, 0xff)
	bw.WriteBits16(12, sectionLength)

	bw.WriteBits16(16, psi.tableIdExtension)
	bw.WriteBits8(2, 0xff)
	bw.WriteBits8(5, psi.versionNumber)
	bw.WriteBit(1) // current_next_indicator
	bw.WriteBits8(8, psi.sectionNumber)
	bw.WriteBits8(8, psi.lastSectionNumber)

	switch psi.tableId {
	case TsPsiIdPas:
		psi.writePatSection(&bw)
	case TsPsiIdPms:
		psi.writePmtSection(&bw)
	case TsPsiIdCas:
		psi.writeCatSection(&bw)
	}

	crc := CalcCrc32(0xffffffff, out[1:len(out)-4])
	bele.BePutUint32(out[len(out)-4:], crc)
	return out
}

// PackPacket 将 Pack 的结果放入一个ts包中，剩余部分用0xFF填充
//
// 注意，section需要能放进一个ts包
func (psi *PsiSection) PackPacket(pid uint16, cc uint8) []byte {
	packet := make([]byte, TsPacketSize)
	packet[0] = syncByte
	packet[1] = 0x40 | uint8((pid>>8)&0x1F) // payload_unit_start_indicator
	packet[2] = uint8(pid & 0xFF)
	packet[3] = 0x10 | (cc & 0x0f)
	n := copy(packet[4:], psi.Pack())
	for i := 4 + n; i < TsPacketSize; i++ {
		packet[i] = 0xFF
	}
	return packet
}

// ----- private -------------------------------------------------------------------------------------------------------

func (psi *PsiSection) calcSectionLength() (length uint16) {
	// Table ID extension(16 bits)+Reserved bits(2 bits)+Version number(5 bits)+Current next Indicator(1 bit)+Section number(8 bits)+Last section number(8 bits)
	length += 5

	switch psi.tableId {
	case TsPsiIdPas:
		length += uint16(4 * len(psi.patData.Programs))
	case TsPsiIdPms:
		length += psi.calcPmtSectionLength()
	case TsPsiIdCas:
		for _, d := range psi.catData.CaDescriptors {
			length += 2 + 4 + uint16(len(d.PrivateData))
		}
	}

	length += 4 // crc32
	return
}

func (psi *PsiSection) calcPmtSectionLength() (length uint16) {
	// Reserved bits(3 bits)+PCR PID(13 bits)+Reserved bits(4 bits)+Program info length(12 bits)
	length = 4
	length += calcDescriptorsLength(psi.pmtData.ProgramInfo)

	for _, pe := range psi.pmtData.Elements {
		length += 5
		length += calcDescriptorsLength(pe.Descriptors)
	}
	return
}

func calcDescriptorsLength(ds []Descriptor) uint16 {
	length := uint16(0)
	for _, d := range ds {
		length += 2 // tag and length
		length += uint16(calcDescriptorLength(d))
	}
	return length
}

func calcDescriptorLength(d Descriptor) uint8 {
	switch d.Tag {
	case DescriptorTagRegistration:
		return uint8(4 + len(d.Registration.AdditionalIdentificationInfo))
	case DescriptorTagExtension:
		return uint8(1 + len(d.Extension.Unknown))
	}
	return uint8(len(d.Raw))
}

func (psi *PsiSection) writePatSection(bw *nazabits.BitWriter) {
	for _, pe := range psi.patData.Programs {
		bw.WriteBits16(16, pe.ProgramNumber)
		bw.WriteBits8(3, 0xff)
		bw.WriteBits16(13, pe.ProgramMapPid)
	}
}

func (psi *PsiSection) writePmtSection(bw *nazabits.BitWriter) {
	bw.WriteBits8(3, 0xff)
	bw.WriteBits16(13, psi.pmtData.PcrPid)
	writeDescriptorsWithLength(bw, psi.pmtData.ProgramInfo)

	for _, pe := range psi.pmtData.Elements {
		bw.WriteBits8(8, pe.StreamType)
		bw.WriteBits8(3, 0xff)
		bw.WriteBits16(13, pe.Pid)
		writeDescriptorsWithLength(bw, pe.Descriptors)
	}
}

func (psi *PsiSection) writeCatSection(bw *nazabits.BitWriter) {
	for _, d := range psi.catData.CaDescriptors {
		bw.WriteBits8(8, DescriptorTagCa)
		bw.WriteBits8(8, uint8(4+len(d.PrivateData)))
		bw.WriteBits16(16, d.CaSystemId)
		bw.WriteBits8(3, 0xff)
		bw.WriteBits16(13, d.CaPid)
		writeBytes(bw, d.PrivateData)
	}
}

func writeDescriptorsWithLength(bw *nazabits.BitWriter, ds []Descriptor) {
	bw.WriteBits8(4, 0xff)
	bw.WriteBits16(12, calcDescriptorsLength(ds))

	for _, d := range ds {
		bw.WriteBits8(8, d.Tag)
		bw.WriteBits8(8, calcDescriptorLength(d))

		switch d.Tag {
		case DescriptorTagRegistration:
			bw.WriteBits16(16, uint16((d.Registration.FormatIdentifier>>16)&0xFFFF))
			bw.WriteBits16(16, uint16(d.Registration.FormatIdentifier&0xFFFF))
			writeBytes(bw, d.Registration.AdditionalIdentificationInfo)
		case DescriptorTagExtension:
			bw.WriteBits8(8, d.Extension.Tag)
			writeBytes(bw, d.Extension.Unknown)
		default:
			writeBytes(bw, d.Raw)
		}
	}
}

func writeBytes(bw *nazabits.BitWriter, b []byte) {
	for _, v := range b {
		bw.WriteBits8(8, v)
	}
}
