// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"fmt"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
)

// MaxPts 33位时间戳的最大值
const MaxPts = uint64(1)<<33 - 1

// -----------------------------------------------------------
// <iso13818-1.pdf>
// <2.4.3.6 PES packet> <page 49/174>
// <Table E.1 - PES packet header example> <page 142/174>
// <F.0.2 PES packet> <page 144/174>
// packet_start_code_prefix  [24b] *** always 0x00, 0x00, 0x01
// stream_id                 [8b]  *
// PES_packet_length         [16b] **
// '10'                      [2b]
// PES_scrambling_control    [2b]
// PES_priority              [1b]
// data_alignment_indicator  [1b]
// copyright                 [1b]
// original_or_copy          [1b]  *
// PTS_DTS_flags             [2b]
// ESCR_flag                 [1b]
// ES_rate_flag              [1b]
// DSM_trick_mode_flag       [1b]
// additional_copy_info_flag [1b]
// PES_CRC_flag              [1b]
// PES_extension_flag        [1b]  *
// PES_header_data_length    [8b]  *
// -----------------------------------------------------------
type Pes struct {
	Pid        uint16
	StreamType uint8
	Codec      string

	StreamId         uint8
	Kind             MediaType
	PacketLength     uint16
	Marker           uint8
	PtsDtsFlag       uint8
	EscrFlag         uint8
	EsRateFlag       uint8
	DsmTrickModeFlag uint8
	AdditionalFlag   uint8
	CrcFlag          uint8
	ExtensionFlag    uint8
	HeaderDataLength uint8

	Pts                uint64
	Dts                uint64
	EscrBase           uint64
	EscrExt            uint16
	EsRate             uint32
	AdditionalCopyInfo uint8
	PrevCrc            uint16

	// Pieces 属于这个PES的所有ts负载，第一个是带PES头的那个
	Pieces []EsPiece
}

// EsPiece 一个ts包的负载，Pos之前的部分是PES头
type EsPiece struct {
	Data []byte
	Pos  int
}

func (p EsPiece) Es() []byte {
	return p.Data[p.Pos:]
}

// HasPesStartCode 负载是否以 0x000001 开头
func HasPesStartCode(b []byte) bool {
	return len(b) >= 3 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0x01
}

// ParsePes 解析PES头
//
// @param b: 以 0x000001 开头的ts负载
//
// @return pes: pes.Pieces 中只有一个元素，即b，Pos为ES开始的位置
//
// 注意，不支持DSM_trick_mode和PES_extension，遇到时返回错误
func ParsePes(b []byte) (pes Pes, err error) {
	if len(b) < 9 {
		return pes, base.NewErrShortBuffer(9, len(b), "pes header")
	}
	if !HasPesStartCode(b) {
		return pes, fmt.Errorf("%w. invalid start code prefix. head=%x", base.ErrPesFormat, b[:3])
	}

	br := nazabits.NewBitReader(b)
	_, _ = br.ReadBits32(24)
	pes.StreamId, _ = br.ReadBits8(8)
	pes.PacketLength, _ = br.ReadBits16(16)

	switch {
	case pes.StreamId >= streamIdVideoMin && pes.StreamId <= streamIdVideoMax:
		pes.Kind = MediaTypeVideo
	case pes.StreamId >= streamIdAudioMin && pes.StreamId <= streamIdAudioMax:
		pes.Kind = MediaTypeAudio
	default:
		return pes, NewErrPesStreamId(pes.StreamId)
	}

	pes.Marker, _ = br.ReadBits8(2)
	if pes.Marker != 0x02 {
		return pes, base.NewErrPesFormat(pes.StreamId, pes.Marker)
	}
	_, _ = br.ReadBits8(6)
	pes.PtsDtsFlag, _ = br.ReadBits8(2)
	pes.EscrFlag, _ = br.ReadBits8(1)
	pes.EsRateFlag, _ = br.ReadBits8(1)
	pes.DsmTrickModeFlag, _ = br.ReadBits8(1)
	pes.AdditionalFlag, _ = br.ReadBits8(1)
	pes.CrcFlag, _ = br.ReadBits8(1)
	pes.ExtensionFlag, _ = br.ReadBits8(1)
	pes.HeaderDataLength, _ = br.ReadBits8(8)

	esPos := 9 + int(pes.HeaderDataLength)
	if len(b) < esPos {
		return pes, base.NewErrShortBuffer(esPos, len(b), "pes header data")
	}
	hb := b[9:esPos]
	pos := 0
	need := func(n int) bool {
		return pos+n <= len(hb)
	}

	switch pes.PtsDtsFlag {
	case 2:
		if !need(5) {
			return pes, newErrPesHeaderData(pes, "pts")
		}
		_, pes.Pts = readPts(hb[pos:])
		pes.Dts = pes.Pts
		pos += 5
	case 3:
		if !need(10) {
			return pes, newErrPesHeaderData(pes, "pts/dts")
		}
		_, pes.Pts = readPts(hb[pos:])
		_, pes.Dts = readPts(hb[pos+5:])
		pos += 10
	}
	if pes.EscrFlag == 1 {
		if !need(6) {
			return pes, newErrPesHeaderData(pes, "escr")
		}
		pes.EscrBase, pes.EscrExt = readEscr(hb[pos:])
		pos += 6
	}
	if pes.EsRateFlag == 1 {
		if !need(3) {
			return pes, newErrPesHeaderData(pes, "es rate")
		}
		ebr := nazabits.NewBitReader(hb[pos:])
		_, _ = ebr.ReadBits8(1)
		pes.EsRate, _ = ebr.ReadBits32(22)
		pos += 3
	}
	if pes.DsmTrickModeFlag == 1 {
		return pes, fmt.Errorf("%w. stream_id=0x%02x", base.ErrDsmTrickMode, pes.StreamId)
	}
	if pes.AdditionalFlag == 1 {
		if !need(1) {
			return pes, newErrPesHeaderData(pes, "additional copy info")
		}
		pes.AdditionalCopyInfo = hb[pos] & 0x7F
		pos++
	}
	if pes.CrcFlag == 1 {
		if !need(2) {
			return pes, newErrPesHeaderData(pes, "crc")
		}
		pes.PrevCrc = uint16(hb[pos])<<8 | uint16(hb[pos+1])
		pos += 2
	}
	if pes.ExtensionFlag == 1 {
		return pes, fmt.Errorf("%w. stream_id=0x%02x", base.ErrPesExtension, pes.StreamId)
	}
	// 剩余的是stuffing，跳过

	if pes.Dts > pes.Pts {
		pes.Dts = pes.Pts
	}

	pes.Pieces = []EsPiece{{Data: b, Pos: esPos}}
	return pes, nil
}

// NewErrPesStreamId 媒体pid上出现了非音视频的stream_id
func NewErrPesStreamId(streamId uint8) error {
	return fmt.Errorf("%w. stream_id=0x%02x is neither audio nor video", base.ErrPesFormat, streamId)
}

// ----- private -------------------------------------------------------------------------------------------------------

func newErrPesHeaderData(pes Pes, field string) error {
	return fmt.Errorf("%w. pes header data too short for %s. stream_id=0x%02x, header_data_length=%d",
		base.ErrPesFormat, field, pes.StreamId, pes.HeaderDataLength)
}

// read pts or dts
func readPts(b []byte) (fb uint8, pts uint64) {
	fb = b[0] >> 4
	pts |= uint64((b[0]>>1)&0x07) << 30
	pts |= (uint64(b[1])<<8 | uint64(b[2])) >> 1 << 15
	pts |= (uint64(b[3])<<8 | uint64(b[4])) >> 1
	return
}

// -----------------------------------------------------------
// reserved           [2b]
// ESCR_base[32..30]  [3b]
// marker_bit         [1b]
// ESCR_base[29..15]  [15b]
// marker_bit         [1b]
// ESCR_base[14..0]   [15b]
// marker_bit         [1b]
// ESCR_extension     [9b]
// marker_bit         [1b]
// -----------------------------------------------------------
func readEscr(b []byte) (escrBase uint64, escrExt uint16) {
	br := nazabits.NewBitReader(b)
	_, _ = br.ReadBits8(2)
	a, _ := br.ReadBits8(3)
	_, _ = br.ReadBits8(1)
	m, _ := br.ReadBits16(15)
	_, _ = br.ReadBits8(1)
	l, _ := br.ReadBits16(15)
	_, _ = br.ReadBits8(1)
	escrExt, _ = br.ReadBits16(9)
	escrBase = uint64(a)<<30 | uint64(m)<<15 | uint64(l)
	return
}
