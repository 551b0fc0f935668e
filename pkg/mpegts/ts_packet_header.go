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

// ------------------------------------------------
// <iso13818-1.pdf> <2.4.3.2> <page 36/174>
// sync_byte                    [8b]  * always 0x47
// transport_error_indicator    [1b]
// payload_unit_start_indicator [1b]
// transport_priority           [1b]
// PID                          [13b] **
// transport_scrambling_control [2b]
// adaptation_field_control     [2b]
// continuity_counter           [4b]  *
// ------------------------------------------------
type TsPacketHeader struct {
	Sync             uint8
	Err              uint8
	PayloadUnitStart uint8
	Prio             uint8
	Pid              uint16
	Scra             uint8
	Adaptation       uint8
	Cc               uint8
}

// ----------------------------------------------------------
// <iso13818-1.pdf> <Table 2-6> <page 40/174>
// adaptation_field_length              [8b] * 不包括自己这1字节
// discontinuity_indicator              [1b]
// random_access_indicator              [1b]
// elementary_stream_priority_indicator [1b]
// PCR_flag                             [1b]
// OPCR_flag                            [1b]
// splicing_point_flag                  [1b]
// transport_private_data_flag          [1b]
// adaptation_field_extension_flag      [1b] *
// -----if PCR_flag == 1-----
// program_clock_reference_base         [33b]
// reserved                             [6b]
// program_clock_reference_extension    [9b] ******
// -----if OPCR_flag == 1-----
// original_program_clock_reference_base      [33b]
// reserved                                   [6b]
// original_program_clock_reference_extension [9b] ******
// -----if splicing_point_flag == 1-----
// splice_countdown                     [8b] *
// -----if transport_private_data_flag == 1-----
// transport_private_data_length        [8b] *
// private_data_byte                    [n*8b]
// -----if adaptation_field_extension_flag == 1-----
// adaptation_field_extension_length    [8b] *
// ltw_flag                             [1b]
// piecewise_rate_flag                  [1b]
// seamless_splice_flag                 [1b]
// reserved                             [5b] *
// ...
// stuffing_byte                        [n*8b]
// ----------------------------------------------------------
type TsPacketAdaptation struct {
	Length uint8

	Discontinuity            uint8
	RandomAccess             uint8
	EsPriority               uint8
	PcrFlag                  uint8
	OpcrFlag                 uint8
	SplicingPointFlag        uint8
	TransportPrivateDataFlag uint8
	ExtensionFlag            uint8

	PcrBase         uint64
	PcrExt          uint16
	OpcrBase        uint64
	OpcrExt         uint16
	SpliceCountdown int8
	PrivateData     []byte

	Extension TsPacketAdaptationExtension
}

// ----------------------------------------------------------
// <iso13818-1.pdf> <Table 2-6> <page 40/174>
// -----if ltw_flag == 1-----
// ltw_valid_flag                       [1b]
// ltw_offset                           [15b] **
// -----if piecewise_rate_flag == 1-----
// reserved                             [2b]
// piecewise_rate                       [22b] ***
// -----if seamless_splice_flag == 1-----
// splice_type                          [4b]
// DTS_next_AU[32..30]                  [3b]
// marker_bit                           [1b] *
// DTS_next_AU[29..15]                  [15b]
// marker_bit                           [1b] **
// DTS_next_AU[14..0]                   [15b]
// marker_bit                           [1b] **
// ----------------------------------------------------------
type TsPacketAdaptationExtension struct {
	Length        uint8
	LtwFlag       uint8
	PiecewiseFlag uint8
	SeamlessFlag  uint8

	LtwValid      uint8
	LtwOffset     uint16
	PiecewiseRate uint32
	SpliceType    uint8
	DtsNextAu     uint64
}

// TsPacket 一个188字节的ts包
//
// Payload 指向Raw中负载部分，没有负载时为nil
type TsPacket struct {
	Header     TsPacketHeader
	Adaptation TsPacketAdaptation
	Payload    []byte
	Raw        []byte
}

func (pkt *TsPacket) HasAdaptation() bool {
	return pkt.Header.Adaptation == AdaptationFieldControlOnly || pkt.Header.Adaptation == AdaptationFieldControlFollowed
}

func (pkt *TsPacket) IsPayloadUnitStart() bool {
	return pkt.Header.PayloadUnitStart == 1
}

// ParseTsPacketHeader 解析4字节TS Packet header
//
// 注意，调用方保证b至少4字节
func ParseTsPacketHeader(b []byte) (h TsPacketHeader) {
	br := nazabits.NewBitReader(b)
	h.Sync, _ = br.ReadBits8(8)
	h.Err, _ = br.ReadBits8(1)
	h.PayloadUnitStart, _ = br.ReadBits8(1)
	h.Prio, _ = br.ReadBits8(1)
	h.Pid, _ = br.ReadBits16(13)
	h.Scra, _ = br.ReadBits8(2)
	h.Adaptation, _ = br.ReadBits8(2)
	h.Cc, _ = br.ReadBits8(4)
	return
}

// ParseTsPacketAdaptation
//
// @param b: 从adaptation_field_length开始
//
// 只解析adaptation_field_length声明的范围，剩余部分为stuffing
func ParseTsPacketAdaptation(b []byte) (f TsPacketAdaptation, err error) {
	if len(b) < 1 {
		return f, base.NewErrShortBuffer(1, len(b), "ts adaptation")
	}
	f.Length = b[0]
	if f.Length == 0 {
		return f, nil
	}
	if len(b) < 1+int(f.Length) {
		return f, base.NewErrShortBuffer(1+int(f.Length), len(b), "ts adaptation")
	}

	br := nazabits.NewBitReader(b[1 : 1+int(f.Length)])
	f.Discontinuity, _ = br.ReadBits8(1)
	f.RandomAccess, _ = br.ReadBits8(1)
	f.EsPriority, _ = br.ReadBits8(1)
	f.PcrFlag, _ = br.ReadBits8(1)
	f.OpcrFlag, _ = br.ReadBits8(1)
	f.SplicingPointFlag, _ = br.ReadBits8(1)
	f.TransportPrivateDataFlag, _ = br.ReadBits8(1)
	f.ExtensionFlag, err = br.ReadBits8(1)
	if err != nil {
		return
	}

	if f.PcrFlag == 1 {
		if f.PcrBase, f.PcrExt, err = readPcr(&br); err != nil {
			return f, fmt.Errorf("%w. read pcr failed: %+v", base.ErrMpegts, err)
		}
	}
	if f.OpcrFlag == 1 {
		if f.OpcrBase, f.OpcrExt, err = readPcr(&br); err != nil {
			return f, fmt.Errorf("%w. read opcr failed: %+v", base.ErrMpegts, err)
		}
	}
	if f.SplicingPointFlag == 1 {
		var sc uint8
		if sc, err = br.ReadBits8(8); err != nil {
			return f, fmt.Errorf("%w. read splice countdown failed: %+v", base.ErrMpegts, err)
		}
		f.SpliceCountdown = int8(sc)
	}
	if f.TransportPrivateDataFlag == 1 {
		var l uint8
		if l, err = br.ReadBits8(8); err != nil {
			return f, fmt.Errorf("%w. read private data length failed: %+v", base.ErrMpegts, err)
		}
		if f.PrivateData, err = br.ReadBytes(uint(l)); err != nil {
			return f, fmt.Errorf("%w. read private data failed: %+v", base.ErrMpegts, err)
		}
	}
	if f.ExtensionFlag == 1 {
		if err = readAdaptationExtension(&br, &f.Extension); err != nil {
			return f, fmt.Errorf("%w. read adaptation extension failed: %+v", base.ErrMpegts, err)
		}
	}
	return f, nil
}

// ParseTsPacket
//
// @param b: 188字节，sync byte需由调用方检查
//
// adaptation_field_control为0（保留）或2（只有adaptation）时，Payload为nil
func ParseTsPacket(b []byte) (pkt TsPacket, err error) {
	if len(b) < TsPacketSize {
		return pkt, base.NewErrShortBuffer(TsPacketSize, len(b), "ts packet")
	}
	pkt.Raw = b[:TsPacketSize]
	pkt.Header = ParseTsPacketHeader(pkt.Raw)

	pos := 4
	if pkt.HasAdaptation() {
		if pkt.Adaptation, err = ParseTsPacketAdaptation(pkt.Raw[4:]); err != nil {
			return
		}
		pos += 1 + int(pkt.Adaptation.Length)
	}

	switch pkt.Header.Adaptation {
	case AdaptationFieldControlNo, AdaptationFieldControlFollowed:
		if pos < TsPacketSize {
			pkt.Payload = pkt.Raw[pos:]
		}
	}
	return pkt, nil
}

// ----- private -------------------------------------------------------------------------------------------------------

func readPcr(br *nazabits.BitReader) (pcrBase uint64, pcrExt uint16, err error) {
	var hi uint32
	var lo uint8
	if hi, err = br.ReadBits32(32); err != nil {
		return
	}
	if lo, err = br.ReadBits8(1); err != nil {
		return
	}
	if _, err = br.ReadBits8(6); err != nil {
		return
	}
	if pcrExt, err = br.ReadBits16(9); err != nil {
		return
	}
	pcrBase = uint64(hi)<<1 | uint64(lo)
	return
}

func readAdaptationExtension(br *nazabits.BitReader, e *TsPacketAdaptationExtension) (err error) {
	if e.Length, err = br.ReadBits8(8); err != nil {
		return
	}
	if e.Length == 0 {
		return
	}
	ext, err := br.ReadBytes(uint(e.Length))
	if err != nil {
		return
	}

	ebr := nazabits.NewBitReader(ext)
	e.LtwFlag, _ = ebr.ReadBits8(1)
	e.PiecewiseFlag, _ = ebr.ReadBits8(1)
	e.SeamlessFlag, _ = ebr.ReadBits8(1)
	_, err = ebr.ReadBits8(5)

	if e.LtwFlag == 1 {
		e.LtwValid, _ = ebr.ReadBits8(1)
		e.LtwOffset, err = ebr.ReadBits16(15)
	}
	if e.PiecewiseFlag == 1 {
		_, _ = ebr.ReadBits8(2)
		e.PiecewiseRate, err = ebr.ReadBits32(22)
	}
	if e.SeamlessFlag == 1 {
		var a uint8
		var b, c uint16
		e.SpliceType, _ = ebr.ReadBits8(4)
		a, _ = ebr.ReadBits8(3)
		_, _ = ebr.ReadBits8(1)
		b, _ = ebr.ReadBits16(15)
		_, _ = ebr.ReadBits8(1)
		c, _ = ebr.ReadBits16(15)
		_, err = ebr.ReadBits8(1)
		e.DtsNextAu = uint64(a)<<30 | uint64(b)<<15 | uint64(c)
	}
	// 剩余为reserved字节，已经随ReadBytes一起跳过
	return
}
