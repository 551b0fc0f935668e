// Copyright 2019, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package aac

import (
	"fmt"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
)

// AudioSpecificConfig(asc)
// keywords: Seq Header,
// e.g.  rtmp, flv, mp4 esds
//
// ADTS(Audio Data Transport Stream)
// e.g. es, ts
//

const (
	AdtsHeaderLength        = 7
	AdtsHeaderLengthWithCrc = 9

	AscSamplingFrequencyIndex48000 = 3
	AscSamplingFrequencyIndex44100 = 4

	AudioObjectTypeAacLc = 2
	AudioObjectTypeSbr   = 5

	// SamplesPerFrame 一个aac帧包含的采样点数
	SamplesPerFrame = 1024
)

const (
	minAscLength = 2
)

// <ISO_IEC_14496-3.pdf>
// <1.6.3.3 samplingFrequencyIndex>
var samplingFrequencyTable = []uint32{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// SamplingFrequency
//
// @return: index非法时返回0和错误
func SamplingFrequency(index uint8) (uint32, error) {
	if int(index) >= len(samplingFrequencyTable) {
		return 0, fmt.Errorf("%w. index=%d", base.ErrSamplingFrequencyIndex, index)
	}
	return samplingFrequencyTable[index], nil
}

// <ISO_IEC_14496-3.pdf>
// <1.6.2.1 AudioSpecificConfig>, <page 33/110>
// <1.5.1.1 Audio Object type definition>, <page 23/110>
// <1.6.3.3 samplingFrequencyIndex>, <page 35/110>
// <1.6.3.4 channelConfiguration>
// --------------------------------------------------------
// audio object type      [5b] 1=AAC MAIN  2=AAC LC
// samplingFrequencyIndex [4b] 3=48000  4=44100  6=24000  5=32000  11=11025
// channelConfiguration   [4b] 1=center front speaker  2=left, right front speakers
type AscContext struct {
	AudioObjectType        uint8 // [5b]
	SamplingFrequencyIndex uint8 // [4b]
	ChannelConfiguration   uint8 // [4b]
}

func NewAscContext(asc []byte) (*AscContext, error) {
	var ascCtx AscContext
	if err := ascCtx.Unpack(asc); err != nil {
		return nil, err
	}
	return &ascCtx, nil
}

// Unpack
//
// @param asc: 2字节的AAC Audio Specifc Config
//             函数调用结束后，内部不持有该内存块
//
func (ascCtx *AscContext) Unpack(asc []byte) error {
	if len(asc) < minAscLength {
		Log.Warnf("aac asc length invalid. len=%d", len(asc))
		return base.NewErrShortBuffer(minAscLength, len(asc), "aac asc")
	}

	br := nazabits.NewBitReader(asc)
	ascCtx.AudioObjectType, _ = br.ReadBits8(5)
	ascCtx.SamplingFrequencyIndex, _ = br.ReadBits8(4)
	ascCtx.ChannelConfiguration, _ = br.ReadBits8(4)
	return nil
}

// Pack
//
// @return asc: 内存块为独立新申请；函数调用结束后，内部不持有该内存块
//
func (ascCtx *AscContext) Pack() (asc []byte) {
	asc = make([]byte, minAscLength)
	bw := nazabits.NewBitWriter(asc)
	bw.WriteBits8(5, ascCtx.AudioObjectType)
	bw.WriteBits8(4, ascCtx.SamplingFrequencyIndex)
	bw.WriteBits8(4, ascCtx.ChannelConfiguration)
	return
}

// PackAdtsHeader 每个帧的ADTS头依赖该帧的长度，需要独立生成
//
// [12b] syncword 0xFFF
// [1b]  ID 0, [2b] layer 0, [1b] protection_absent 1
// [2b]  profile, 为AudioObjectType-1
// [4b]  sampling_frequency_index
// [1b]  private_bit 0
// [3b]  channel_configuration
// [4b]  origin/copy, home, copyright_identification_bit/start 都为0
// [13b] aac_frame_length, 包含7字节头
// [11b] adts_buffer_fullness 0x7FF
// [2b]  number_of_raw_data_blocks_in_frame 0
//
// @param frameLength: raw aac frame的大小
//
// @return: 内存块为独立新申请
//
func (ascCtx *AscContext) PackAdtsHeader(frameLength int) []byte {
	out := make([]byte, AdtsHeaderLength)
	bw := nazabits.NewBitWriter(out)
	bw.WriteBits16(12, 0xFFF)
	bw.WriteBits8(4, 0x1)
	bw.WriteBits8(2, ascCtx.AudioObjectType-1)
	bw.WriteBits8(4, ascCtx.SamplingFrequencyIndex)
	bw.WriteBits8(4, ascCtx.ChannelConfiguration) // private_bit为0，和3位channel一起写
	bw.WriteBits8(4, 0)
	bw.WriteBits16(13, uint16(frameLength+AdtsHeaderLength))
	bw.WriteBits16(11, 0x7FF)
	bw.WriteBits8(2, 0)
	return out
}

// <ISO_IEC_14496-3.pdf>
// <1.A.2.2.1 Fixed Header of ADTS>, <page 75/110>
// <1.A.2.2.2 Variable Header of ADTS>, <page 76/110>
// <1.A.3.2.1 Definitions: Bitstream elements for ADTS>
// ----------------------------------------------------
// Syncword                 [12b] '1111 1111 1111'
// ID                       [1b]  1=MPEG-2 AAC 0=MPEG-4
// Layer                    [2b]
// protection_absent        [1b]  1=no crc check
// Profile_ObjectType       [2b]
// sampling_frequency_index [4b]
// private_bit              [1b]
// channel_configuration    [3b]
// origin/copy              [1b]
// home                     [1b]
// ------------------------------------
// copyright_identification_bit   [1b]
// copyright_identification_start [1b]
// aac_frame_length               [13b]
// adts_buffer_fullness           [11b]
// no_raw_data_blocks_in_frame    [2b]
type AdtsHeaderContext struct {
	AscCtx AscContext

	Id               uint8 // [1b] 1=MPEG-2 0=MPEG-4
	Layer            uint8 // [2b]
	ProtectionAbsent uint8 // [1b]

	AdtsLength uint16 // 字段中的值，包含了adts header + adts frame
}

func NewAdtsHeaderContext(adtsHeader []byte) (*AdtsHeaderContext, error) {
	var ctx AdtsHeaderContext
	if err := ctx.Unpack(adtsHeader); err != nil {
		return nil, err
	}
	return &ctx, nil
}

// IsAdtsHeader 检查sync word以及layer
func IsAdtsHeader(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xF6 == 0xF0
}

// Unpack
//
// @param adtsHeader: 函数调用结束后，内部不持有该内存块
//
func (ctx *AdtsHeaderContext) Unpack(adtsHeader []byte) error {
	if len(adtsHeader) < AdtsHeaderLength {
		return base.NewErrShortBuffer(AdtsHeaderLength, len(adtsHeader), "adts header")
	}

	br := nazabits.NewBitReader(adtsHeader)
	sync, _ := br.ReadBits16(12)
	if sync != 0xFFF {
		return base.NewErrAdtsSync(adtsHeader[:2])
	}
	ctx.Id, _ = br.ReadBits8(1)
	ctx.Layer, _ = br.ReadBits8(2)
	ctx.ProtectionAbsent, _ = br.ReadBits8(1)
	v, _ := br.ReadBits8(2)
	ctx.AscCtx.AudioObjectType = v + 1
	ctx.AscCtx.SamplingFrequencyIndex, _ = br.ReadBits8(4)
	_ = br.SkipBits(1)
	ctx.AscCtx.ChannelConfiguration, _ = br.ReadBits8(3)
	_ = br.SkipBits(4)
	ctx.AdtsLength, _ = br.ReadBits16(13)

	if _, err := SamplingFrequency(ctx.AscCtx.SamplingFrequencyIndex); err != nil {
		return err
	}
	return nil
}

// HeaderLength protection_absent为0时，头部后面跟着2字节crc
func (ctx *AdtsHeaderContext) HeaderLength() int {
	if ctx.ProtectionAbsent == 0 {
		return AdtsHeaderLengthWithCrc
	}
	return AdtsHeaderLength
}

func (ctx *AdtsHeaderContext) SamplingFrequency() uint32 {
	v, _ := SamplingFrequency(ctx.AscCtx.SamplingFrequencyIndex)
	return v
}
