// Copyright 2019, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"fmt"
	"math"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/h2645"
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
)

var NaluTypeMapping = map[uint8]string{
	1:  "SLICE",
	5:  "IDR",
	6:  "SEI",
	7:  "SPS",
	8:  "PPS",
	9:  "AUD",
	12: "FD",
}

var SliceTypeMapping = map[uint8]string{
	0: "P",
	1: "B",
	2: "I",
	3: "SP",
	4: "SI",
	5: "P",
	6: "B",
	7: "I",
	8: "SP",
	9: "SI",
}

const (
	NaluTypeSlice    uint8 = 1
	NaluTypeIdrSlice uint8 = 5
	NaluTypeSei      uint8 = 6
	NaluTypeSps      uint8 = 7
	NaluTypePps      uint8 = 8
	NaluTypeAud      uint8 = 9
	NaluTypeFd       uint8 = 12
)

const (
	SliceTypeP  uint8 = 0
	SliceTypeB  uint8 = 1
	SliceTypeI  uint8 = 2
	SliceTypeSP uint8 = 3
	SliceTypeSI uint8 = 4
)

// CalcSliceType 只读取first_mb_in_slice为0的情况，即nalu[1]最高位为1
func CalcSliceType(nalu []byte) uint8 {
	c := nalu[1]
	var leadingZeroBits int
	index := 6
	for ; index >= 0; index-- {
		v := nazabits.GetBit8(c, uint(index))
		if v == 0 {
			leadingZeroBits++
		} else {
			break
		}
	}
	rbLeadingZeroBits := nazabits.GetBits8(c, uint(index-leadingZeroBits), uint(leadingZeroBits))
	codeNum := int(math.Pow(2, float64(leadingZeroBits))) - 1 + int(rbLeadingZeroBits)
	if codeNum > 4 {
		codeNum -= 5
	}
	return uint8(codeNum)
}

func CalcSliceTypeReadable(nalu []byte) string {
	t := CalcSliceType(nalu)
	ret, ok := SliceTypeMapping[t]
	if !ok {
		return "unknown"
	}
	return ret
}

func ParseNaluType(v uint8) uint8 {
	return v & 0x1f
}

func CalcNaluType(nalu []byte) uint8 {
	return nalu[0] & 0x1f
}

func CalcNaluTypeReadable(nalu []byte) string {
	ret, ok := NaluTypeMapping[CalcNaluType(nalu)]
	if !ok {
		return "unknown"
	}
	return ret
}

// IsSampleNalu 是否需要放入sample中
//
// 参数集、SEI以及类型大于等于9的nalu（AUD、end of seq等）不放入sample
func IsSampleNalu(t uint8) bool {
	return t < NaluTypeAud && t != NaluTypeSps && t != NaluTypePps && t != NaluTypeSei
}

// CodecString e.g. avc1.64001f
//
// @param sps: 包含nal header
func CodecString(sps []byte) string {
	if len(sps) < 4 {
		return "avc1"
	}
	return fmt.Sprintf("avc1.%02x%02x%02x", sps[1], sps[2], sps[3])
}

// BuildDecoderConfigurationRecord 生成AVCDecoderConfigurationRecord，即avcC box的内容
//
// H.264-AVC-ISO_IEC_14496-15.pdf
// 5.2.4 Decoder configuration information
func BuildDecoderConfigurationRecord(sps, pps []byte) ([]byte, error) {
	if len(sps) < 4 {
		return nil, base.NewErrShortBuffer(4, len(sps), "avc sps")
	}
	out := make([]byte, 11+len(sps)+len(pps))
	out[0] = 0x01   // configurationVersion
	out[1] = sps[1] // AVCProfileIndication
	out[2] = sps[2] // profile_compatibility
	out[3] = sps[3] // AVCLevelIndication
	out[4] = 0xFF   // reserved + lengthSizeMinusOne(3)
	out[5] = 0xE1   // reserved + numOfSequenceParameterSets(1)
	bele.BePutUint16(out[6:], uint16(len(sps)))
	copy(out[8:], sps)
	i := 8 + len(sps)
	out[i] = 0x01 // numOfPictureParameterSets
	bele.BePutUint16(out[i+1:], uint16(len(pps)))
	copy(out[i+3:], pps)
	return out, nil
}

// ParseDecoderConfigurationRecord 从avcC中取出sps和pps，有多个时只取第一个
func ParseDecoderConfigurationRecord(record []byte) (sps, pps []byte, err error) {
	if len(record) < 6 {
		return nil, nil, base.NewErrShortBuffer(6, len(record), "avcc")
	}
	index := 5
	numOfSps := int(record[index] & 0x1F)
	index++
	for i := 0; i < numOfSps; i++ {
		if len(record) < index+2 {
			return nil, nil, base.NewErrShortBuffer(index+2, len(record), "avcc sps length")
		}
		l := int(bele.BeUint16(record[index:]))
		index += 2
		if len(record) < index+l {
			return nil, nil, base.NewErrShortBuffer(index+l, len(record), "avcc sps")
		}
		if sps == nil {
			sps = record[index : index+l]
		}
		index += l
	}

	if len(record) < index+1 {
		return nil, nil, base.NewErrShortBuffer(index+1, len(record), "avcc pps num")
	}
	numOfPps := int(record[index] & 0x1F)
	index++
	for i := 0; i < numOfPps; i++ {
		if len(record) < index+2 {
			return nil, nil, base.NewErrShortBuffer(index+2, len(record), "avcc pps length")
		}
		l := int(bele.BeUint16(record[index:]))
		index += 2
		if len(record) < index+l {
			return nil, nil, base.NewErrShortBuffer(index+l, len(record), "avcc pps")
		}
		if pps == nil {
			pps = record[index : index+l]
		}
		index += l
	}
	return
}

// ParseSei
//
// @param nal: 包含1字节nal header
func ParseSei(nal []byte) ([]h2645.SeiMessage, error) {
	if len(nal) < 2 {
		return nil, base.NewErrShortBuffer(2, len(nal), "avc sei")
	}
	return h2645.ParseSeiMessages(h2645.EbspToRbsp(nal[1:]))
}
