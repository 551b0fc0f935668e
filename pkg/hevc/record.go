// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

// BuildDecoderConfigurationRecord 生成HEVCDecoderConfigurationRecord，即hvcC box的内容
//
// ISO_IEC_14496-15.pdf
// 8.3.3.1.2 Syntax
//
// @param vps, sps, pps: 包含2字节nal header
func BuildDecoderConfigurationRecord(vps, sps, pps []byte) ([]byte, error) {
	var ctx Context
	if err := ParseSps(sps, &ctx); err != nil {
		return nil, err
	}
	if len(vps) < 2 || len(pps) < 2 {
		return nil, base.NewErrShortBuffer(2, len(pps), "hevc vps or pps")
	}

	out := make([]byte, 23, 23+3*5+len(vps)+len(sps)+len(pps))
	out[0] = 0x01 // configurationVersion
	out[1] = ctx.GeneralProfileSpace<<6 | ctx.GeneralTierFlag<<5 | ctx.GeneralProfileIdc
	bele.BePutUint32(out[2:], ctx.GeneralProfileCompatibilityFlags)
	for i := 0; i < 6; i++ {
		out[6+i] = uint8(ctx.GeneralConstraintIndicatorFlags >> uint((5-i)*8))
	}
	out[12] = ctx.GeneralLevelIdc
	out[13] = 0xF0 // reserved + min_spatial_segmentation_idc
	out[14] = 0x00
	out[15] = 0xFC                                      // reserved + parallelismType
	out[16] = 0xFC | uint8(ctx.ChromaFormatIdc&0x03)    // reserved + chromaFormat
	out[17] = 0xF8 | uint8((ctx.BitDepthLuma-8)&0x07)   // reserved + bitDepthLumaMinus8
	out[18] = 0xF8 | uint8((ctx.BitDepthChroma-8)&0x07) // reserved + bitDepthChromaMinus8
	out[19] = 0x00                                      // avgFrameRate
	out[20] = 0x00
	// constantFrameRate(2) + numTemporalLayers(3) + temporalIdNested(1) + lengthSizeMinusOne(2)
	out[21] = (ctx.SpsMaxSubLayersMinus1+1)<<3 | (ctx.SpsTemporalIdNestingFlag&0x01)<<2 | 0x03
	out[22] = 3 // numOfArrays

	for _, nal := range [][]byte{vps, sps, pps} {
		out = append(out, CalcNaluType(nal)&0x3F) // array_completeness(0) + reserved(0) + NAL_unit_type
		out = append(out, 0x00, 0x01)             // numNalus
		out = append(out, uint8(len(nal)>>8), uint8(len(nal)))
		out = append(out, nal...)
	}
	return out, nil
}

// ParseDecoderConfigurationRecord 从hvcC中取出vps、sps、pps，每种有多个时只取第一个
func ParseDecoderConfigurationRecord(record []byte) (vps, sps, pps []byte, err error) {
	if len(record) < 23 {
		return nil, nil, nil, base.NewErrShortBuffer(23, len(record), "hvcc")
	}
	numOfArrays := int(record[22])
	index := 23
	for i := 0; i < numOfArrays; i++ {
		if len(record) < index+3 {
			return nil, nil, nil, base.NewErrShortBuffer(index+3, len(record), "hvcc array")
		}
		t := record[index] & 0x3F
		numNalus := int(bele.BeUint16(record[index+1:]))
		index += 3
		for j := 0; j < numNalus; j++ {
			if len(record) < index+2 {
				return nil, nil, nil, base.NewErrShortBuffer(index+2, len(record), "hvcc nalu length")
			}
			l := int(bele.BeUint16(record[index:]))
			index += 2
			if len(record) < index+l {
				return nil, nil, nil, base.NewErrShortBuffer(index+l, len(record), "hvcc nalu")
			}
			nal := record[index : index+l]
			index += l
			switch {
			case t == NaluTypeVps && vps == nil:
				vps = nal
			case t == NaluTypeSps && sps == nil:
				sps = nal
			case t == NaluTypePps && pps == nil:
				pps = nal
			}
		}
	}
	return
}
