// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc_test

import (
	"testing"

	"github.com/q191201771/hlsts/pkg/avc"
	"github.com/q191201771/naza/pkg/assert"
)

// High 3.1, 1280x720, 25fps
var goldenSps = []byte{
	0x67, 0x64, 0x00, 0x1F, 0xAC, 0xD9, 0x40, 0x50, 0x05, 0xBB, 0x01, 0x10, 0x00, 0x00, 0x03, 0x00,
	0x10, 0x00, 0x00, 0x03, 0x03, 0x28, 0x40,
}

// Baseline 4.0, 1920x1088 裁剪为 1920x1080，没有vui
// pic_width_in_mbs_minus1=119, pic_height_in_map_units_minus1=67, frame_crop_bottom_offset=4
var goldenSpsCrop = []byte{0x67, 0x42, 0xC0, 0x28, 0xDA, 0x01, 0xE0, 0x08, 0x9F, 0x95}

// Main 3.0, 720x576, pic_order_cnt_type 1, sar 4:3, 60000/1001 非固定帧率
var goldenSpsSar = []byte{
	0x67, 0x4D, 0x40, 0x1E, 0xD1, 0x91, 0x98, 0x4A, 0x02, 0xD0, 0x49, 0xBF, 0xF0, 0x00, 0x40, 0x00,
	0x3B, 0x70, 0x10, 0x10, 0x1F, 0x00, 0x00, 0x03, 0x03, 0xE9, 0x00, 0x00, 0xEA, 0x60, 0x40,
}

var goldenPps = []byte{0x68, 0xEB, 0xE3, 0xCB, 0x22, 0xC0}

func TestParseSps(t *testing.T) {
	var ctx avc.Context
	err := avc.ParseSps(goldenSps, &ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(100), ctx.Profile)
	assert.Equal(t, uint8(31), ctx.Level)
	assert.Equal(t, "High", ctx.ProfileString)
	assert.Equal(t, "3.1", ctx.LevelString)
	assert.Equal(t, uint32(420), ctx.ChromaFormat)
	assert.Equal(t, uint32(8), ctx.BitDepthLuma)
	assert.Equal(t, uint32(1280), ctx.Width)
	assert.Equal(t, uint32(720), ctx.Height)
	assert.Equal(t, uint32(1280), ctx.PresentWidth)
	assert.Equal(t, uint32(1), ctx.SarWidth)
	assert.Equal(t, true, ctx.FpsFixed)
	assert.Equal(t, uint32(50), ctx.FpsNum)
	assert.Equal(t, uint32(2), ctx.FpsDen)
	assert.Equal(t, float64(25), ctx.Fps)
	assert.Equal(t, "avc1.64001f", avc.CodecString(goldenSps))
}

func TestParseSpsCrop(t *testing.T) {
	var ctx avc.Context
	err := avc.ParseSps(goldenSpsCrop, &ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, "Baseline", ctx.ProfileString)
	assert.Equal(t, "4.0", ctx.LevelString)
	assert.Equal(t, uint32(1920), ctx.Width)
	assert.Equal(t, uint32(1080), ctx.Height)
	// 没有timing信息时使用默认帧率
	assert.Equal(t, uint32(25), ctx.FpsNum)
	assert.Equal(t, uint32(1), ctx.FpsDen)
	assert.Equal(t, true, ctx.FpsFixed)
	assert.Equal(t, "avc1.42c028", avc.CodecString(goldenSpsCrop))
}

func TestParseSpsSar(t *testing.T) {
	var sps avc.Sps
	err := avc.ParseSpsRaw(goldenSpsSar, &sps)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(1), sps.PicOrderCntType)
	assert.Equal(t, uint8(255), sps.AspectRatioIdc)
	assert.Equal(t, uint8(1), sps.VideoFullRangeFlag)

	var ctx avc.Context
	err = avc.ParseSps(goldenSpsSar, &ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, "Main", ctx.ProfileString)
	assert.Equal(t, "3.0", ctx.LevelString)
	assert.Equal(t, uint32(720), ctx.Width)
	assert.Equal(t, uint32(576), ctx.Height)
	assert.Equal(t, uint32(4), ctx.SarWidth)
	assert.Equal(t, uint32(3), ctx.SarHeight)
	assert.Equal(t, uint32(960), ctx.PresentWidth)
	assert.Equal(t, uint32(576), ctx.PresentHeight)
	assert.Equal(t, false, ctx.FpsFixed)
	assert.Equal(t, uint32(60000), ctx.FpsNum)
	assert.Equal(t, uint32(2002), ctx.FpsDen)
}

func TestParseSpsShort(t *testing.T) {
	var ctx avc.Context
	assert.IsNotNil(t, avc.ParseSps([]byte{0x67, 0x64}, &ctx))
	assert.IsNotNil(t, avc.ParseSps([]byte{0x67, 0x64, 0x00, 0x1F}, &ctx))
}

func TestDecoderConfigurationRecord(t *testing.T) {
	record, err := avc.BuildDecoderConfigurationRecord(goldenSps, goldenPps)
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte{0x01, 0x64, 0x00, 0x1F, 0xFF, 0xE1, 0x00, byte(len(goldenSps))}, record[:8])
	assert.Equal(t, 11+len(goldenSps)+len(goldenPps), len(record))

	sps, pps, err := avc.ParseDecoderConfigurationRecord(record)
	assert.Equal(t, nil, err)
	assert.Equal(t, goldenSps, sps)
	assert.Equal(t, goldenPps, pps)

	_, _, err = avc.ParseDecoderConfigurationRecord(record[:10])
	assert.IsNotNil(t, err)
}

func TestCalcSliceType(t *testing.T) {
	assert.Equal(t, avc.SliceTypeI, avc.CalcSliceType([]byte{0x65, 0x88}))
	assert.Equal(t, avc.SliceTypeP, avc.CalcSliceType([]byte{0x41, 0x98}))
	assert.Equal(t, "I", avc.CalcSliceTypeReadable([]byte{0x65, 0x88}))
}

func TestNaluType(t *testing.T) {
	assert.Equal(t, "IDR", avc.CalcNaluTypeReadable([]byte{0x65}))
	assert.Equal(t, "SPS", avc.CalcNaluTypeReadable([]byte{0x67}))
	assert.Equal(t, "unknown", avc.CalcNaluTypeReadable([]byte{0x6E}))
	assert.Equal(t, true, avc.IsSampleNalu(avc.NaluTypeIdrSlice))
	assert.Equal(t, true, avc.IsSampleNalu(avc.NaluTypeSlice))
	assert.Equal(t, false, avc.IsSampleNalu(avc.NaluTypeSei))
	assert.Equal(t, false, avc.IsSampleNalu(avc.NaluTypeAud))
	assert.Equal(t, false, avc.IsSampleNalu(avc.NaluTypeSps))
}

func TestParseSei(t *testing.T) {
	msgs, err := avc.ParseSei([]byte{0x06, 0x01, 0x02, 0xAA, 0xBB, 0x80})
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(msgs))
	assert.Equal(t, []byte{0xAA, 0xBB}, msgs[0].Payload)
}
