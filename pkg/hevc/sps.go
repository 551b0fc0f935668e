// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/h2645"
	"github.com/q191201771/naza/pkg/nazabytes"
)

// ProfileTierLevel general部分
//
// ISO_IEC_23008-2.pdf
// 7.3.3 Profile, tier and level syntax
type ProfileTierLevel struct {
	GeneralProfileSpace              uint8  // [2b]
	GeneralTierFlag                  uint8  // [1b]
	GeneralProfileIdc                uint8  // [5b]
	GeneralProfileCompatibilityFlags uint32 // [32b]
	GeneralConstraintIndicatorFlags  uint64 // [48b]
	GeneralLevelIdc                  uint8  // [8b]
}

// Context 由vps、sps推导出来的，上层关心的信息
type Context struct {
	ProfileTierLevel

	SpsMaxSubLayersMinus1    uint8
	SpsTemporalIdNestingFlag uint8

	ChromaFormatIdc uint32
	ChromaFormat    uint32 // 420, 422, 444
	BitDepthLuma    uint32
	BitDepthChroma  uint32

	Width  uint32 // 去除conformance window之后的宽高
	Height uint32
}

// VpsContext vps中的timing信息
type VpsContext struct {
	ProfileTierLevel

	MaxSubLayersMinus1 uint8

	TimingInfoPresentFlag uint8
	NumUnitsInTick        uint32
	TimeScale             uint32
}

var chromaFormatTable = []uint32{0, 420, 422, 444}

// ParseSps
//
// @param nal: 包含2字节nal header，可以包含防竞争字节
//
// 只解析到bit_depth_chroma_minus8为止
//
// ISO_IEC_23008-2.pdf
// 7.3.2.2 Sequence parameter set RBSP syntax
func ParseSps(nal []byte, ctx *Context) error {
	if len(nal) < 4 {
		return base.NewErrShortBuffer(4, len(nal), "hevc sps")
	}

	r := h2645.NewRbspReader(h2645.EbspToRbsp(nal[2:]))
	r.Skip(4) // sps_video_parameter_set_id
	ctx.SpsMaxSubLayersMinus1 = r.U8(3)
	ctx.SpsTemporalIdNestingFlag = r.U8(1)
	parseProfileTierLevel(r, &ctx.ProfileTierLevel, ctx.SpsMaxSubLayersMinus1)

	_ = r.Ue() // sps_seq_parameter_set_id
	ctx.ChromaFormatIdc = r.Ue()
	if ctx.ChromaFormatIdc > 3 {
		return fmt.Errorf("%w. invalid chroma_format_idc %d", base.ErrHevc, ctx.ChromaFormatIdc)
	}
	ctx.ChromaFormat = chromaFormatTable[ctx.ChromaFormatIdc]
	if ctx.ChromaFormatIdc == 3 {
		r.Skip(1) // separate_colour_plane_flag
	}
	width := r.Ue()  // pic_width_in_luma_samples
	height := r.Ue() // pic_height_in_luma_samples

	var left, right, top, bottom uint32
	if r.Flag() { // conformance_window_flag
		left = r.Ue()
		right = r.Ue()
		top = r.Ue()
		bottom = r.Ue()
	}
	bitDepthLumaMinus8 := r.Ue()
	bitDepthChromaMinus8 := r.Ue()
	if r.Err() != nil {
		Log.Errorf("parse hevc sps failed. err=%+v, payload=%s", r.Err(), hex.Dump(nazabytes.Prefix(nal, 128)))
		return r.Err()
	}

	subWidthC, subHeightC := uint32(1), uint32(1)
	switch ctx.ChromaFormatIdc {
	case 1:
		subWidthC, subHeightC = 2, 2
	case 2:
		subWidthC = 2
	}
	ctx.Width = width
	ctx.Height = height
	if cw := (left + right) * subWidthC; cw < width {
		ctx.Width -= cw
	}
	if ch := (top + bottom) * subHeightC; ch < height {
		ctx.Height -= ch
	}
	ctx.BitDepthLuma = bitDepthLumaMinus8 + 8
	ctx.BitDepthChroma = bitDepthChromaMinus8 + 8
	return nil
}

// ParseVps 主要是为了拿到vps_timing_info
//
// ISO_IEC_23008-2.pdf
// 7.3.2.1 Video parameter set RBSP syntax
func ParseVps(nal []byte, ctx *VpsContext) error {
	if len(nal) < 6 {
		return base.NewErrShortBuffer(6, len(nal), "hevc vps")
	}

	r := h2645.NewRbspReader(h2645.EbspToRbsp(nal[2:]))
	r.Skip(4) // vps_video_parameter_set_id
	r.Skip(2) // vps_base_layer_internal_flag, vps_base_layer_available_flag
	r.Skip(6) // vps_max_layers_minus1
	ctx.MaxSubLayersMinus1 = r.U8(3)
	r.Skip(1)  // vps_temporal_id_nesting_flag
	r.Skip(16) // vps_reserved_0xffff_16bits
	parseProfileTierLevel(r, &ctx.ProfileTierLevel, ctx.MaxSubLayersMinus1)

	start := uint8(0)
	if !r.Flag() { // vps_sub_layer_ordering_info_present_flag
		start = ctx.MaxSubLayersMinus1
	}
	for i := start; i <= ctx.MaxSubLayersMinus1 && r.Err() == nil; i++ {
		_ = r.Ue() // vps_max_dec_pic_buffering_minus1
		_ = r.Ue() // vps_max_num_reorder_pics
		_ = r.Ue() // vps_max_latency_increase_plus1
	}
	maxLayerId := r.U(6)
	numLayerSetsMinus1 := r.Ue()
	if numLayerSetsMinus1 > 1023 {
		return fmt.Errorf("%w. invalid vps_num_layer_sets_minus1 %d", base.ErrHevc, numLayerSetsMinus1)
	}
	for i := uint32(1); i <= numLayerSetsMinus1 && r.Err() == nil; i++ {
		r.Skip(uint(maxLayerId) + 1) // layer_id_included_flag
	}
	ctx.TimingInfoPresentFlag = r.U8(1)
	if ctx.TimingInfoPresentFlag == 1 {
		ctx.NumUnitsInTick = r.U(32)
		ctx.TimeScale = r.U(32)
	}
	return r.Err()
}

// CodecString RFC 6381 / ISO_IEC_14496-15 E.3, e.g. hev1.1.6.L93.B0
func (ptl *ProfileTierLevel) CodecString() string {
	var sb strings.Builder
	sb.WriteString("hev1.")
	if ptl.GeneralProfileSpace > 0 {
		sb.WriteByte('A' + ptl.GeneralProfileSpace - 1)
	}
	tier := "L"
	if ptl.GeneralTierFlag == 1 {
		tier = "H"
	}
	_, _ = fmt.Fprintf(&sb, "%d.%X.%s%d", ptl.GeneralProfileIdc, bits.Reverse32(ptl.GeneralProfileCompatibilityFlags), tier, ptl.GeneralLevelIdc)

	// 6字节的constraint flags，去掉尾部的0
	var cb [6]byte
	last := -1
	for i := 0; i < 6; i++ {
		cb[i] = uint8(ptl.GeneralConstraintIndicatorFlags >> uint((5-i)*8))
		if cb[i] != 0 {
			last = i
		}
	}
	for i := 0; i <= last; i++ {
		_, _ = fmt.Fprintf(&sb, ".%X", cb[i])
	}
	return sb.String()
}

// ----- private -------------------------------------------------------------------------------------------------------

func parseProfileTierLevel(r *h2645.RbspReader, ptl *ProfileTierLevel, maxSubLayersMinus1 uint8) {
	ptl.GeneralProfileSpace = r.U8(2)
	ptl.GeneralTierFlag = r.U8(1)
	ptl.GeneralProfileIdc = r.U8(5)
	ptl.GeneralProfileCompatibilityFlags = r.U(32)
	ptl.GeneralConstraintIndicatorFlags = uint64(r.U(16))<<32 | uint64(r.U(32))
	ptl.GeneralLevelIdc = r.U8(8)

	if maxSubLayersMinus1 == 0 {
		return
	}
	var profilePresent, levelPresent [8]bool
	for i := uint8(0); i < maxSubLayersMinus1; i++ {
		profilePresent[i] = r.Flag()
		levelPresent[i] = r.Flag()
	}
	for i := maxSubLayersMinus1; i < 8; i++ {
		r.Skip(2) // reserved_zero_2bits
	}
	for i := uint8(0); i < maxSubLayersMinus1; i++ {
		if profilePresent[i] {
			r.Skip(88)
		}
		if levelPresent[i] {
			r.Skip(8)
		}
	}
}
