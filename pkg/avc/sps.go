// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/h2645"
	"github.com/q191201771/naza/pkg/nazabytes"
	"github.com/q191201771/naza/pkg/nazaerrors"
)

// Sps sps中解析出来的原始字段，只保存后续计算需要的部分
//
// ISO-14496-10.pdf
// 7.3.2.1.1 Sequence parameter set data syntax
// E.1.1 VUI parameters syntax
type Sps struct {
	ProfileIdc      uint8
	ConstraintFlags uint8
	LevelIdc        uint8
	SpsId           uint32

	ChromaFormatIdc           uint32
	SeparateColourPlaneFlag   uint8
	BitDepthLumaMinus8        uint32
	BitDepthChromaMinus8      uint32
	Log2MaxFrameNumMinus4     uint32
	PicOrderCntType           uint32
	MaxNumRefFrames           uint32
	PicWidthInMbsMinusOne     uint32
	PicHeightInMapUnitsMinus1 uint32
	FrameMbsOnlyFlag          uint8

	FrameCroppingFlag     uint8
	FrameCropLeftOffset   uint32
	FrameCropRightOffset  uint32
	FrameCropTopOffset    uint32
	FrameCropBottomOffset uint32

	VuiParametersPresentFlag uint8
	AspectRatioIdc           uint8
	SarWidth                 uint32
	SarHeight                uint32
	VideoFullRangeFlag       uint8
	TimingInfoPresentFlag    uint8
	NumUnitsInTick           uint32
	TimeScale                uint32
	FixedFrameRateFlag       uint8
}

// Context 由sps推导出来的，上层关心的信息
type Context struct {
	Profile uint8
	Level   uint8

	ProfileString string // e.g. High
	LevelString   string // e.g. 3.1

	ChromaFormat   uint32 // 420, 422, 444
	BitDepthLuma   uint32
	BitDepthChroma uint32

	Width         uint32 // 去除裁剪后的宽高
	Height        uint32
	PresentWidth  uint32 // 考虑了sar之后的显示宽高
	PresentHeight uint32

	SarWidth  uint32
	SarHeight uint32

	FpsFixed bool
	FpsNum   uint32
	FpsDen   uint32
	Fps      float64
}

var sarTable = [][2]uint32{
	{1, 1}, {12, 11}, {10, 11}, {16, 11},
	{40, 33}, {24, 11}, {20, 11}, {32, 11},
	{80, 33}, {18, 11}, {15, 11}, {64, 33},
	{160, 99}, {4, 3}, {3, 2}, {2, 1},
}

var chromaFormatTable = []uint32{0, 420, 422, 444}

// ParseSps
//
// @param nal: 包含1字节nal header，可以包含防竞争字节
func ParseSps(nal []byte, ctx *Context) error {
	var sps Sps
	if err := ParseSpsRaw(nal, &sps); err != nil {
		Log.Errorf("parse sps failed. err=%+v, payload=%s", err, hex.Dump(nazabytes.Prefix(nal, 128)))
		return err
	}
	sps.fillContext(ctx)
	return nil
}

func ParseSpsRaw(nal []byte, sps *Sps) error {
	if len(nal) < 4 {
		return base.NewErrShortBuffer(4, len(nal), "avc sps")
	}

	r := h2645.NewRbspReader(h2645.EbspToRbsp(nal[1:]))
	sps.ProfileIdc = r.U8(8)
	sps.ConstraintFlags = r.U8(8)
	sps.LevelIdc = r.U8(8)
	sps.SpsId = r.Ue()
	if r.Err() != nil {
		return r.Err()
	}
	if sps.SpsId >= 32 {
		return nazaerrors.Wrap(fmt.Errorf("%w. invalid sps id %d", base.ErrAvc, sps.SpsId))
	}

	sps.ChromaFormatIdc = 1
	if isHighProfile(sps.ProfileIdc) {
		sps.ChromaFormatIdc = r.Ue()
		if sps.ChromaFormatIdc > 3 {
			return nazaerrors.Wrap(fmt.Errorf("%w. invalid chroma_format_idc %d", base.ErrAvc, sps.ChromaFormatIdc))
		}
		if sps.ChromaFormatIdc == 3 {
			sps.SeparateColourPlaneFlag = r.U8(1)
		}
		sps.BitDepthLumaMinus8 = r.Ue()
		sps.BitDepthChromaMinus8 = r.Ue()
		r.Skip(1)     // qpprime_y_zero_transform_bypass_flag
		if r.Flag() { // seq_scaling_matrix_present_flag
			n := 8
			if sps.ChromaFormatIdc == 3 {
				n = 12
			}
			for i := 0; i < n; i++ {
				if !r.Flag() { // seq_scaling_list_present_flag
					continue
				}
				if i < 6 {
					r.SkipScalingList(16)
				} else {
					r.SkipScalingList(64)
				}
			}
		}
	}

	sps.Log2MaxFrameNumMinus4 = r.Ue()
	sps.PicOrderCntType = r.Ue()
	switch sps.PicOrderCntType {
	case 0:
		_ = r.Ue() // log2_max_pic_order_cnt_lsb_minus4
	case 1:
		r.Skip(1)  // delta_pic_order_always_zero_flag
		_ = r.Se() // offset_for_non_ref_pic
		_ = r.Se() // offset_for_top_to_bottom_field
		n := r.Ue()
		if n > 255 {
			return nazaerrors.Wrap(fmt.Errorf("%w. invalid num_ref_frames_in_pic_order_cnt_cycle %d", base.ErrAvc, n))
		}
		for i := uint32(0); i < n && r.Err() == nil; i++ {
			_ = r.Se() // offset_for_ref_frame[i]
		}
	}
	sps.MaxNumRefFrames = r.Ue()
	r.Skip(1) // gaps_in_frame_num_value_allowed_flag
	sps.PicWidthInMbsMinusOne = r.Ue()
	sps.PicHeightInMapUnitsMinus1 = r.Ue()
	sps.FrameMbsOnlyFlag = r.U8(1)
	if sps.FrameMbsOnlyFlag == 0 {
		r.Skip(1) // mb_adaptive_frame_field_flag
	}
	r.Skip(1) // direct_8x8_inference_flag
	sps.FrameCroppingFlag = r.U8(1)
	if sps.FrameCroppingFlag == 1 {
		sps.FrameCropLeftOffset = r.Ue()
		sps.FrameCropRightOffset = r.Ue()
		sps.FrameCropTopOffset = r.Ue()
		sps.FrameCropBottomOffset = r.Ue()
	}
	if r.Err() != nil {
		return r.Err()
	}

	sps.VuiParametersPresentFlag = r.U8(1)
	if sps.VuiParametersPresentFlag == 1 {
		parseVui(r, sps)
		if r.Err() != nil {
			// vui不完整时不影响宽高等基础信息
			Log.Warnf("parse sps vui failed. err=%+v", r.Err())
			sps.TimingInfoPresentFlag = 0
		}
	}
	return nil
}

// CalcSpsWidthHeight 去除裁剪后的宽高
func (sps *Sps) CalcSpsWidthHeight() (width, height uint32) {
	var cropUnitX, cropUnitY uint32
	frameMbsOnly := uint32(sps.FrameMbsOnlyFlag)
	if sps.ChromaFormatIdc == 0 || sps.SeparateColourPlaneFlag == 1 {
		cropUnitX = 1
		cropUnitY = 2 - frameMbsOnly
	} else {
		subWidthC, subHeightC := uint32(2), uint32(2)
		switch sps.ChromaFormatIdc {
		case 2:
			subHeightC = 1
		case 3:
			subWidthC, subHeightC = 1, 1
		}
		cropUnitX = subWidthC
		cropUnitY = subHeightC * (2 - frameMbsOnly)
	}

	width = (sps.PicWidthInMbsMinusOne + 1) * 16
	height = (2 - frameMbsOnly) * (sps.PicHeightInMapUnitsMinus1 + 1) * 16
	cropW := (sps.FrameCropLeftOffset + sps.FrameCropRightOffset) * cropUnitX
	cropH := (sps.FrameCropTopOffset + sps.FrameCropBottomOffset) * cropUnitY
	if cropW < width {
		width -= cropW
	}
	if cropH < height {
		height -= cropH
	}
	return
}

func ProfileString(profileIdc uint8) string {
	switch profileIdc {
	case 66:
		return "Baseline"
	case 77:
		return "Main"
	case 88:
		return "Extended"
	case 100:
		return "High"
	case 110:
		return "High10"
	case 122:
		return "High422"
	case 244:
		return "High444"
	}
	return "Unknown"
}

func LevelString(levelIdc uint8) string {
	return fmt.Sprintf("%.1f", float64(levelIdc)/10)
}

// ----- private -------------------------------------------------------------------------------------------------------

func isHighProfile(profileIdc uint8) bool {
	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 144:
		return true
	}
	return false
}

func parseVui(r *h2645.RbspReader, sps *Sps) {
	if r.Flag() { // aspect_ratio_info_present_flag
		sps.AspectRatioIdc = r.U8(8)
		if sps.AspectRatioIdc > 0 && int(sps.AspectRatioIdc) <= len(sarTable) {
			sps.SarWidth = sarTable[sps.AspectRatioIdc-1][0]
			sps.SarHeight = sarTable[sps.AspectRatioIdc-1][1]
		} else if sps.AspectRatioIdc == 255 { // Extended_SAR
			sps.SarWidth = r.U(16)
			sps.SarHeight = r.U(16)
		}
	}
	if r.Flag() { // overscan_info_present_flag
		r.Skip(1) // overscan_appropriate_flag
	}
	if r.Flag() { // video_signal_type_present_flag
		r.Skip(3) // video_format
		sps.VideoFullRangeFlag = r.U8(1)
		if r.Flag() { // colour_description_present_flag
			r.Skip(24)
		}
	}
	if r.Flag() { // chroma_loc_info_present_flag
		_ = r.Ue()
		_ = r.Ue()
	}
	sps.TimingInfoPresentFlag = r.U8(1)
	if sps.TimingInfoPresentFlag == 1 {
		sps.NumUnitsInTick = r.U(32)
		sps.TimeScale = r.U(32)
		sps.FixedFrameRateFlag = r.U8(1)
	}
}

func (sps *Sps) fillContext(ctx *Context) {
	ctx.Profile = sps.ProfileIdc
	ctx.Level = sps.LevelIdc
	ctx.ProfileString = ProfileString(sps.ProfileIdc)
	ctx.LevelString = LevelString(sps.LevelIdc)
	if int(sps.ChromaFormatIdc) < len(chromaFormatTable) {
		ctx.ChromaFormat = chromaFormatTable[sps.ChromaFormatIdc]
	}
	ctx.BitDepthLuma = sps.BitDepthLumaMinus8 + 8
	ctx.BitDepthChroma = sps.BitDepthChromaMinus8 + 8

	ctx.Width, ctx.Height = sps.CalcSpsWidthHeight()

	ctx.SarWidth, ctx.SarHeight = 1, 1
	if sps.SarWidth != 0 && sps.SarHeight != 0 {
		ctx.SarWidth, ctx.SarHeight = sps.SarWidth, sps.SarHeight
	}
	ctx.PresentWidth = ctx.Width
	ctx.PresentHeight = ctx.Height
	if ctx.SarWidth != ctx.SarHeight {
		ctx.PresentWidth = uint32(math.Ceil(float64(ctx.Width) * float64(ctx.SarWidth) / float64(ctx.SarHeight)))
	}

	ctx.FpsFixed = true
	ctx.FpsNum = base.TsdemuxDefaultFpsNum
	ctx.FpsDen = base.TsdemuxDefaultFpsDen
	if sps.TimingInfoPresentFlag == 1 && sps.NumUnitsInTick != 0 && sps.TimeScale != 0 {
		ctx.FpsFixed = sps.FixedFrameRateFlag == 1
		ctx.FpsNum = sps.TimeScale
		ctx.FpsDen = sps.NumUnitsInTick * 2
	}
	ctx.Fps = float64(ctx.FpsNum) / float64(ctx.FpsDen)
}
