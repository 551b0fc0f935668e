// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"fmt"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/h2645"
)

var NaluTypeMapping = map[uint8]string{
	NaluTypeSliceTrailN:   "TRAIL_N",
	NaluTypeSliceTrailR:   "TRAIL_R",
	NaluTypeSliceBlaWlp:   "BLA",
	NaluTypeSliceBlaWradl: "BLA",
	NaluTypeSliceBlaNlp:   "BLA",
	NaluTypeSliceIdr:      "IDR",
	NaluTypeSliceIdrNlp:   "IDR",
	NaluTypeSliceCranut:   "CRA",
	NaluTypeVps:           "VPS",
	NaluTypeSps:           "SPS",
	NaluTypePps:           "PPS",
	NaluTypeAud:           "AUD",
	NaluTypeSei:           "SEI",
	NaluTypeSeiSuffix:     "SEI",
}

const (
	NaluTypeSliceTrailN   uint8 = 0  // 0x0
	NaluTypeSliceTrailR   uint8 = 1  // 0x01
	NaluTypeSliceBlaWlp   uint8 = 16 // 0x10
	NaluTypeSliceBlaWradl uint8 = 17 // 0x11
	NaluTypeSliceBlaNlp   uint8 = 18 // 0x12
	NaluTypeSliceIdr      uint8 = 19 // 0x13
	NaluTypeSliceIdrNlp   uint8 = 20 // 0x14
	NaluTypeSliceCranut   uint8 = 21 // 0x15
	NaluTypeVps           uint8 = 32 // 0x20
	NaluTypeSps           uint8 = 33 // 0x21
	NaluTypePps           uint8 = 34 // 0x22
	NaluTypeAud           uint8 = 35 // 0x23
	NaluTypeSei           uint8 = 39 // 0x27
	NaluTypeSeiSuffix     uint8 = 40 // 0x28
)

func CalcNaluTypeReadable(nalu []byte) string {
	b, ok := NaluTypeMapping[CalcNaluType(nalu)]
	if !ok {
		return "unknown"
	}
	return b
}

func CalcNaluType(nalu []byte) uint8 {
	// 6 bit in middle
	// 0*** ***0
	// or return (nalu[0] >> 1) & 0x3F
	return (nalu[0] & 0x7E) >> 1
}

// IsIrap BLA、IDR、CRA
func IsIrap(t uint8) bool {
	return t >= NaluTypeSliceBlaWlp && t <= NaluTypeSliceCranut
}

// IsSampleNalu 是否需要放入sample中
//
// vps/sps/pps保留在sample中，AUD、SEI以及类型大于40的nalu不放入sample
func IsSampleNalu(t uint8) bool {
	return t < NaluTypeSei && t != NaluTypeAud
}

func IsParameterSet(t uint8) bool {
	return t == NaluTypeVps || t == NaluTypeSps || t == NaluTypePps
}

// ParseSei
//
// @param nal: 包含2字节nal header
func ParseSei(nal []byte) ([]h2645.SeiMessage, error) {
	if len(nal) < 3 {
		return nil, base.NewErrShortBuffer(3, len(nal), "hevc sei")
	}
	return h2645.ParseSeiMessages(h2645.EbspToRbsp(nal[2:]))
}

// ProfileString general_profile_idc 对应的名称
func ProfileString(profileIdc uint8) string {
	switch profileIdc {
	case 1:
		return "Main"
	case 2:
		return "Main10"
	case 3:
		return "MainStillPicture"
	case 4:
		return "RExt"
	}
	return "Unknown"
}

// LevelString general_level_idc 为 30 * level，e.g. 93 -> 3.1
func LevelString(levelIdc uint8) string {
	return fmt.Sprintf("%.1f", float64(levelIdc)/30)
}
