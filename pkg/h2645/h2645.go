// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package h2645

import (
	"github.com/q191201771/naza/pkg/bele"
)

// 无特殊说明的函数则同时支持h264和h265两种格式

var (
	NaluStartCode3 = []byte{0x0, 0x0, 0x1}
	NaluStartCode4 = []byte{0x0, 0x0, 0x0, 0x1}
)

const (
	H264NaluTypeSlice    uint8 = 1
	H264NaluTypeIdrSlice uint8 = 5
	H264NaluTypeSei      uint8 = 6
	H264NaluTypeSps      uint8 = 7
	H264NaluTypePps      uint8 = 8
	H264NaluTypeAud      uint8 = 9  // Access Unit Delimiter
	H264NaluTypeFd       uint8 = 12 // Filler Data
)

// ISO_IEC_23008-2_2013.pdf
// Table 7-1 – NAL unit type codes and NAL unit type classes
const (
	H265NaluTypeSliceTrailN uint8 = 0 // 0x0
	H265NaluTypeSliceTrailR uint8 = 1 // 0x01

	H265NaluTypeSliceBlaWlp   uint8 = 16 // 0x10
	H265NaluTypeSliceBlaWradl uint8 = 17 // 0x11
	H265NaluTypeSliceBlaNlp   uint8 = 18 // 0x12
	H265NaluTypeSliceIdr      uint8 = 19 // 0x13
	H265NaluTypeSliceIdrNlp   uint8 = 20 // 0x14
	H265NaluTypeSliceCranut   uint8 = 21 // 0x15

	H265NaluTypeVps       uint8 = 32 // 0x20
	H265NaluTypeSps       uint8 = 33 // 0x21
	H265NaluTypePps       uint8 = 34 // 0x22
	H265NaluTypeAud       uint8 = 35 // 0x23
	H265NaluTypeSei       uint8 = 39 // 0x27
	H265NaluTypeSeiSuffix uint8 = 40 // 0x28
)

func ParseNaluType(isH264 bool, v uint8) uint8 {
	if isH264 {
		return v & 0x1f
	}
	return (v & 0x7E) >> 1
}

// IterateNaluAnnexb 遍历Annexb格式的nalu流，同时支持3字节和4字节的起始码
//
// 第一个起始码之前的数据被丢弃，handler收到的nal不包含起始码
func IterateNaluAnnexb(b []byte, handler func(nal []byte)) {
	n := len(b)
	start := -1 // 当前nal的起始位置
	i := 0
	for i+2 < n {
		if b[i] != 0 || b[i+1] != 0 {
			i++
			continue
		}

		var scLen int
		if b[i+2] == 1 {
			scLen = 3
		} else if i+3 < n && b[i+2] == 0 && b[i+3] == 1 {
			scLen = 4
		} else {
			i++
			continue
		}

		if start >= 0 && i > start {
			handler(b[start:i])
		} else if start < 0 && i > 0 {
			Log.Debugf("drop data before first start code. len=%d", i)
		}
		i += scLen
		start = i
	}
	if start >= 0 && start < n {
		handler(b[start:])
	}
}

// SplitNaluAnnexb
//
// @return: 元素引用b的内存，不做拷贝
func SplitNaluAnnexb(b []byte) [][]byte {
	var ret [][]byte
	IterateNaluAnnexb(b, func(nal []byte) {
		ret = append(ret, nal)
	})
	return ret
}

// JoinNaluAvcc 每个nalu前加上4字节大端长度
func JoinNaluAvcc(naluList ...[]byte) []byte {
	n := len(naluList)
	if n == 0 {
		return nil
	}
	n *= 4
	for _, item := range naluList {
		n += len(item)
	}
	ret := make([]byte, n)

	pos := 0
	for _, item := range naluList {
		bele.BePutUint32(ret[pos:], uint32(len(item)))
		pos += 4
		copy(ret[pos:], item)
		pos += len(item)
	}

	return ret
}

// JoinNaluAnnexb 每个nalu前加上4字节起始码
func JoinNaluAnnexb(naluList ...[]byte) []byte {
	var ret []byte
	for _, item := range naluList {
		ret = append(ret, NaluStartCode4...)
		ret = append(ret, item...)
	}
	return ret
}

// IterateNaluAvcc 遍历Avcc格式的nalu流
func IterateNaluAvcc(nals []byte, handler func(nal []byte)) error {
	pos := 0
	for pos < len(nals) {
		if len(nals)-pos < 4 {
			return NewErrAvccLength(4, len(nals)-pos)
		}
		length := int(bele.BeUint32(nals[pos:]))
		pos += 4
		if len(nals)-pos < length {
			return NewErrAvccLength(length, len(nals)-pos)
		}
		handler(nals[pos : pos+length])
		pos += length
	}
	return nil
}
