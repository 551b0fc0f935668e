// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import "github.com/q191201771/naza/pkg/bele"

// CRC-32/MPEG-2
// poly 0x04C11DB7, 不反转输入输出，初始值0xFFFFFFFF，结果不取反
//
// 注意，和hash/crc32的IEEE多项式相同，但hash/crc32是反转比特序的实现，不能直接用于psi
var crc32Table [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		crc32Table[i] = crc
	}
}

// CalcCrc32
//
// @param crc: 初始值，整段计算时传入0xFFFFFFFF
func CalcCrc32(crc uint32, buffer []byte) uint32 {
	for _, b := range buffer {
		crc = (crc << 8) ^ crc32Table[byte(crc>>24)^b]
	}
	return crc
}

// VerifySectionCrc32
//
// @param section: 从table_id开始，包含末尾4字节的CRC_32
//
// @return expected: section中携带的值
// @return actual:   计算出来的值
func VerifySectionCrc32(section []byte) (ok bool, expected uint32, actual uint32) {
	if len(section) < 4 {
		return false, 0, 0
	}
	n := len(section) - 4
	expected = bele.BeUint32(section[n:])
	actual = CalcCrc32(0xFFFFFFFF, section[:n])
	return expected == actual, expected, actual
}
