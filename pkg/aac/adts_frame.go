// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package aac

import "math"

// minAdtsRemain 剩余字节数不超过该值时停止查找
const minAdtsRemain = 5

// AdtsFrame 从es流中切分出来的一个adts帧
type AdtsFrame struct {
	Header AdtsHeaderContext
	Index  int // 在本次切分中的序号，从0开始
	Pos    int // 帧在输入内存块中的起始位置

	Raw     []byte // adts header + raw aac frame
	Payload []byte // raw aac frame，不包含adts header和crc

	Pts float64 // 单位 1/90000 秒，由pes的pts加上序号对应的时长得到，可能不是整数
}

// PtsMs 向上取整后的毫秒值
func (f *AdtsFrame) PtsMs() int64 {
	return int64(math.Ceil(f.Pts / 90))
}

// AdtsFrameIterator 将一段包含多个adts帧的es数据切分成帧
//
// 不是adts sync的字节会被逐个跳过。剩余不足 minAdtsRemain 字节，或者最后一个帧不完整时，停止迭代，不完整的帧不会被返回
//
// 返回的内存块都是对输入内存块的引用
type AdtsFrameIterator struct {
	b       []byte
	pos     int
	index   int
	pts     uint64
	done    bool
	skipped int
}

// NewAdtsFrameIterator
//
// @param pts: 第一帧的pts，通常为pes的pts
func NewAdtsFrameIterator(b []byte, pts uint64) *AdtsFrameIterator {
	return &AdtsFrameIterator{
		b:   b,
		pts: pts,
	}
}

func (it *AdtsFrameIterator) Next() (frame AdtsFrame, ok bool) {
	for !it.done && it.pos+minAdtsRemain < len(it.b) {
		if !IsAdtsHeader(it.b[it.pos:]) {
			it.pos++
			it.skipped++
			continue
		}

		if err := frame.Header.Unpack(it.b[it.pos:]); err != nil {
			Log.Debugf("unpack adts header failed, stop. pos=%d, err=%+v", it.pos, err)
			it.done = true
			break
		}
		frameLength := int(frame.Header.AdtsLength)
		headerLength := frame.Header.HeaderLength()
		if frameLength <= headerLength || it.pos+frameLength > len(it.b) {
			Log.Debugf("adts frame incomplete, stop. pos=%d, frame length=%d, len=%d", it.pos, frameLength, len(it.b))
			it.done = true
			break
		}

		sampleRate := frame.Header.SamplingFrequency()
		frame.Index = it.index
		frame.Pos = it.pos
		frame.Raw = it.b[it.pos : it.pos+frameLength]
		frame.Payload = frame.Raw[headerLength:]
		frame.Pts = float64(it.pts) + float64(it.index)*SamplesPerFrame*90000/float64(sampleRate)

		it.pos += frameLength
		it.index++
		return frame, true
	}
	return AdtsFrame{}, false
}

// Pos 当前游标位置，即已经消费的字节数
func (it *AdtsFrameIterator) Pos() int {
	return it.pos
}

// SkippedBytes 查找sync word时跳过的字节数
func (it *AdtsFrameIterator) SkippedBytes() int {
	return it.skipped
}
