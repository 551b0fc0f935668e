// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

// FragmentCutter 把连续的ts流（比如srt直播流、没有切片的整个ts文件）切成一个个分片，交给demuxer按分片处理
//
// 切割规则:
// 1. 分片中的ts包数量达到 minPacketNum 后，遇到下一个PAT（PID 0 且 payload_unit_start_indicator 为1）时，在PAT之前切割
// 2. 分片中的ts包数量达到 maxPacketNum 时，强制切割
//
// 输入可以是任意长度，不要求按188字节对齐，不足一个ts包的尾部缓存到下次输入
type FragmentCutter struct {
	minPacketNum int
	maxPacketNum int

	pending   []byte // 不足一个ts包的尾部
	buf       []byte // 当前分片
	packetNum int
}

// NewFragmentCutter
//
// @param minPacketNum: 小于等于0时取1
// @param maxPacketNum: 小于minPacketNum时取 minPacketNum*4
//
func NewFragmentCutter(minPacketNum int, maxPacketNum int) *FragmentCutter {
	if minPacketNum <= 0 {
		minPacketNum = 1
	}
	if maxPacketNum < minPacketNum {
		maxPacketNum = minPacketNum * 4
	}
	return &FragmentCutter{
		minPacketNum: minPacketNum,
		maxPacketNum: maxPacketNum,
	}
}

// Feed
//
// @return: 本次输入后切割完成的分片，每个分片内存块为独立申请
//
func (c *FragmentCutter) Feed(b []byte) (frags [][]byte) {
	c.pending = append(c.pending, b...)

	pos := 0
	for len(c.pending)-pos >= TsPacketSize {
		// 没有对齐时，把同步字节之前的数据原样放入当前分片，由demuxer去resync
		if c.pending[pos] != syncByte {
			next := pos + 1
			for next < len(c.pending) && c.pending[next] != syncByte {
				next++
			}
			c.buf = append(c.buf, c.pending[pos:next]...)
			pos = next
			continue
		}

		packet := c.pending[pos : pos+TsPacketSize]
		pos += TsPacketSize

		h := ParseTsPacketHeader(packet)
		if h.Pid == PidPat && h.PayloadUnitStart == 1 && c.packetNum >= c.minPacketNum {
			frags = append(frags, c.cut())
		}

		c.buf = append(c.buf, packet...)
		c.packetNum++

		if c.packetNum >= c.maxPacketNum {
			frags = append(frags, c.cut())
		}
	}

	c.pending = append(c.pending[:0], c.pending[pos:]...)
	return
}

// Flush 取出剩余数据作为最后一个分片，没有数据时返回nil
func (c *FragmentCutter) Flush() []byte {
	c.buf = append(c.buf, c.pending...)
	c.pending = c.pending[:0]
	if len(c.buf) == 0 {
		return nil
	}
	return c.cut()
}

func (c *FragmentCutter) cut() []byte {
	frag := c.buf
	c.buf = nil
	c.packetNum = 0
	return frag
}
