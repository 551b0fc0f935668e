// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts_test

import (
	"bytes"
	"testing"

	"github.com/q191201771/hlsts/pkg/mpegts"
	"github.com/q191201771/naza/pkg/assert"
)

// 每个unit为3个ts包: PAT, PMT, 一个视频包
func makeCutterUnits(n int) (units [][]byte, stream []byte) {
	frame := mpegts.Frame{Pid: mpegts.PidVideo, Sid: mpegts.StreamIdVideo, Raw: makeRaw([]byte{0, 0, 0, 1, 0x41}, 100)}
	for i := 0; i < n; i++ {
		frame.Pts = uint64(i) * 3600
		frame.Dts = frame.Pts
		unit := mpegts.PackProgramTables([]mpegts.PsiPmtElement{videoElement})
		unit = append(unit, frame.Pack()...)
		units = append(units, unit)
		stream = append(stream, unit...)
	}
	return
}

func TestFragmentCutterByPat(t *testing.T) {
	units, stream := makeCutterUnits(4)
	assert.Equal(t, 3*mpegts.TsPacketSize, len(units[0]))

	c := mpegts.NewFragmentCutter(3, 0)
	frags := c.Feed(stream)
	assert.Equal(t, 3, len(frags))
	for i := range frags {
		assert.Equal(t, units[i], frags[i])
	}
	assert.Equal(t, units[3], c.Flush())
	assert.Equal(t, 0, len(c.Flush()))

	// 达到最小包数之后才在PAT处切割
	c = mpegts.NewFragmentCutter(6, 0)
	frags = c.Feed(stream)
	assert.Equal(t, 1, len(frags))
	assert.Equal(t, append(append([]byte{}, units[0]...), units[1]...), frags[0])
	assert.Equal(t, 6*mpegts.TsPacketSize, len(c.Flush()))
}

func TestFragmentCutterForce(t *testing.T) {
	_, stream := makeCutterUnits(4)

	c := mpegts.NewFragmentCutter(5, 5)
	frags := c.Feed(stream)
	assert.Equal(t, 2, len(frags))
	assert.Equal(t, 5*mpegts.TsPacketSize, len(frags[0]))
	assert.Equal(t, stream[:5*mpegts.TsPacketSize], frags[0])
	assert.Equal(t, stream[5*mpegts.TsPacketSize:10*mpegts.TsPacketSize], frags[1])
	assert.Equal(t, stream[10*mpegts.TsPacketSize:], c.Flush())
}

func TestFragmentCutterMaxBelowMin(t *testing.T) {
	_, stream := makeCutterUnits(4)

	// max小于min时取min*4，12个包既不满足min也达不到max
	c := mpegts.NewFragmentCutter(100, 5)
	assert.Equal(t, 0, len(c.Feed(stream)))
	assert.Equal(t, stream, c.Flush())

	// min小于等于0时取1，每个PAT之前都切
	c = mpegts.NewFragmentCutter(0, 0)
	frags := c.Feed(stream)
	assert.Equal(t, 3, len(frags))
	assert.Equal(t, 3*mpegts.TsPacketSize, len(frags[0]))
	assert.Equal(t, 3*mpegts.TsPacketSize, len(c.Flush()))
}

func TestFragmentCutterUnaligned(t *testing.T) {
	units, stream := makeCutterUnits(4)

	c := mpegts.NewFragmentCutter(3, 0)
	var frags [][]byte
	for i := 0; i < len(stream); i += 100 {
		end := i + 100
		if end > len(stream) {
			end = len(stream)
		}
		frags = append(frags, c.Feed(stream[i:end])...)
	}
	frags = append(frags, c.Flush())
	assert.Equal(t, 4, len(frags))
	for i := range frags {
		assert.Equal(t, units[i], frags[i])
	}

	// 流开头的垃圾数据原样留在第一个分片中
	garbage := []byte{0x01, 0x02, 0x03}
	c = mpegts.NewFragmentCutter(3, 0)
	frags = c.Feed(append(append([]byte{}, garbage...), stream...))
	assert.Equal(t, 3, len(frags))
	assert.Equal(t, true, bytes.HasPrefix(frags[0], garbage))
	assert.Equal(t, units[0], frags[0][len(garbage):])
	assert.Equal(t, units[1], frags[1])
}
