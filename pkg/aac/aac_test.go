// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package aac_test

import (
	"errors"
	"testing"

	"github.com/q191201771/hlsts/pkg/aac"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
)

var stereo44100 = aac.AscContext{
	AudioObjectType:        aac.AudioObjectTypeAacLc,
	SamplingFrequencyIndex: aac.AscSamplingFrequencyIndex44100,
	ChannelConfiguration:   2,
}

func makeAdtsFrame(ascCtx aac.AscContext, rawSize int) []byte {
	out := ascCtx.PackAdtsHeader(rawSize)
	for i := 0; i < rawSize; i++ {
		out = append(out, uint8(i))
	}
	return out
}

func TestAscContext(t *testing.T) {
	asc := stereo44100.Pack()
	assert.Equal(t, []byte{0x12, 0x10}, asc)

	ctx, err := aac.NewAscContext(asc)
	assert.Equal(t, nil, err)
	assert.Equal(t, stereo44100, *ctx)
	sf, err := aac.SamplingFrequency(ctx.SamplingFrequencyIndex)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(44100), sf)

	_, err = aac.NewAscContext([]byte{0x12})
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))
}

func TestAdtsHeaderContext(t *testing.T) {
	h := stereo44100.PackAdtsHeader(100)
	assert.Equal(t, true, aac.IsAdtsHeader(h))

	ctx, err := aac.NewAdtsHeaderContext(h)
	assert.Equal(t, nil, err)
	assert.Equal(t, stereo44100, ctx.AscCtx)
	assert.Equal(t, uint8(0), ctx.Id)
	assert.Equal(t, uint8(0), ctx.Layer)
	assert.Equal(t, uint8(1), ctx.ProtectionAbsent)
	assert.Equal(t, uint16(107), ctx.AdtsLength)
	assert.Equal(t, aac.AdtsHeaderLength, ctx.HeaderLength())
	assert.Equal(t, uint32(44100), ctx.SamplingFrequency())

	assert.Equal(t, []byte{0x12, 0x10}, ctx.AscCtx.Pack())

	// sync word错误
	_, err = aac.NewAdtsHeaderContext([]byte{0xFF, 0x01, 0, 0, 0, 0, 0})
	assert.Equal(t, true, errors.Is(err, base.ErrAdtsSync))

	// 采样率索引越界
	bad := aac.AscContext{AudioObjectType: 2, SamplingFrequencyIndex: 13, ChannelConfiguration: 2}
	_, err = aac.NewAdtsHeaderContext(bad.PackAdtsHeader(10))
	assert.Equal(t, true, errors.Is(err, base.ErrSamplingFrequencyIndex))

	_, err = aac.NewAdtsHeaderContext(h[:6])
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))
}

func TestAdtsFrameIterator(t *testing.T) {
	sizes := []int{10, 20, 5}
	var b []byte
	total := 0
	for _, s := range sizes {
		f := makeAdtsFrame(stereo44100, s)
		total += len(f)
		b = append(b, f...)
	}

	it := aac.NewAdtsFrameIterator(b, 90000)
	var frames []aac.AdtsFrame
	for {
		f, ok := it.Next()
		if !ok {
			break
		}
		frames = append(frames, f)
	}
	assert.Equal(t, len(sizes), len(frames))
	assert.Equal(t, total, it.Pos())
	assert.Equal(t, 0, it.SkippedBytes())
	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, sizes[i], len(f.Payload))
		assert.Equal(t, sizes[i]+aac.AdtsHeaderLength, len(f.Raw))
	}
	assert.Equal(t, 0, frames[0].Pos)
	assert.Equal(t, 17, frames[1].Pos)
	assert.Equal(t, int64(1000), frames[0].PtsMs())
	assert.Equal(t, int64(1024), frames[1].PtsMs())
	assert.Equal(t, int64(1047), frames[2].PtsMs())
}

func TestAdtsFrameIteratorTruncated(t *testing.T) {
	b := []byte{0x00, 0x01, 0x02}
	b = append(b, makeAdtsFrame(stereo44100, 10)...)
	b = append(b, makeAdtsFrame(stereo44100, 10)...)
	// 最后一帧声明30字节，实际只有10字节
	b = append(b, makeAdtsFrame(stereo44100, 30)[:10]...)

	it := aac.NewAdtsFrameIterator(b, 0)
	n := 0
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		n++
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, it.SkippedBytes())
	assert.Equal(t, 3+17*2, it.Pos())

	// 不足5字节
	it = aac.NewAdtsFrameIterator([]byte{0xFF, 0xF1, 0x50, 0x80}, 0)
	_, ok := it.Next()
	assert.Equal(t, false, ok)
}

func TestMakeNormalizedConfig(t *testing.T) {
	golden := []struct {
		profile    aac.DecoderProfile
		index      uint8
		channel    uint8
		objectType uint8
		config     []byte
	}{
		{aac.DecoderProfileSbr, 4, 2, 5, []byte{0x2A, 0x12, 0x08, 0x00}},
		{aac.DecoderProfileSbr, 4, 1, 2, []byte{0x12, 0x08}},
		{aac.DecoderProfileSbr, 6, 1, 5, []byte{0x2B, 0x09, 0x88, 0x00}},
		{aac.DecoderProfileSbrHighRateOnly, 4, 2, 2, []byte{0x12, 0x10}},
		{aac.DecoderProfileSbrHighRateOnly, 6, 1, 5, []byte{0x2B, 0x09, 0x88, 0x00}},
		{aac.DecoderProfileLc, 6, 2, 2, []byte{0x13, 0x10}},
	}
	for _, item := range golden {
		ot, config := aac.MakeNormalizedConfig(item.profile, item.index, item.channel)
		assert.Equal(t, item.objectType, ot)
		assert.Equal(t, item.config, config)
	}
}

func TestParseDecoderProfile(t *testing.T) {
	p, err := aac.ParseDecoderProfile("")
	assert.Equal(t, nil, err)
	assert.Equal(t, aac.DecoderProfileSbr, p)
	p, err = aac.ParseDecoderProfile("LC")
	assert.Equal(t, nil, err)
	assert.Equal(t, aac.DecoderProfileLc, p)
	assert.Equal(t, "lc", p.ReadableString())
	p, err = aac.ParseDecoderProfile("sbr_high_rate_only")
	assert.Equal(t, nil, err)
	assert.Equal(t, aac.DecoderProfileSbrHighRateOnly, p)
	_, err = aac.ParseDecoderProfile("opus")
	assert.Equal(t, true, errors.Is(err, base.ErrUnknownProfile))
}
