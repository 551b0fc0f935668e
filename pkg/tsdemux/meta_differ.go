// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tsdemux

import (
	"bytes"

	"github.com/q191201771/hlsts/pkg/base"
)

// 元数据比较时按固定的字段列表逐个比较。
// RefSampleDuration、Duration由帧率、分片时长推导而来，不参与比较

type videoMetaField struct {
	name  string
	equal func(a, b *base.VideoMeta) bool
}

type audioMetaField struct {
	name  string
	equal func(a, b *base.AudioMeta) bool
}

var videoMetaFields = []videoMetaField{
	{"Id", func(a, b *base.VideoMeta) bool { return a.Id == b.Id }},
	{"Codec", func(a, b *base.VideoMeta) bool { return a.Codec == b.Codec }},
	{"StreamType", func(a, b *base.VideoMeta) bool { return a.StreamType == b.StreamType }},
	{"CodecWidth", func(a, b *base.VideoMeta) bool { return a.CodecWidth == b.CodecWidth }},
	{"CodecHeight", func(a, b *base.VideoMeta) bool { return a.CodecHeight == b.CodecHeight }},
	{"PresentWidth", func(a, b *base.VideoMeta) bool { return a.PresentWidth == b.PresentWidth }},
	{"PresentHeight", func(a, b *base.VideoMeta) bool { return a.PresentHeight == b.PresentHeight }},
	{"Profile", func(a, b *base.VideoMeta) bool { return a.Profile == b.Profile }},
	{"Level", func(a, b *base.VideoMeta) bool { return a.Level == b.Level }},
	{"ChromaFormat", func(a, b *base.VideoMeta) bool { return a.ChromaFormat == b.ChromaFormat }},
	{"BitDepthLuma", func(a, b *base.VideoMeta) bool { return a.BitDepthLuma == b.BitDepthLuma }},
	{"BitDepthChroma", func(a, b *base.VideoMeta) bool { return a.BitDepthChroma == b.BitDepthChroma }},
	{"FrameRate", func(a, b *base.VideoMeta) bool { return equalFrameRate(a.FrameRate, b.FrameRate) }},
	{"SarRatio", func(a, b *base.VideoMeta) bool { return equalSarRatio(a.SarRatio, b.SarRatio) }},
	{"GeneralProfileSpace", func(a, b *base.VideoMeta) bool { return a.GeneralProfileSpace == b.GeneralProfileSpace }},
	{"GeneralTierFlag", func(a, b *base.VideoMeta) bool { return a.GeneralTierFlag == b.GeneralTierFlag }},
	{"GeneralProfileIdc", func(a, b *base.VideoMeta) bool { return a.GeneralProfileIdc == b.GeneralProfileIdc }},
	{"GeneralLevelIdc", func(a, b *base.VideoMeta) bool { return a.GeneralLevelIdc == b.GeneralLevelIdc }},
	{"Vps", func(a, b *base.VideoMeta) bool { return bytes.Equal(a.Vps, b.Vps) }},
	{"Sps", func(a, b *base.VideoMeta) bool { return bytes.Equal(a.Sps, b.Sps) }},
	{"Pps", func(a, b *base.VideoMeta) bool { return bytes.Equal(a.Pps, b.Pps) }},
	{"DecoderConfigurationRecord", func(a, b *base.VideoMeta) bool {
		return bytes.Equal(a.DecoderConfigurationRecord, b.DecoderConfigurationRecord)
	}},
}

var audioMetaFields = []audioMetaField{
	{"Id", func(a, b *base.AudioMeta) bool { return a.Id == b.Id }},
	{"Codec", func(a, b *base.AudioMeta) bool { return a.Codec == b.Codec }},
	{"OriginCodec", func(a, b *base.AudioMeta) bool { return a.OriginCodec == b.OriginCodec }},
	{"ObjectType", func(a, b *base.AudioMeta) bool { return a.ObjectType == b.ObjectType }},
	{"OriginObjectType", func(a, b *base.AudioMeta) bool { return a.OriginObjectType == b.OriginObjectType }},
	{"SampleRate", func(a, b *base.AudioMeta) bool { return a.SampleRate == b.SampleRate }},
	{"SampleRateIndex", func(a, b *base.AudioMeta) bool { return a.SampleRateIndex == b.SampleRateIndex }},
	{"ChannelCount", func(a, b *base.AudioMeta) bool { return a.ChannelCount == b.ChannelCount }},
	{"Config", func(a, b *base.AudioMeta) bool { return bytes.Equal(a.Config, b.Config) }},
}

// DiffVideoMeta
//
// @return: 不相等的字段名，按固定顺序。一方为nil另一方不为nil时返回 "*"
//
func DiffVideoMeta(a, b *base.VideoMeta) []string {
	if a == nil || b == nil {
		if a == b {
			return nil
		}
		return []string{"*"}
	}
	var ret []string
	for _, f := range videoMetaFields {
		if !f.equal(a, b) {
			ret = append(ret, f.name)
		}
	}
	return ret
}

func DiffAudioMeta(a, b *base.AudioMeta) []string {
	if a == nil || b == nil {
		if a == b {
			return nil
		}
		return []string{"*"}
	}
	var ret []string
	for _, f := range audioMetaFields {
		if !f.equal(a, b) {
			ret = append(ret, f.name)
		}
	}
	return ret
}

func EqualVideoMeta(a, b *base.VideoMeta) bool {
	return len(DiffVideoMeta(a, b)) == 0
}

func EqualAudioMeta(a, b *base.AudioMeta) bool {
	return len(DiffAudioMeta(a, b)) == 0
}

func equalFrameRate(a, b base.FrameRate) bool {
	return a.Fixed == b.Fixed && a.Fps == b.Fps && a.Num == b.Num && a.Den == b.Den
}

func equalSarRatio(a, b base.SarRatio) bool {
	return a.Width == b.Width && a.Height == b.Height
}
