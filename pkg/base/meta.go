// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

// MetaTimescale 元数据中时长字段（RefSampleDuration等）的单位，毫秒
const MetaTimescale = 1000

type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

type FrameRate struct {
	Fixed bool
	Fps   float64
	Num   uint32
	Den   uint32
}

type SarRatio struct {
	Width  uint32
	Height uint32
}

// VideoMeta 视频轨道的编码信息快照
//
// 注意，RefSampleDuration 和 Duration 由帧率推导而来，比较元数据是否变化时忽略这两个字段
type VideoMeta struct {
	Id         int
	Codec      string // e.g. avc1.64001f, hev1.1.6.L93.B0
	StreamType uint8  // mpegts stream_type, 0x1b or 0x24

	CodecWidth    uint32
	CodecHeight   uint32
	PresentWidth  uint32
	PresentHeight uint32

	Profile        string
	Level          string
	ChromaFormat   uint32
	BitDepthLuma   uint32
	BitDepthChroma uint32
	FrameRate      FrameRate
	SarRatio       SarRatio

	// hevc only
	GeneralProfileSpace uint8
	GeneralTierFlag     uint8
	GeneralProfileIdc   uint8
	GeneralLevelIdc     uint8

	Vps []byte
	Sps []byte
	Pps []byte

	// DecoderConfigurationRecord avcC或者hvcC
	DecoderConfigurationRecord []byte

	RefSampleDuration uint32
	Duration          uint32
}

// AudioMeta 音频轨道的编码信息快照
type AudioMeta struct {
	Id               int
	Codec            string // e.g. mp4a.40.5
	OriginCodec      string // ADTS头中的原始object type, e.g. mp4a.40.2
	ObjectType       uint8
	OriginObjectType uint8
	SampleRate       uint32
	SampleRateIndex  uint8
	ChannelCount     uint8

	// Config AudioSpecificConfig，2或4字节，由 aac.DecoderProfile 决定
	Config []byte

	RefSampleDuration uint32
	Duration          uint32
}

// Track 外部持有的轨道对象，demuxer只读写其中的Meta字段
type Track struct {
	Kind MediaKind
	Meta interface{} // *VideoMeta or *AudioMeta
}

func NewVideoTrack() *Track {
	return &Track{Kind: MediaKindVideo}
}

func NewAudioTrack() *Track {
	return &Track{Kind: MediaKindAudio}
}

func (t *Track) VideoMeta() *VideoMeta {
	if t == nil {
		return nil
	}
	m, _ := t.Meta.(*VideoMeta)
	return m
}

func (t *Track) AudioMeta() *AudioMeta {
	if t == nil {
		return nil
	}
	m, _ := t.Meta.(*AudioMeta)
	return m
}

func (m *VideoMeta) Clone() *VideoMeta {
	if m == nil {
		return nil
	}
	c := *m
	c.Vps = cloneBytes(m.Vps)
	c.Sps = cloneBytes(m.Sps)
	c.Pps = cloneBytes(m.Pps)
	c.DecoderConfigurationRecord = cloneBytes(m.DecoderConfigurationRecord)
	return &c
}

func (m *AudioMeta) Clone() *AudioMeta {
	if m == nil {
		return nil
	}
	c := *m
	c.Config = cloneBytes(m.Config)
	return &c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
