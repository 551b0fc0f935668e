// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"encoding/hex"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/tsdemux"
	"github.com/q191201771/naza/pkg/nazabytes"
)

// LogObserver 把demuxer的回调打印到日志中，命令行工具默认使用
//
// 元数据、SEI、分片完成使用Info级别，sample使用Debug级别
type LogObserver struct {
	videoSampleNum int
	audioSampleNum int
}

var _ tsdemux.IDemuxerObserver = &LogObserver{}

func NewLogObserver() *LogObserver {
	return &LogObserver{}
}

func (o *LogObserver) OnMetadata(kind base.MediaKind, track *base.Track) {
	switch kind {
	case base.MediaKindVideo:
		m := track.VideoMeta()
		Log.Infof("video meta. codec=%s, size=%dx%d, fps=%d/%d, profile=%s, level=%s, record=%s",
			m.Codec, m.CodecWidth, m.CodecHeight, m.FrameRate.Num, m.FrameRate.Den, m.Profile, m.Level,
			hex.EncodeToString(nazabytes.Prefix(m.DecoderConfigurationRecord, 32)))
	case base.MediaKindAudio:
		m := track.AudioMeta()
		Log.Infof("audio meta. codec=%s, origin=%s, sample rate=%d, channel=%d, config=%s",
			m.Codec, m.OriginCodec, m.SampleRate, m.ChannelCount, hex.EncodeToString(m.Config))
	}
}

func (o *LogObserver) OnVideoSample(sample *base.VideoSample) {
	o.videoSampleNum++
	Log.Debugf("video sample. dts=%d, pts=%d, key=%t, gop=%d, size=%d, nalus=%d",
		sample.Dts, sample.Pts, sample.IsKeyframe, sample.GopId, len(sample.Data), len(sample.Nalus))
}

func (o *LogObserver) OnAudioSample(sample *base.AudioSample) {
	o.audioSampleNum++
	Log.Debugf("audio sample. dts=%d, size=%d", sample.Dts, len(sample.Data))
}

func (o *LogObserver) OnSei(sei *base.Sei) {
	Log.Infof("sei. dts=%d, codec=%s, type=%d, size=%d, uuid=%s",
		sei.Dts, sei.Codec, sei.PayloadType, sei.PayloadSize, hex.EncodeToString(sei.Uuid))
}

func (o *LogObserver) OnDemuxComplete(frag *base.FragInfo) {
	if frag == nil {
		frag = &base.FragInfo{}
	}
	Log.Infof("demux complete. frag=%d, url=%s, video samples=%d, audio samples=%d",
		frag.Id, frag.Url, o.videoSampleNum, o.audioSampleNum)
}
