// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tsdemux

import (
	"fmt"

	"github.com/q191201771/hlsts/pkg/aac"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/mpegts"
)

func (d *Demuxer) demuxAudio(pes *mpegts.Pes, frag *base.FragInfo, options *base.SampleOptions) {
	buf := mpegts.MergeAudio(pes)
	offset := mpegts.AudioEsOffset(pes)
	if offset > len(buf) {
		Log.Warnf("[%s] audio pes too short. pid=%d, len=%d, offset=%d", d.uniqueKey, pes.Pid, len(buf), offset)
		return
	}

	it := aac.NewAdtsFrameIterator(buf[offset:], pes.Pts)
	for {
		frame, ok := it.Next()
		if !ok {
			break
		}

		// 每个PES用第一帧的adts头生成元数据
		if frame.Index == 0 {
			meta := d.makeAudioMeta(&frame.Header)
			meta.Duration = fragDurationMs(frag)
			d.updateAudioMeta(meta, options)
		}

		ms := frame.PtsMs()
		sample := &base.AudioSample{
			Dts:     ms,
			Pts:     ms,
			Data:    frame.Payload,
			Options: *options,
		}
		*options = base.SampleOptions{}

		d.stat.AudioSampleCount++
		d.observer.OnAudioSample(sample)
	}

	if it.SkippedBytes() > 0 {
		Log.Debugf("[%s] skip non adts bytes. pid=%d, skipped=%d", d.uniqueKey, pes.Pid, it.SkippedBytes())
	}
}

func (d *Demuxer) makeAudioMeta(h *aac.AdtsHeaderContext) *base.AudioMeta {
	sfi := h.AscCtx.SamplingFrequencyIndex
	channel := h.AscCtx.ChannelConfiguration
	objectType, config := aac.MakeNormalizedConfig(d.option.DecoderProfile, sfi, channel)

	sampleRate := h.SamplingFrequency()
	var rsd uint32
	if sampleRate != 0 {
		rsd = aac.SamplesPerFrame * base.MetaTimescale / sampleRate
	}

	return &base.AudioMeta{
		Id:                AudioTrackId,
		Codec:             fmt.Sprintf("mp4a.40.%d", objectType),
		OriginCodec:       fmt.Sprintf("mp4a.40.%d", h.AscCtx.AudioObjectType),
		ObjectType:        objectType,
		OriginObjectType:  h.AscCtx.AudioObjectType,
		SampleRate:        sampleRate,
		SampleRateIndex:   sfi,
		ChannelCount:      channel,
		Config:            config,
		RefSampleDuration: rsd,
	}
}

func (d *Demuxer) updateAudioMeta(meta *base.AudioMeta, options *base.SampleOptions) {
	if d.hasAudioMeta {
		diff := DiffAudioMeta(d.audioTrack.AudioMeta(), meta)
		if len(diff) == 0 {
			return
		}
		Log.Infof("[%s] audio meta changed. fields=%v, codec=%s, sample rate=%d, channel=%d",
			d.uniqueKey, diff, meta.Codec, meta.SampleRate, meta.ChannelCount)
	} else {
		Log.Infof("[%s] audio meta. codec=%s, origin=%s, sample rate=%d, channel=%d",
			d.uniqueKey, meta.Codec, meta.OriginCodec, meta.SampleRate, meta.ChannelCount)
	}

	d.hasAudioMeta = true
	d.audioTrack.Meta = meta
	options.AudioMeta = meta.Clone()
	d.stat.AudioCodec = base.AudioCodecAac
	d.stat.AudioMetadataCount++
	d.observer.OnMetadata(base.MediaKindAudio, d.audioTrack)
}
