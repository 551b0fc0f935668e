// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tsdemux

import (
	"github.com/q191201771/hlsts/pkg/avc"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/h2645"
	"github.com/q191201771/hlsts/pkg/hevc"
	"github.com/q191201771/hlsts/pkg/mpegts"
)

// videoUnit 一个视频PES中的nalu按用途分类后的结果
type videoUnit struct {
	vps, sps, pps []byte
	seiList       [][]byte
	sampleNals    [][]byte
	nalus         []base.Nalu

	isKeyframe bool
	firstInGop bool
}

func (d *Demuxer) demuxVideo(pes *mpegts.Pes, frag *base.FragInfo, options *base.SampleOptions) {
	es := mpegts.MergeVideo(pes)
	nals := h2645.SplitNaluAnnexb(es)

	var (
		unit  videoUnit
		meta  *base.VideoMeta
		codec string
		err   error
	)
	if pes.StreamType == mpegts.StreamTypeHevc {
		codec = base.VideoCodecHevc
		unit = splitHevcUnit(nals)
		if unit.vps != nil && unit.sps != nil && unit.pps != nil {
			meta, err = makeHevcMeta(unit.vps, unit.sps, unit.pps)
		}
	} else {
		codec = base.VideoCodecAvc
		unit = splitAvcUnit(nals)
		if unit.sps != nil && unit.pps != nil {
			meta, err = makeAvcMeta(unit.sps, unit.pps)
		}
	}
	if err != nil {
		Log.Warnf("[%s] make video meta failed. codec=%s, err=%+v", d.uniqueKey, codec, err)
	}
	if meta != nil {
		meta.Duration = fragDurationMs(frag)
		d.updateVideoMeta(meta, options)
		d.stat.VideoCodec = codec
		d.stat.VideoWidth = int(meta.CodecWidth)
		d.stat.VideoHeight = int(meta.CodecHeight)
	}

	dts := int64(pes.Dts / 90)
	pts := int64(pes.Pts / 90)

	for _, nal := range unit.seiList {
		d.emitSei(codec, nal, dts)
	}

	if len(unit.sampleNals) == 0 {
		// 只有参数集或者sei，不生成sample，options留给下一个sample
		Log.Debugf("[%s] video pes without slice. pid=%d, dts=%d", d.uniqueKey, pes.Pid, pes.Dts)
		return
	}

	if unit.firstInGop {
		d.gopId++
	}
	sample := &base.VideoSample{
		Dts:        dts,
		Pts:        pts,
		Cts:        pts - dts,
		OriginDts:  pes.Dts,
		IsKeyframe: unit.isKeyframe,
		FirstInGop: unit.firstInGop,
		GopId:      d.gopId,
		Data:       h2645.JoinNaluAvcc(unit.sampleNals...),
		Nalus:      unit.nalus,
		Options:    *options,
	}
	*options = base.SampleOptions{}

	d.stat.VideoSampleCount++
	d.observer.OnVideoSample(sample)
}

// updateVideoMeta 元数据第一次建立或者发生变化时，更新轨道并回调，同时挂到随后的第一个sample上
func (d *Demuxer) updateVideoMeta(meta *base.VideoMeta, options *base.SampleOptions) {
	if d.hasVideoMeta {
		diff := DiffVideoMeta(d.videoTrack.VideoMeta(), meta)
		if len(diff) == 0 {
			return
		}
		Log.Infof("[%s] video meta changed. fields=%v, codec=%s, %dx%d",
			d.uniqueKey, diff, meta.Codec, meta.CodecWidth, meta.CodecHeight)
	} else {
		Log.Infof("[%s] video meta. codec=%s, %dx%d, fps=%.2f",
			d.uniqueKey, meta.Codec, meta.CodecWidth, meta.CodecHeight, meta.FrameRate.Fps)
	}

	d.hasVideoMeta = true
	d.videoTrack.Meta = meta
	options.VideoMeta = meta.Clone()
	d.stat.VideoMetadataCount++
	d.observer.OnMetadata(base.MediaKindVideo, d.videoTrack)
}

func (d *Demuxer) emitSei(codec string, nal []byte, dts int64) {
	var (
		msgs     []h2645.SeiMessage
		err      error
		naluType uint8
	)
	if codec == base.VideoCodecHevc {
		naluType = hevc.CalcNaluType(nal)
		msgs, err = hevc.ParseSei(nal)
	} else {
		naluType = avc.ParseNaluType(nal[0])
		msgs, err = avc.ParseSei(nal)
	}
	if err != nil {
		// 已经解析出来的消息依然回调
		Log.Debugf("[%s] parse sei failed. codec=%s, len=%d, err=%+v", d.uniqueKey, codec, len(nal), err)
	}

	for _, msg := range msgs {
		d.stat.SeiCount++
		d.observer.OnSei(&base.Sei{
			Dts:         dts,
			Codec:       codec,
			NaluType:    naluType,
			PayloadType: msg.PayloadType,
			PayloadSize: msg.PayloadSize,
			Uuid:        msg.Uuid,
			Payload:     msg.Payload,
		})
	}
}

// splitAvcUnit
//
// sps、pps、sei不进入sample，type大于等于9的nalu丢弃，包含IDR时为关键帧
func splitAvcUnit(nals [][]byte) (unit videoUnit) {
	for _, nal := range nals {
		if len(nal) == 0 {
			continue
		}
		t := avc.ParseNaluType(nal[0])
		unit.nalus = append(unit.nalus, base.Nalu{Type: t, Body: nal})

		switch t {
		case avc.NaluTypeSps:
			unit.sps = nal
		case avc.NaluTypePps:
			unit.pps = nal
		case avc.NaluTypeSei:
			unit.seiList = append(unit.seiList, nal)
		default:
			if !avc.IsSampleNalu(t) {
				continue
			}
			if t == avc.NaluTypeIdrSlice {
				unit.isKeyframe = true
			}
			unit.sampleNals = append(unit.sampleNals, nal)
		}
	}
	unit.firstInGop = unit.isKeyframe
	return
}

// splitHevcUnit
//
// vps、sps、pps保留在sample中（hev1），同一个sample内重复的只保留第一个。
// aud、sei以及type大于40的nalu不进入sample。
// IRAP为关键帧，IDR才开启新的gop
func splitHevcUnit(nals [][]byte) (unit videoUnit) {
	for _, nal := range nals {
		if len(nal) < 2 {
			continue
		}
		t := hevc.CalcNaluType(nal)
		unit.nalus = append(unit.nalus, base.Nalu{Type: t, Body: nal})

		switch t {
		case hevc.NaluTypeVps:
			if unit.vps != nil {
				continue
			}
			unit.vps = nal
		case hevc.NaluTypeSps:
			if unit.sps != nil {
				continue
			}
			unit.sps = nal
		case hevc.NaluTypePps:
			if unit.pps != nil {
				continue
			}
			unit.pps = nal
		case hevc.NaluTypeSei, hevc.NaluTypeSeiSuffix:
			unit.seiList = append(unit.seiList, nal)
			continue
		default:
			if !hevc.IsSampleNalu(t) {
				continue
			}
			if hevc.IsIrap(t) {
				unit.isKeyframe = true
			}
			if t == hevc.NaluTypeSliceIdr || t == hevc.NaluTypeSliceIdrNlp {
				unit.firstInGop = true
			}
		}
		unit.sampleNals = append(unit.sampleNals, nal)
	}

	// 只有参数集没有slice时不生成sample
	hasSlice := false
	for _, nal := range unit.sampleNals {
		if !hevc.IsParameterSet(hevc.CalcNaluType(nal)) {
			hasSlice = true
			break
		}
	}
	if !hasSlice {
		unit.sampleNals = nil
	}
	return
}

func makeAvcMeta(sps, pps []byte) (*base.VideoMeta, error) {
	var ctx avc.Context
	if err := avc.ParseSps(sps, &ctx); err != nil {
		return nil, err
	}
	record, err := avc.BuildDecoderConfigurationRecord(sps, pps)
	if err != nil {
		return nil, err
	}

	return &base.VideoMeta{
		Id:             VideoTrackId,
		Codec:          avc.CodecString(sps),
		StreamType:     mpegts.StreamTypeAvc,
		CodecWidth:     ctx.Width,
		CodecHeight:    ctx.Height,
		PresentWidth:   ctx.PresentWidth,
		PresentHeight:  ctx.PresentHeight,
		Profile:        ctx.ProfileString,
		Level:          ctx.LevelString,
		ChromaFormat:   ctx.ChromaFormat,
		BitDepthLuma:   ctx.BitDepthLuma,
		BitDepthChroma: ctx.BitDepthChroma,
		FrameRate: base.FrameRate{
			Fixed: ctx.FpsFixed,
			Fps:   ctx.Fps,
			Num:   ctx.FpsNum,
			Den:   ctx.FpsDen,
		},
		SarRatio: base.SarRatio{
			Width:  ctx.SarWidth,
			Height: ctx.SarHeight,
		},
		Sps:                        append([]byte(nil), sps...),
		Pps:                        append([]byte(nil), pps...),
		DecoderConfigurationRecord: record,
		RefSampleDuration:          refSampleDuration(ctx.FpsNum, ctx.FpsDen),
	}, nil
}

func makeHevcMeta(vps, sps, pps []byte) (*base.VideoMeta, error) {
	var ctx hevc.Context
	if err := hevc.ParseSps(sps, &ctx); err != nil {
		return nil, err
	}
	record, err := hevc.BuildDecoderConfigurationRecord(vps, sps, pps)
	if err != nil {
		return nil, err
	}

	frameRate := base.FrameRate{
		Fixed: true,
		Num:   base.TsdemuxDefaultFpsNum,
		Den:   base.TsdemuxDefaultFpsDen,
	}
	var vctx hevc.VpsContext
	if err := hevc.ParseVps(vps, &vctx); err != nil {
		Log.Warnf("parse hevc vps failed, use default frame rate. err=%+v", err)
	} else if vctx.TimingInfoPresentFlag == 1 && vctx.NumUnitsInTick != 0 && vctx.TimeScale != 0 {
		frameRate.Num = vctx.TimeScale
		frameRate.Den = vctx.NumUnitsInTick
	}
	frameRate.Fps = float64(frameRate.Num) / float64(frameRate.Den)

	return &base.VideoMeta{
		Id:                  VideoTrackId,
		Codec:               ctx.CodecString(),
		StreamType:          mpegts.StreamTypeHevc,
		CodecWidth:          ctx.Width,
		CodecHeight:         ctx.Height,
		PresentWidth:        ctx.Width,
		PresentHeight:       ctx.Height,
		Profile:             hevc.ProfileString(ctx.GeneralProfileIdc),
		Level:               hevc.LevelString(ctx.GeneralLevelIdc),
		ChromaFormat:        ctx.ChromaFormat,
		BitDepthLuma:        ctx.BitDepthLuma,
		BitDepthChroma:      ctx.BitDepthChroma,
		FrameRate:           frameRate,
		SarRatio:            base.SarRatio{Width: 1, Height: 1},
		GeneralProfileSpace: ctx.GeneralProfileSpace,
		GeneralTierFlag:     ctx.GeneralTierFlag,
		GeneralProfileIdc:   ctx.GeneralProfileIdc,
		GeneralLevelIdc:     ctx.GeneralLevelIdc,
		Vps:                 append([]byte(nil), vps...),
		Sps:                 append([]byte(nil), sps...),
		Pps:                 append([]byte(nil), pps...),

		DecoderConfigurationRecord: record,
		RefSampleDuration:          refSampleDuration(frameRate.Num, frameRate.Den),
	}, nil
}

// refSampleDuration 一帧的时长，单位 base.MetaTimescale
func refSampleDuration(fpsNum, fpsDen uint32) uint32 {
	if fpsNum == 0 {
		return 0
	}
	return uint32(uint64(base.MetaTimescale) * uint64(fpsDen) / uint64(fpsNum))
}
