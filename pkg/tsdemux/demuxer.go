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
	"github.com/q191201771/naza/pkg/nazaatomic"
)

// IDemuxerObserver
//
// 同一次 Demuxer.Demux 调用中，回调按数据在分片中的到达顺序依次发生，
// 并且都在 Demux 返回之前完成
type IDemuxerObserver interface {
	// OnMetadata 轨道元数据第一次建立或者发生变化
	//
	// @param track: 构造 Demuxer 时传入的轨道对象，其Meta字段已经更新
	//
	OnMetadata(kind base.MediaKind, track *base.Track)

	// OnVideoSample
	//
	// @param sample: Data为avcc格式
	//
	OnVideoSample(sample *base.VideoSample)

	// OnAudioSample
	//
	// @param sample: Data为去掉adts头的raw aac frame
	//
	OnAudioSample(sample *base.AudioSample)

	// OnSei 在所属视频sample的 OnVideoSample 之前回调
	OnSei(sei *base.Sei)

	// OnDemuxComplete 一次 Demux 调用成功处理完整个分片
	OnDemuxComplete(frag *base.FragInfo)
}

type Option struct {
	// DecoderProfile 下游aac解码器能力，决定音频元数据中的object type和asc
	DecoderProfile aac.DecoderProfile

	// CheckCrc 是否校验PAT、PMT、CAT的crc32，校验失败的section被丢弃
	CheckCrc bool
}

var defaultOption = Option{
	DecoderProfile: aac.DecoderProfileSbr,
	CheckCrc:       false,
}

type ModOption func(option *Option)

func WithDecoderProfile(profile aac.DecoderProfile) ModOption {
	return func(option *Option) {
		option.DecoderProfile = profile
	}
}

func WithCheckCrc(checkCrc bool) ModOption {
	return func(option *Option) {
		option.CheckCrc = checkCrc
	}
}

// Demuxer 将hls的ts分片解析为音视频sample以及元数据
//
// 一个 Demuxer 对应一路流，PAT、PMT等节目信息在多次调用之间保留
type Demuxer struct {
	uniqueKey string
	option    Option
	observer  IDemuxerObserver

	videoTrack *base.Track
	audioTrack *base.Track

	tables    *mpegts.ProgramTables
	assembler *mpegts.PesAssembler

	demuxing     nazaatomic.Bool
	destroyed    bool
	hasVideoMeta bool
	hasAudioMeta bool
	gopId        int

	stat base.StatDemuxer
}

// NewDemuxer
//
// @param videoTrack, audioTrack: 外部持有的轨道对象，为nil时内部新建
//
func NewDemuxer(videoTrack, audioTrack *base.Track, observer IDemuxerObserver, modOptions ...ModOption) *Demuxer {
	option := defaultOption
	for _, fn := range modOptions {
		fn(&option)
	}

	if videoTrack == nil {
		videoTrack = base.NewVideoTrack()
	}
	if audioTrack == nil {
		audioTrack = base.NewAudioTrack()
	}

	uk := base.GenUkTsDemuxer()
	d := &Demuxer{
		uniqueKey:  uk,
		option:     option,
		observer:   observer,
		videoTrack: videoTrack,
		audioTrack: audioTrack,
		tables:     mpegts.NewProgramTables(option.CheckCrc),
		assembler:  mpegts.NewPesAssembler(),
	}
	d.stat.UniqueKey = uk
	d.stat.StartTime = base.ReadableNowTime()
	Log.Infof("[%s] lifecycle new tsdemux demuxer. decoder profile=%s, check crc=%v",
		uk, option.DecoderProfile.ReadableString(), option.CheckCrc)
	return d
}

// Demux 同步处理一个完整的ts分片
//
// @param frag:  分片描述信息，原样挂在本次调用中音频、视频的第一个sample上，可以为nil
// @param b:     调用期间调用方不能修改
// @param isVod: 点播时，如果第一个分片只有音频（或只有视频），后续分片中的视频（或音频）会被忽略
//
// @return err: 格式错误时终止本次调用，已经回调的sample依然有效，见 base.IsFormatError
//
// 上一次调用还没有返回时（比如在回调中再次调用），本次调用直接返回nil，不做任何处理
func (d *Demuxer) Demux(frag *base.FragInfo, b []byte, isVod bool) error {
	if d.demuxing.Load() {
		Log.Warnf("[%s] demux while demuxing, ignore. frag=%+v", d.uniqueKey, frag)
		return nil
	}
	if d.destroyed {
		return base.ErrDemuxerDestroyed
	}

	d.demuxing.Store(true)
	defer d.demuxing.Store(false)

	if frag != nil {
		Log.Debugf("[%s] demux. id=%d, url=%s, len=%d, vod=%v", d.uniqueKey, frag.Id, frag.Url, len(b), isVod)
	}
	d.stat.FragCount++
	d.stat.ReadBytesSum += uint64(len(b))

	if err := d.collect(b); err != nil {
		d.stat.ErrCount++
		return err
	}
	d.dispatch(frag, isVod)

	d.observer.OnDemuxComplete(frag)
	return nil
}

// Destroy 清空节目信息以及元数据状态，之后不能再调用 Demux
//
// 外部传入的轨道对象不会被修改
func (d *Demuxer) Destroy() {
	Log.Infof("[%s] lifecycle destroy tsdemux demuxer.", d.uniqueKey)
	d.tables.Reset()
	d.assembler.Reset()
	d.hasVideoMeta = false
	d.hasAudioMeta = false
	d.demuxing.Store(false)
	d.videoTrack = nil
	d.audioTrack = nil
	d.destroyed = true
}

func (d *Demuxer) UniqueKey() string {
	return d.uniqueKey
}

// ProgramTables 目前为止解析到的节目信息
func (d *Demuxer) ProgramTables() *mpegts.ProgramTables {
	return d.tables
}

func (d *Demuxer) Stat() base.StatDemuxer {
	return d.stat
}

// ----- private -------------------------------------------------------------------------------------------------------

// collect 遍历所有ts包，更新节目信息，并把音视频负载组织成PES
func (d *Demuxer) collect(b []byte) error {
	d.assembler.Reset()

	reader := mpegts.NewPacketReader(b).WithOnResync(func(offset int, skipped int) {
		Log.Warnf("[%s] resync. offset=%d, skipped=%d", d.uniqueKey, offset, skipped)
	})
	defer func() {
		d.stat.PacketCount += reader.PacketCount()
		d.stat.ResyncCount += reader.ResyncCount()
		d.stat.ResyncSkippedBytes += reader.SkippedBytes()
		d.stat.BadPacketCount += reader.BadPacketCount()
		d.stat.DroppedPayloadCount += d.assembler.DroppedCount()
	}()

	for {
		pkt, ok := reader.Next()
		if !ok {
			break
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		kind, ppe := d.tables.Classify(pkt.Header.Pid)
		switch kind {
		case mpegts.PidKindPat, mpegts.PidKindPmt, mpegts.PidKindCat:
			if !pkt.IsPayloadUnitStart() {
				continue
			}
			if err := d.tables.FeedPsi(kind, pkt.Payload); err != nil {
				d.stat.PsiErrCount++
				Log.Warnf("[%s] feed psi failed. pid=%d, kind=%s, err=%+v",
					d.uniqueKey, pkt.Header.Pid, kind.ReadableString(), err)
			}
		case mpegts.PidKindMedia:
			if !isSupportedStreamType(ppe.StreamType) {
				d.stat.UnknownPidPacketCount++
				continue
			}
			if err := d.assembler.Feed(ppe, pkt.IsPayloadUnitStart(), pkt.Payload); err != nil {
				Log.Errorf("[%s] feed pes failed. pid=%d, stream type=0x%02x, err=%+v",
					d.uniqueKey, ppe.Pid, ppe.StreamType, err)
				return fmt.Errorf("demux failed. pid=%d: %w", ppe.Pid, err)
			}
		case mpegts.PidKindUnknown:
			d.stat.UnknownPidPacketCount++
		}
	}
	return nil
}

// dispatch 按到达顺序处理本次调用中组织好的所有PES
func (d *Demuxer) dispatch(frag *base.FragInfo, isVod bool) {
	audioOptions := base.SampleOptions{Frag: frag.Clone()}
	videoOptions := base.SampleOptions{Frag: frag.Clone()}

	noAudio := isVod && d.hasVideoMeta && !d.hasAudioMeta
	noVideo := isVod && d.hasAudioMeta && !d.hasVideoMeta

	for _, pes := range d.assembler.Entries() {
		switch {
		case mpegts.IsAacStreamType(pes.StreamType):
			if pes.Kind != mpegts.MediaTypeAudio || noAudio {
				continue
			}
			d.demuxAudio(pes, frag, &audioOptions)
		case pes.StreamType == mpegts.StreamTypeAvc || pes.StreamType == mpegts.StreamTypeHevc:
			if pes.Kind != mpegts.MediaTypeVideo || noVideo {
				continue
			}
			d.demuxVideo(pes, frag, &videoOptions)
		}
	}
}

func isSupportedStreamType(streamType uint8) bool {
	return mpegts.IsAacStreamType(streamType) ||
		streamType == mpegts.StreamTypeAvc ||
		streamType == mpegts.StreamTypeHevc
}

// fragDurationMs 分片时长，写入元数据的Duration字段
func fragDurationMs(frag *base.FragInfo) uint32 {
	if frag == nil || frag.Duration <= 0 {
		return 0
	}
	return uint32(frag.Duration * base.MetaTimescale)
}
