// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/tsdemux"
)

// Session 把一个分片来源和一个demuxer串起来
//
// 格式错误的分片被跳过并记录日志，其他错误终止运行
type Session struct {
	config  *Config
	source  IFragmentSource
	demuxer *tsdemux.Demuxer
	metrics *Metrics

	skippedFragCount int
}

// NewSession
//
// @param observer: 接收demuxer回调
// @param metrics:  可以为nil。不为nil时，回调先经过metrics计数再转发给observer，此时由调用方保证metrics的next就是observer
//
func NewSession(config *Config, source IFragmentSource, observer tsdemux.IDemuxerObserver, metrics *Metrics) *Session {
	if metrics != nil {
		observer = metrics
	}
	demuxer := tsdemux.NewDemuxer(nil, nil, observer,
		tsdemux.WithDecoderProfile(config.DecoderProfile()),
		tsdemux.WithCheckCrc(config.Demux.CheckCrc))
	Log.Infof("[%s] lifecycle new session. source=%s, profile=%s, vod=%t",
		demuxer.UniqueKey(), source.UniqueKey(), config.Demux.DecoderProfile, config.Demux.IsVod)
	return &Session{
		config:  config,
		source:  source,
		demuxer: demuxer,
		metrics: metrics,
	}
}

// RunLoop 阻塞直到分片来源结束，结束后demuxer被销毁
func (s *Session) RunLoop() error {
	err := s.source.RunLoop(s.onFragment)
	stat := s.demuxer.Stat()
	Log.Infof("[%s] session done. frags=%d, skipped=%d, video=%d, audio=%d, sei=%d, resync=%d, err=%v",
		s.demuxer.UniqueKey(), stat.FragCount, s.skippedFragCount, stat.VideoSampleCount, stat.AudioSampleCount,
		stat.SeiCount, stat.ResyncCount, err)
	s.demuxer.Destroy()
	return err
}

// Dispose 可以在其他协程中调用，使 RunLoop 尽快返回
func (s *Session) Dispose() error {
	Log.Infof("[%s] lifecycle dispose session.", s.demuxer.UniqueKey())
	return s.source.Dispose()
}

func (s *Session) Demuxer() *tsdemux.Demuxer {
	return s.demuxer
}

func (s *Session) SkippedFragCount() int {
	return s.skippedFragCount
}

func (s *Session) onFragment(frag *base.FragInfo, b []byte) error {
	err := s.demuxer.Demux(frag, b, s.config.Demux.IsVod)
	if s.metrics != nil {
		s.metrics.UpdateStat(s.demuxer.Stat())
		if err != nil {
			s.metrics.OnDemuxError(err)
		}
	}
	if err == nil {
		return nil
	}
	if base.IsFormatError(err) {
		s.skippedFragCount++
		Log.Warnf("[%s] skip fragment. id=%d, url=%s, err=%+v", s.demuxer.UniqueKey(), frag.Id, frag.Url, err)
		return nil
	}
	return err
}
