// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/logic"
	"github.com/q191201771/hlsts/pkg/mpegts"
	"github.com/q191201771/hlsts/pkg/tsdemux"
	"github.com/q191201771/naza/pkg/assert"
)

// makeProbeStream 每个视频帧前都重复PAT、PMT，音频在最后
func makeProbeStream() []byte {
	var b []byte
	video := mpegts.Frame{Pid: mpegts.PidVideo, Sid: mpegts.StreamIdVideo}
	for i := 0; i < 3; i++ {
		b = append(b, mpegts.PackProgramTables([]mpegts.PsiPmtElement{videoElement, audioElement})...)
		video.Pts = uint64(1000+i*40) * 90
		video.Dts = video.Pts
		video.Raw = []byte{0, 0, 0, 1, 0x41, 0x9A, 0x02, 0x03}
		b = append(b, video.Pack()...)
	}
	audio := mpegts.Frame{Pid: mpegts.PidAudio, Sid: mpegts.StreamIdAudio, Pts: 1000 * 90, Dts: 1000 * 90, Raw: makeAdtsFrame(100)}
	b = append(b, audio.Pack()...)
	b = append(b, mpegts.PackProgramTables([]mpegts.PsiPmtElement{videoElement, audioElement})...)
	return b
}

func TestProbe(t *testing.T) {
	b := makeProbeStream()

	res, err := logic.Probe(context.Background(), bytes.NewReader(b))
	assert.Equal(t, nil, err)
	assert.Equal(t, []logic.ProbeProgram{{ProgramNumber: 1, ProgramMapPid: mpegts.PidPmt}}, res.Programs)
	assert.Equal(t, 2, len(res.Streams))
	assert.Equal(t, mpegts.PidVideo, res.Streams[0].Pid)
	assert.Equal(t, mpegts.StreamTypeAvc, res.Streams[0].StreamType)
	assert.Equal(t, uint16(1), res.Streams[0].ProgramNumber)
	assert.Equal(t, "AVC.H264", res.Streams[0].Codec)
	assert.Equal(t, true, res.Streams[0].PesCount >= 2)
	assert.Equal(t, int64(1000), res.Streams[0].FirstPts)
	assert.Equal(t, mpegts.PidAudio, res.Streams[1].Pid)
	assert.Equal(t, mpegts.StreamTypeAdtsAac, res.Streams[1].StreamType)

	// 和自己的节目表解析结果交叉验证
	d := tsdemux.NewDemuxer(nil, nil, logic.NewLogObserver())
	assert.Equal(t, nil, d.Demux(nil, b, false))
	assert.Equal(t, 0, len(logic.CompareProgramTables(res, d.ProgramTables())))

	// 节目表不一致时能发现
	other := tsdemux.NewDemuxer(nil, nil, logic.NewLogObserver())
	assert.Equal(t, nil, other.Demux(nil, mpegts.PackProgramTables([]mpegts.PsiPmtElement{videoElement}), false))
	assert.Equal(t, true, len(logic.CompareProgramTables(res, other.ProgramTables())) > 0)
}

func TestProbeNoPrograms(t *testing.T) {
	frame := mpegts.Frame{Pid: mpegts.PidVideo, Sid: mpegts.StreamIdVideo, Raw: []byte{0, 0, 0, 1, 0x41, 0x9A}}
	_, err := logic.Probe(context.Background(), bytes.NewReader(frame.Pack()))
	assert.Equal(t, true, errors.Is(err, base.ErrProbeNoPrograms))
}
