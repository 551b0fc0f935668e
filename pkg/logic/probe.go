// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/asticode/go-astits"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/mpegts"
)

// 使用go-astits独立解析一遍ts流，用于和 tsdemux 的解析结果做交叉验证

type ProbeProgram struct {
	ProgramNumber uint16
	ProgramMapPid uint16
}

type ProbeStream struct {
	Pid           uint16
	StreamType    uint8
	ProgramNumber uint16
	Codec         string // 参考 mpegts.StreamTypeInfo
	PesCount      int
	FirstPts      int64 // 单位毫秒，-1表示没有pts
}

type ProbeResult struct {
	Programs []ProbeProgram // 按ProgramNumber排序，不包含network pid
	Streams  []ProbeStream  // 按Pid排序
}

func Probe(ctx context.Context, r io.Reader) (*ProbeResult, error) {
	dmx := astits.NewDemuxer(ctx, bufio.NewReader(r), astits.DemuxerOptPacketSize(mpegts.TsPacketSize))

	programs := make(map[uint16]ProbeProgram)
	streams := make(map[uint16]*ProbeStream)
	for {
		d, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				break
			}
			return nil, fmt.Errorf("probe failed. err=%w", err)
		}

		if d.PAT != nil {
			for _, p := range d.PAT.Programs {
				if p.ProgramNumber == 0 {
					continue
				}
				programs[p.ProgramNumber] = ProbeProgram{
					ProgramNumber: p.ProgramNumber,
					ProgramMapPid: p.ProgramMapID,
				}
			}
		}

		if d.PMT != nil {
			for _, es := range d.PMT.ElementaryStreams {
				if _, ok := streams[es.ElementaryPID]; ok {
					continue
				}
				_, codec := mpegts.StreamTypeInfo(uint8(es.StreamType))
				streams[es.ElementaryPID] = &ProbeStream{
					Pid:           es.ElementaryPID,
					StreamType:    uint8(es.StreamType),
					ProgramNumber: d.PMT.ProgramNumber,
					Codec:         codec,
					FirstPts:      -1,
				}
			}
		}

		if d.PES != nil && d.FirstPacket != nil {
			s, ok := streams[d.FirstPacket.Header.PID]
			if !ok {
				Log.Debugf("probe got pes of unknown pid. pid=%d", d.FirstPacket.Header.PID)
				continue
			}
			s.PesCount++
			oh := d.PES.Header.OptionalHeader
			if s.FirstPts < 0 && oh != nil && oh.PTS != nil {
				s.FirstPts = oh.PTS.Base / 90
			}
		}
	}

	if len(programs) == 0 {
		return nil, base.ErrProbeNoPrograms
	}

	res := &ProbeResult{}
	for _, p := range programs {
		res.Programs = append(res.Programs, p)
	}
	sort.Slice(res.Programs, func(i, j int) bool {
		return res.Programs[i].ProgramNumber < res.Programs[j].ProgramNumber
	})
	for _, s := range streams {
		res.Streams = append(res.Streams, *s)
	}
	sort.Slice(res.Streams, func(i, j int) bool {
		return res.Streams[i].Pid < res.Streams[j].Pid
	})
	return res, nil
}

// CompareProgramTables 比较probe结果和 mpegts.ProgramTables 中的节目信息，返回不一致的描述，一致时返回nil
func CompareProgramTables(res *ProbeResult, pt *mpegts.ProgramTables) (diffs []string) {
	var programs []ProbeProgram
	for _, p := range pt.Programs() {
		if p.IsNetwork() {
			continue
		}
		programs = append(programs, ProbeProgram{ProgramNumber: p.ProgramNumber, ProgramMapPid: p.ProgramMapPid})
	}
	sort.Slice(programs, func(i, j int) bool {
		return programs[i].ProgramNumber < programs[j].ProgramNumber
	})
	if len(programs) != len(res.Programs) {
		diffs = append(diffs, fmt.Sprintf("program count. probe=%d, tables=%d", len(res.Programs), len(programs)))
	} else {
		for i := range programs {
			if programs[i] != res.Programs[i] {
				diffs = append(diffs, fmt.Sprintf("program. probe=%+v, tables=%+v", res.Programs[i], programs[i]))
			}
		}
	}

	streams := make(map[uint16]mpegts.PmtProgramElement)
	for _, s := range pt.Streams() {
		streams[s.Pid] = s
	}
	if len(streams) != len(res.Streams) {
		diffs = append(diffs, fmt.Sprintf("stream count. probe=%d, tables=%d", len(res.Streams), len(streams)))
	}
	for _, ps := range res.Streams {
		s, ok := streams[ps.Pid]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("stream missing in tables. pid=%d", ps.Pid))
			continue
		}
		if s.StreamType != ps.StreamType || s.ProgramNumber != ps.ProgramNumber {
			diffs = append(diffs, fmt.Sprintf("stream. probe=%+v, tables=%+v", ps, s))
		}
	}
	return
}
