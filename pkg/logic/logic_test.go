// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/q191201771/hlsts/pkg/aac"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/mpegts"
)

var stereo44100 = aac.AscContext{
	AudioObjectType:        aac.AudioObjectTypeAacLc,
	SamplingFrequencyIndex: aac.AscSamplingFrequencyIndex44100,
	ChannelConfiguration:   2,
}

var (
	videoElement = mpegts.PsiPmtElement{StreamType: mpegts.StreamTypeAvc, Pid: mpegts.PidVideo}
	audioElement = mpegts.PsiPmtElement{StreamType: mpegts.StreamTypeAdtsAac, Pid: mpegts.PidAudio}
)

func makeAdtsFrame(rawSize int) []byte {
	out := stereo44100.PackAdtsHeader(rawSize)
	for i := 0; i < rawSize; i++ {
		out = append(out, uint8(i))
	}
	return out
}

// makeAudioFragment PAT、PMT加上一个包含两个adts帧的音频PES
func makeAudioFragment(ptsMs uint64) []byte {
	b := mpegts.PackProgramTables([]mpegts.PsiPmtElement{audioElement})
	frame := mpegts.Frame{
		Pid: mpegts.PidAudio,
		Sid: mpegts.StreamIdAudio,
		Pts: ptsMs * 90,
		Dts: ptsMs * 90,
		Raw: append(makeAdtsFrame(100), makeAdtsFrame(120)...),
	}
	return append(b, frame.Pack()...)
}

// makeBrokenAudioFragment 音频PES的负载没有adts同步字
func makeBrokenAudioFragment() []byte {
	b := mpegts.PackProgramTables([]mpegts.PsiPmtElement{audioElement})
	frame := mpegts.Frame{Pid: mpegts.PidAudio, Sid: mpegts.StreamIdAudio, Raw: []byte{0x12, 0x34, 0x56, 0x78}}
	return append(b, frame.Pack()...)
}

func writeTempFiles(t *testing.T, contents ...[]byte) (filenames []string) {
	dir := t.TempDir()
	for i, c := range contents {
		filename := filepath.Join(dir, string(rune('a'+i))+".ts")
		if err := os.WriteFile(filename, c, 0644); err != nil {
			t.Fatal(err)
		}
		filenames = append(filenames, filename)
	}
	return
}

type fragRecord struct {
	frag *base.FragInfo
	size int
}

func collectFrags(frags *[]fragRecord) func(frag *base.FragInfo, b []byte) error {
	return func(frag *base.FragInfo, b []byte) error {
		*frags = append(*frags, fragRecord{frag: frag, size: len(b)})
		return nil
	}
}
