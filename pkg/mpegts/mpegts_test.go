// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/mpegts"
	"github.com/q191201771/naza/pkg/assert"
)

var (
	videoElement = mpegts.PsiPmtElement{StreamType: mpegts.StreamTypeAvc, Pid: mpegts.PidVideo}
	audioElement = mpegts.PsiPmtElement{StreamType: mpegts.StreamTypeAdtsAac, Pid: mpegts.PidAudio}
)

func makeRaw(head []byte, n int) []byte {
	b := make([]byte, n)
	copy(b, head)
	for i := len(head); i < n; i++ {
		b[i] = uint8(i)
	}
	return b
}

func readAll(b []byte) []mpegts.TsPacket {
	var out []mpegts.TsPacket
	r := mpegts.NewPacketReader(b)
	for {
		pkt, ok := r.Next()
		if !ok {
			break
		}
		out = append(out, pkt)
	}
	return out
}

func TestParseTsPacket(t *testing.T) {
	frame := mpegts.Frame{
		Pts: 9000,
		Dts: 6000,
		Cc:  15,
		Pid: mpegts.PidVideo,
		Sid: mpegts.StreamIdVideo,
		Key: true,
		Raw: makeRaw([]byte{0, 0, 0, 1, 0x65}, 100),
	}
	out := frame.Pack()
	assert.Equal(t, mpegts.TsPacketSize, len(out))

	pkt, err := mpegts.ParseTsPacket(out)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(0x47), pkt.Header.Sync)
	assert.Equal(t, uint8(1), pkt.Header.PayloadUnitStart)
	assert.Equal(t, mpegts.PidVideo, pkt.Header.Pid)
	assert.Equal(t, mpegts.AdaptationFieldControlFollowed, pkt.Header.Adaptation)
	assert.Equal(t, uint8(0), pkt.Header.Cc)
	assert.Equal(t, true, pkt.HasAdaptation())
	assert.Equal(t, true, pkt.IsPayloadUnitStart())
	assert.Equal(t, uint8(1), pkt.Adaptation.RandomAccess)
	assert.Equal(t, uint8(1), pkt.Adaptation.PcrFlag)
	assert.Equal(t, uint64(6000), pkt.Adaptation.PcrBase)

	// 负载以PES头开始，以帧数据结束
	assert.Equal(t, true, mpegts.HasPesStartCode(pkt.Payload))
	assert.Equal(t, frame.Raw, pkt.Payload[len(pkt.Payload)-len(frame.Raw):])
}

func TestParseTsPacketAdaptationOnly(t *testing.T) {
	b := make([]byte, mpegts.TsPacketSize)
	b[0] = 0x47
	b[1] = 0x01
	b[2] = 0x00
	b[3] = 0x20 // adaptation only
	b[4] = 183
	b[5] = 0x80 // discontinuity
	for i := 6; i < len(b); i++ {
		b[i] = 0xFF
	}
	pkt, err := mpegts.ParseTsPacket(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(0x100), pkt.Header.Pid)
	assert.Equal(t, uint8(1), pkt.Adaptation.Discontinuity)
	assert.Equal(t, 0, len(pkt.Payload))

	// adaptation_field_length越界
	b[3] = 0x30
	b[4] = 200
	_, err = mpegts.ParseTsPacket(b)
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))
}

func TestParseTsPacketAdaptationExtension(t *testing.T) {
	b := make([]byte, mpegts.TsPacketSize)
	b[0] = 0x47
	b[1] = 0x41
	b[2] = 0x01
	b[3] = 0x30
	adaptation := []byte{
		0x07,                                                          // splicing_point_flag, transport_private_data_flag, adaptation_field_extension_flag
		0xFE,                                                          // splice_countdown = -2
		0x02, 0xAB, 0xCD,                                              // private data
		0x06, 0xC0 | 0x1F, 0x80 | 0x01, 0x02, 0xC0 | 0x00, 0x10, 0x00, // extension: ltw + piecewise
	}
	b[4] = uint8(len(adaptation))
	copy(b[5:], adaptation)
	payloadPos := 5 + len(adaptation)
	copy(b[payloadPos:], []byte{0, 0, 1, 0xE0})

	pkt, err := mpegts.ParseTsPacket(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, int8(-2), pkt.Adaptation.SpliceCountdown)
	assert.Equal(t, []byte{0xAB, 0xCD}, pkt.Adaptation.PrivateData)
	assert.Equal(t, uint8(1), pkt.Adaptation.Extension.LtwFlag)
	assert.Equal(t, uint8(1), pkt.Adaptation.Extension.PiecewiseFlag)
	assert.Equal(t, uint8(1), pkt.Adaptation.Extension.LtwValid)
	assert.Equal(t, uint16(0x0102), pkt.Adaptation.Extension.LtwOffset)
	assert.Equal(t, uint32(0x1000), pkt.Adaptation.Extension.PiecewiseRate)
	assert.Equal(t, mpegts.TsPacketSize-payloadPos, len(pkt.Payload))
	assert.Equal(t, true, mpegts.HasPesStartCode(pkt.Payload))
}

func TestPacketReaderShortTrailing(t *testing.T) {
	frame := mpegts.Frame{Pid: mpegts.PidVideo, Sid: mpegts.StreamIdVideo, Raw: makeRaw(nil, 300)}
	b := frame.Pack()
	assert.Equal(t, 2*mpegts.TsPacketSize, len(b))

	// 尾部不足188字节的部分被忽略
	b = append(b, make([]byte, 100)...)
	b[2*mpegts.TsPacketSize] = 0x47
	pkts := readAll(b)
	assert.Equal(t, 2, len(pkts))

	assert.Equal(t, 0, len(readAll(nil)))
	assert.Equal(t, 0, len(readAll(b[:187])))
}

func TestPacketReaderResync(t *testing.T) {
	frame := mpegts.Frame{Pid: mpegts.PidAudio, Sid: mpegts.StreamIdAudio, Raw: makeRaw([]byte{0xFF, 0xF1}, 300)}
	packets := frame.Pack()

	var b []byte
	b = append(b, packets[:mpegts.TsPacketSize]...)
	b = append(b, 0x00, 0x01, 0x02, 0x03, 0x04)
	b = append(b, packets[mpegts.TsPacketSize:]...)

	var offsets, skips []int
	r := mpegts.NewPacketReader(b).WithOnResync(func(offset int, skipped int) {
		offsets = append(offsets, offset)
		skips = append(skips, skipped)
	})
	n := 0
	for {
		pkt, ok := r.Next()
		if !ok {
			break
		}
		assert.Equal(t, mpegts.PidAudio, pkt.Header.Pid)
		n++
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, r.PacketCount())
	assert.Equal(t, 1, r.ResyncCount())
	assert.Equal(t, 5, r.SkippedBytes())
	assert.Equal(t, []int{mpegts.TsPacketSize}, offsets)
	assert.Equal(t, []int{5}, skips)
	assert.Equal(t, len(b), r.Pos())
}

func TestCrc32(t *testing.T) {
	// CRC-32/MPEG-2 check value
	assert.Equal(t, uint32(0x0376E6E7), mpegts.CalcCrc32(0xFFFFFFFF, []byte("123456789")))

	section := mpegts.NewPatSection(1, []mpegts.PatProgramElement{{ProgramNumber: 1, ProgramMapPid: mpegts.PidPmt}}).Pack()[1:]
	ok, expected, actual := mpegts.VerifySectionCrc32(section)
	assert.Equal(t, true, ok)
	assert.Equal(t, expected, actual)

	section[4] ^= 0xFF
	ok, _, _ = mpegts.VerifySectionCrc32(section)
	assert.Equal(t, false, ok)
}

func TestParsePat(t *testing.T) {
	section := mpegts.NewPatSection(7, []mpegts.PatProgramElement{
		{ProgramNumber: 0, ProgramMapPid: 0x10},
		{ProgramNumber: 1, ProgramMapPid: 0x1001},
		{ProgramNumber: 2, ProgramMapPid: 0x1002},
	}).WithVersion(3).Pack()

	pat, err := mpegts.ParsePat(section[1:])
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(mpegts.TsPsiIdPas), pat.TableId)
	assert.Equal(t, uint16(7), pat.TransportStreamId)
	assert.Equal(t, uint8(3), pat.VersionNumber)
	assert.Equal(t, uint16(5+12+4), pat.SectionLength)
	assert.Equal(t, 3, len(pat.ProgramElements))
	assert.Equal(t, true, pat.ProgramElements[0].IsNetwork())
	assert.Equal(t, false, pat.SearchPid(0x10))
	assert.Equal(t, true, pat.SearchPid(0x1002))

	_, err = mpegts.ParsePat(section[1:8])
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))
}

func TestParsePmtWithDescriptors(t *testing.T) {
	section := mpegts.NewPmtSection(1, mpegts.PsiPmtData{
		PcrPid: mpegts.PidVideo,
		ProgramInfo: []mpegts.Descriptor{
			{Tag: mpegts.DescriptorTagRegistration, Registration: mpegts.DescriptorRegistration{FormatIdentifier: 0x48455643}},
		},
		Elements: []mpegts.PsiPmtElement{
			{StreamType: mpegts.StreamTypeHevc, Pid: mpegts.PidVideo, Descriptors: []mpegts.Descriptor{
				{Tag: 0x28, Raw: []byte{0x64, 0x00, 0x1F, 0x3F}},
			}},
			{StreamType: mpegts.StreamTypeAdtsAac, Pid: mpegts.PidAudio, Descriptors: []mpegts.Descriptor{
				{Tag: 0x0A, Raw: []byte{'e', 'n', 'g', 0}},
				{Tag: mpegts.DescriptorTagExtension, Extension: mpegts.DescriptorExtension{Tag: 0x06, Unknown: []byte{1, 2}}},
			}},
		},
	}).Pack()

	pmt, err := mpegts.ParsePmt(section[1:])
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(1), pmt.ProgramNumber)
	assert.Equal(t, mpegts.PidVideo, pmt.PcrPid)
	assert.Equal(t, uint16(6), pmt.ProgramInfoLength)
	assert.Equal(t, 2, len(pmt.ProgramElements))
	assert.Equal(t, mpegts.StreamTypeHevc, pmt.ProgramElements[0].StreamType)
	assert.Equal(t, uint16(6), pmt.ProgramElements[0].Length)
	assert.Equal(t, mpegts.PidAudio, pmt.ProgramElements[1].Pid)
	assert.Equal(t, uint16(6+5), pmt.ProgramElements[1].Length)
	assert.Equal(t, uint16(1), pmt.ProgramElements[1].ProgramNumber)
	assert.IsNotNil(t, pmt.SearchPid(mpegts.PidAudio))
	assert.Equal(t, (*mpegts.PmtProgramElement)(nil), pmt.SearchPid(0x300))

	ok, expected, _ := mpegts.VerifySectionCrc32(section[1:])
	assert.Equal(t, true, ok)
	assert.Equal(t, expected, pmt.Crc32)
}

func TestParseCat(t *testing.T) {
	section := mpegts.NewCatSection(mpegts.PsiCatData{CaDescriptors: []mpegts.CaDescriptor{
		{CaSystemId: 0x0B00, CaPid: 0x0200, PrivateData: []byte{9}},
	}}).Pack()
	cat, err := mpegts.ParseCat(section[1:])
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(mpegts.TsPsiIdCas), cat.TableId)
	assert.Equal(t, 1, len(cat.CaDescriptors))
	assert.Equal(t, uint16(0x0B00), cat.CaDescriptors[0].CaSystemId)
	assert.Equal(t, uint16(0x0200), cat.CaDescriptors[0].CaPid)
	assert.Equal(t, []byte{9}, cat.CaDescriptors[0].PrivateData)
}

func TestProgramTables(t *testing.T) {
	b := mpegts.PackProgramTables([]mpegts.PsiPmtElement{videoElement, audioElement, {StreamType: mpegts.StreamTypeAc3, Pid: 0x102}})
	b = append(b, mpegts.NewCatSection(mpegts.PsiCatData{CaDescriptors: []mpegts.CaDescriptor{{CaSystemId: 1, CaPid: 0x300}}}).PackPacket(mpegts.PidCat, 0)...)

	pt := mpegts.NewProgramTables(true)
	kind, _ := pt.Classify(mpegts.PidPmt)
	assert.Equal(t, mpegts.PidKindUnknown, kind)

	for _, pkt := range readAll(b) {
		kind, _ := pt.Classify(pkt.Header.Pid)
		err := pt.FeedPsi(kind, pkt.Payload)
		assert.Equal(t, nil, err)
	}

	kind, _ = pt.Classify(mpegts.PidPat)
	assert.Equal(t, mpegts.PidKindPat, kind)
	kind, _ = pt.Classify(mpegts.PidCat)
	assert.Equal(t, mpegts.PidKindCat, kind)
	kind, _ = pt.Classify(mpegts.PidTsdt)
	assert.Equal(t, mpegts.PidKindTsdt, kind)
	kind, _ = pt.Classify(mpegts.PidNull)
	assert.Equal(t, mpegts.PidKindNull, kind)
	kind, _ = pt.Classify(mpegts.PidPmt)
	assert.Equal(t, mpegts.PidKindPmt, kind)
	kind, ppe := pt.Classify(mpegts.PidAudio)
	assert.Equal(t, mpegts.PidKindMedia, kind)
	assert.Equal(t, mpegts.StreamTypeAdtsAac, ppe.StreamType)
	kind, _ = pt.Classify(0x555)
	assert.Equal(t, mpegts.PidKindUnknown, kind)

	assert.Equal(t, 1, len(pt.Programs()))
	assert.Equal(t, 3, len(pt.Streams()))
	assert.Equal(t, mpegts.PidVideo, pt.Streams()[0].Pid)
	assert.Equal(t, uint16(0x300), pt.CaDescriptors()[0].CaPid)

	// 同一个pmt重复出现不会导致表增长
	for _, pkt := range readAll(b) {
		kind, _ := pt.Classify(pkt.Header.Pid)
		_ = pt.FeedPsi(kind, pkt.Payload)
	}
	assert.Equal(t, 3, len(pt.Streams()))

	pt.Reset()
	kind, _ = pt.Classify(mpegts.PidVideo)
	assert.Equal(t, mpegts.PidKindUnknown, kind)
}

func TestProgramTablesCrcMismatch(t *testing.T) {
	b := mpegts.PackProgramTables([]mpegts.PsiPmtElement{videoElement})
	// 改掉pmt中的stream_type
	pmtPacket := b[mpegts.TsPacketSize:]
	pmtPacket[4+1+12] = mpegts.StreamTypeHevc

	pt := mpegts.NewProgramTables(true)
	var lastErr error
	for _, pkt := range readAll(b) {
		kind, _ := pt.Classify(pkt.Header.Pid)
		lastErr = pt.FeedPsi(kind, pkt.Payload)
	}
	assert.Equal(t, true, errors.Is(lastErr, base.ErrPsiCrc))
	assert.Equal(t, 1, pt.CrcErrCount())
	assert.Equal(t, 0, len(pt.Streams()))

	// 不校验时照常解析
	pt = mpegts.NewProgramTables(false)
	for _, pkt := range readAll(b) {
		kind, _ := pt.Classify(pkt.Header.Pid)
		lastErr = pt.FeedPsi(kind, pkt.Payload)
	}
	assert.Equal(t, nil, lastErr)
	assert.Equal(t, mpegts.StreamTypeHevc, pt.Streams()[0].StreamType)
}

func TestPtsDtsBoundary(t *testing.T) {
	golden := []struct {
		pts, dts uint64
	}{
		{0, 0},
		{mpegts.MaxPts, mpegts.MaxPts},
		{mpegts.MaxPts, mpegts.MaxPts - 3600},
		{0x155555555, 0x0AAAAAAAA},
		{0x0AAAAAAAA, 0x0AAAAAAAA},
		{1, 0},
	}
	for _, item := range golden {
		frame := mpegts.Frame{Pts: item.pts, Dts: item.dts, Pid: mpegts.PidVideo, Sid: mpegts.StreamIdVideo, Raw: makeRaw(nil, 20)}
		pkts := readAll(frame.Pack())
		assert.Equal(t, 1, len(pkts))
		pes, err := mpegts.ParsePes(pkts[0].Payload)
		assert.Equal(t, nil, err)
		assert.Equal(t, item.pts, pes.Pts)
		assert.Equal(t, item.dts, pes.Dts)
	}
}

func TestPesAssembler(t *testing.T) {
	videoRaw := makeRaw([]byte{0, 0, 0, 1, 0x65}, 1000)
	audioRaw := makeRaw([]byte{0xFF, 0xF1, 0x50, 0x80}, 400)
	video := mpegts.Frame{Pts: 3600, Dts: 0, Pid: mpegts.PidVideo, Sid: mpegts.StreamIdVideo, Key: true, Raw: videoRaw}
	audio := mpegts.Frame{Pts: 1800, Dts: 1800, Pid: mpegts.PidAudio, Sid: mpegts.StreamIdAudio, Raw: audioRaw}

	var b []byte
	b = append(b, video.Pack()...)
	b = append(b, audio.Pack()...)
	video.Pts, video.Dts, video.Key = 7200, 3600, false
	b = append(b, video.Pack()...)

	a := mpegts.NewPesAssembler()
	// 没有PES头的负载被丢弃
	assert.Equal(t, nil, a.Feed(mpegts.PmtProgramElement{StreamType: mpegts.StreamTypeAvc, Pid: mpegts.PidVideo}, false, []byte{1, 2, 3}))
	assert.Equal(t, 1, a.DroppedCount())

	for _, pkt := range readAll(b) {
		ppe := mpegts.PmtProgramElement{StreamType: mpegts.StreamTypeAvc, Pid: pkt.Header.Pid}
		if pkt.Header.Pid == mpegts.PidAudio {
			ppe.StreamType = mpegts.StreamTypeAdtsAac
		}
		err := a.Feed(ppe, pkt.IsPayloadUnitStart(), pkt.Payload)
		assert.Equal(t, nil, err)
	}

	entries := a.Entries()
	assert.Equal(t, 3, len(entries))
	assert.Equal(t, mpegts.MediaTypeVideo, entries[0].Kind)
	assert.Equal(t, mpegts.MediaTypeAudio, entries[1].Kind)
	assert.Equal(t, mpegts.MediaTypeVideo, entries[2].Kind)
	assert.Equal(t, "AVC.H264", entries[0].Codec)
	assert.Equal(t, "MPEG-2.AAC", entries[1].Codec)
	assert.Equal(t, uint64(3600), entries[0].Pts)
	assert.Equal(t, uint64(0), entries[0].Dts)
	assert.Equal(t, uint64(7200), entries[2].Pts)

	assert.Equal(t, videoRaw, mpegts.MergeVideo(entries[0]))
	assert.Equal(t, videoRaw, mpegts.MergeVideo(entries[2]))
	merged := mpegts.MergeAudio(entries[1])
	assert.Equal(t, audioRaw, merged[mpegts.AudioEsOffset(entries[1]):])
	assert.Equal(t, true, bytes.HasPrefix(merged, []byte{0, 0, 1, mpegts.StreamIdAudio}))

	a.Reset()
	assert.Equal(t, 0, len(a.Entries()))
	assert.Equal(t, 0, a.DroppedCount())
}

func TestPesAssemblerAdtsSync(t *testing.T) {
	audio := mpegts.Frame{Pts: 1800, Dts: 1800, Pid: mpegts.PidAudio, Sid: mpegts.StreamIdAudio, Raw: makeRaw([]byte{0x12, 0x34}, 50)}
	pkts := readAll(audio.Pack())

	a := mpegts.NewPesAssembler()
	err := a.Feed(mpegts.PmtProgramElement{StreamType: mpegts.StreamTypeAdtsAac, Pid: mpegts.PidAudio}, true, pkts[0].Payload)
	assert.Equal(t, true, errors.Is(err, base.ErrAdtsSync))
	assert.Equal(t, true, base.IsFormatError(err))

	// 非aac的音频不检查adts
	err = a.Feed(mpegts.PmtProgramElement{StreamType: mpegts.StreamTypeAc3, Pid: mpegts.PidAudio}, true, pkts[0].Payload)
	assert.Equal(t, nil, err)
}
