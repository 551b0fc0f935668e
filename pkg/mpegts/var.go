// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

const (
	TsPacketSize = 188
	syncByte     = uint8(0x47)
)

// PID
const (
	PidPat  uint16 = 0
	PidCat  uint16 = 1
	PidTsdt uint16 = 2
	PidNull uint16 = 0x1FFF

	// 以下两个值只在打包时使用
	PidPmt   uint16 = 0x1001
	PidVideo uint16 = 0x100
	PidAudio uint16 = 0x101
)

// adaptation_field_control
const (
	AdaptationFieldControlReserved uint8 = 0 // Reserved for future use by ISO/IEC
	AdaptationFieldControlNo       uint8 = 1 // No adaptation_field, payload only
	AdaptationFieldControlOnly     uint8 = 2 // Adaptation_field only, no payload
	AdaptationFieldControlFollowed uint8 = 3 // Adaptation_field followed by payload
)

// stream_type
// <iso13818-1.pdf> <Table 2-29 Stream type assignments>
const (
	StreamTypeMpeg1Video  uint8 = 0x01
	StreamTypeMpeg2Video  uint8 = 0x02
	StreamTypeMpeg1Audio  uint8 = 0x03
	StreamTypeMpeg2Audio  uint8 = 0x04
	StreamTypePrivatePes  uint8 = 0x06
	StreamTypeAdtsAac     uint8 = 0x0F
	StreamTypeLatmAac     uint8 = 0x11
	StreamTypeAvc         uint8 = 0x1B
	StreamTypeHevc        uint8 = 0x24
	StreamTypeLpcm        uint8 = 0x80
	StreamTypeAc3         uint8 = 0x81
	StreamTypeDts         uint8 = 0x82
	StreamTypeTrueHd      uint8 = 0x83
	StreamTypeEac3        uint8 = 0x84
	StreamTypeDtsHd       uint8 = 0x85
	StreamTypeDtsMa       uint8 = 0x86
	StreamTypeEac3Sec     uint8 = 0xA1
	StreamTypeDtsHdSec    uint8 = 0xA2
	StreamTypeVc1         uint8 = 0xEA
)

// stream_id
// <iso13818-1.pdf> <Table 2-18 Stream_id assignments>
const (
	StreamIdAudio uint8 = 0xC0 // 打包时使用
	StreamIdVideo uint8 = 0xE0 // 打包时使用

	streamIdAudioMin uint8 = 0xC0
	streamIdAudioMax uint8 = 0xDF
	streamIdVideoMin uint8 = 0xE0
	streamIdVideoMax uint8 = 0xEF
)

type MediaType uint8

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
)

func (t MediaType) ReadableString() string {
	switch t {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	}
	return "unknown"
}

type streamTypeInfo struct {
	mediaType MediaType
	codec     string
}

var streamTypeMapping = map[uint8]streamTypeInfo{
	StreamTypeMpeg1Video: {MediaTypeVideo, "MPEG-1"},
	StreamTypeMpeg2Video: {MediaTypeVideo, "MPEG-2"},
	StreamTypeAvc:        {MediaTypeVideo, "AVC.H264"},
	StreamTypeHevc:       {MediaTypeVideo, "HVC.H265"},
	StreamTypeVc1:        {MediaTypeVideo, "VC-1"},
	StreamTypeMpeg1Audio: {MediaTypeAudio, "MPEG-1"},
	StreamTypeMpeg2Audio: {MediaTypeAudio, "MPEG-2"},
	StreamTypeAdtsAac:    {MediaTypeAudio, "MPEG-2.AAC"},
	StreamTypeLatmAac:    {MediaTypeAudio, "MPEG-4.AAC"},
	StreamTypeLpcm:       {MediaTypeAudio, "LPCM"},
	StreamTypeAc3:        {MediaTypeAudio, "AC3"},
	StreamTypePrivatePes: {MediaTypeAudio, "AC3"},
	StreamTypeDts:        {MediaTypeAudio, "DTS"},
	StreamTypeTrueHd:     {MediaTypeAudio, "Dolby TrueHD"},
	StreamTypeEac3:       {MediaTypeAudio, "AC3-Plus"},
	StreamTypeDtsHd:      {MediaTypeAudio, "DTS-HD"},
	StreamTypeDtsMa:      {MediaTypeAudio, "DTS-MA"},
	StreamTypeEac3Sec:    {MediaTypeAudio, "AC3-Plus-SEC"},
	StreamTypeDtsHdSec:   {MediaTypeAudio, "DTS-HD-SEC"},
}

// StreamTypeInfo 返回stream_type对应的媒体类型和编码名，未知类型返回 MediaTypeUnknown
func StreamTypeInfo(streamType uint8) (MediaType, string) {
	info, ok := streamTypeMapping[streamType]
	if !ok {
		return MediaTypeUnknown, ""
	}
	return info.mediaType, info.codec
}

// IsAacStreamType 只有这两种音频能被解析，其他音频格式当作没有音频处理
func IsAacStreamType(streamType uint8) bool {
	return streamType == StreamTypeAdtsAac || streamType == StreamTypeLatmAac
}
