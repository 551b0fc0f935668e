// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

const (
	// StatDemuxer.AudioCodec
	AudioCodecAac = "AAC"

	// StatDemuxer.VideoCodec
	VideoCodecAvc  = "H264"
	VideoCodecHevc = "H265"
)

// StatDemuxer 一个demuxer会话的统计信息
type StatDemuxer struct {
	UniqueKey   string `json:"unique_key"`
	StartTime   string `json:"start_time"`
	AudioCodec  string `json:"audio_codec"`
	VideoCodec  string `json:"video_codec"`
	VideoWidth  int    `json:"video_width"`
	VideoHeight int    `json:"video_height"`

	FragCount    int    `json:"frag_count"`
	ReadBytesSum uint64 `json:"read_bytes_sum"`
	ErrCount     int    `json:"err_count"`

	PacketCount           int `json:"packet_count"`
	ResyncCount           int `json:"resync_count"`
	ResyncSkippedBytes    int `json:"resync_skipped_bytes"`
	BadPacketCount        int `json:"bad_packet_count"`
	UnknownPidPacketCount int `json:"unknown_pid_packet_count"`
	DroppedPayloadCount   int `json:"dropped_payload_count"`
	PsiErrCount           int `json:"psi_err_count"`

	VideoSampleCount   int `json:"video_sample_count"`
	AudioSampleCount   int `json:"audio_sample_count"`
	SeiCount           int `json:"sei_count"`
	VideoMetadataCount int `json:"video_metadata_count"`
	AudioMetadataCount int `json:"audio_metadata_count"`
}
