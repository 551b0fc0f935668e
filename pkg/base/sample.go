// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

// FragInfo 播放列表中分片的描述信息，由外部（m3u8解析）提供，demuxer原样透传
type FragInfo struct {
	Id            int
	Url           string
	Start         float64 // 单位秒
	Duration      float64 // 单位秒
	Cc            int     // discontinuity sequence
	Discontinuity bool
}

func (f *FragInfo) Clone() *FragInfo {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// SampleOptions 随sample下发的附加信息
//
// Frag 只挂在本次demux调用中第一个对应类型的sample上
// VideoMeta/AudioMeta 只在元数据发生变化时挂在随后的第一个sample上
type SampleOptions struct {
	Frag      *FragInfo
	VideoMeta *VideoMeta
	AudioMeta *AudioMeta
}

// Nalu 一个不含起始码的nal unit
type Nalu struct {
	Type uint8
	Body []byte
}

// VideoSample
//
// Dts, Pts, Cts 单位毫秒，OriginDts 单位 1/90000 秒
// Data 为avcc格式，即 4字节大端长度 + nalu body，依次排列
type VideoSample struct {
	Dts        int64
	Pts        int64
	Cts        int64
	OriginDts  uint64

	// IsKeyframe h264为IDR；h265为IRAP(16~21)，其中只有IDR(19、20)开始新的GOP，
	// CRA、BLA为true但 GopId 不变
	IsKeyframe bool
	FirstInGop bool
	GopId      int
	Data       []byte
	Nalus      []Nalu
	Options    SampleOptions
}

// AudioSample
//
// Dts, Pts 单位毫秒，Data 为去掉adts头之后的raw aac frame
type AudioSample struct {
	Dts     int64
	Pts     int64
	Data    []byte
	Options SampleOptions
}

// Sei 从视频流中解析出来的一条SEI消息
type Sei struct {
	Dts         int64 // 所属视频sample的dts，单位毫秒
	Codec       string
	NaluType    uint8
	PayloadType uint32
	PayloadSize uint32
	Uuid        []byte // payload type 5 (user_data_unregistered) 时有效
	Payload     []byte // 去掉uuid之后的内容
}
