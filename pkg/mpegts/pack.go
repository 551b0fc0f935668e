// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import "github.com/q191201771/naza/pkg/bele"

// Frame 一个PES包对应的帧数据，用于打包成ts包
//
// 解析端不依赖打包，这里用于构造测试分片以及回环验证
type Frame struct {
	Pts uint64 // 90kHz
	Dts uint64
	Cc  uint8  // 上一个ts包的continuity_counter，Pack时先自增再写入

	Pid uint16 // PidAudio 或 PidVideo
	Sid uint8  // PES头中的stream_id，StreamIdAudio 或 StreamIdVideo

	// 为true时，首个ts包携带adaptation，设置random_access_indicator以及PCR(=Dts)
	Key bool

	// 音频为ADTS帧，可以是多帧；视频为Annexb
	Raw []byte
}

// Pack 把 Frame.Raw 打包成一个PES包，再切成若干个ts包
//
// 最后一个ts包剩余的空间通过adaptation field填充0xFF。
// Raw为空时返回nil。
//
// @return: 新申请的内存块
func (frame *Frame) Pack() []byte {
	if len(frame.Raw) == 0 {
		return nil
	}

	payload := frame.packPesHeader(len(frame.Raw))
	payload = append(payload, frame.Raw...)

	out := make([]byte, 0, (len(payload)/(TsPacketSize-4)+2)*TsPacketSize)
	for pos := 0; pos < len(payload); {
		first := pos == 0
		frame.Cc++

		out = append(out, make([]byte, TsPacketSize)...)
		packet := out[len(out)-TsPacketSize:]

		packet[0] = syncByte
		packet[1] = uint8(frame.Pid>>8) & 0x1F
		if first {
			packet[1] |= 0x40 // payload_unit_start_indicator
		}
		packet[2] = uint8(frame.Pid)
		packet[3] = 0x10 | (frame.Cc & 0x0F) // 有payload

		// adaptation field中长度字节之后的内容
		var af []byte
		if first && frame.Key {
			af = make([]byte, 7)
			af[0] = 0x50 // random_access_indicator, PCR_flag
			packPcr(af[1:], frame.Dts)
		}

		room := TsPacketSize - 4
		if af != nil {
			room -= 1 + len(af)
		}
		if remain := len(payload) - pos; remain < room {
			stuffing := room - remain
			if af == nil {
				// 长度字节本身占1字节，如果还有空间，flags字节写0
				af = make([]byte, 0, stuffing)
				stuffing--
				if stuffing > 0 {
					af = append(af, 0)
					stuffing--
				}
			}
			for ; stuffing > 0; stuffing-- {
				af = append(af, 0xFF)
			}
		}

		wpos := 4
		if af != nil {
			packet[3] |= 0x20
			packet[4] = uint8(len(af))
			copy(packet[5:], af)
			wpos += 1 + len(af)
		}
		pos += copy(packet[wpos:], payload[pos:])
	}
	return out
}

// PackProgramTables 打包PAT和PMT两个ts包，节目号为1，pmt pid为 PidPmt
//
// 第一个element的pid作为PCR_PID
func PackProgramTables(elements []PsiPmtElement) []byte {
	var pcrPid uint16
	if len(elements) > 0 {
		pcrPid = elements[0].Pid
	}
	out := NewPatSection(1, []PatProgramElement{{ProgramNumber: 1, ProgramMapPid: PidPmt}}).PackPacket(PidPat, 0)
	pmt := NewPmtSection(1, PsiPmtData{PcrPid: pcrPid, Elements: elements}).PackPacket(PidPmt, 0)
	return append(out, pmt...)
}

// ----- private -------------------------------------------------------------------------------------------------------

// packPesHeader 只写PTS，Dts与Pts不同时再写DTS，其他可选字段都不写
//
// [24b] packet_start_code_prefix
// [8b]  stream_id
// [16b] PES_packet_length, 超过16位时写0
// [8b]  '10' + 其他标志为0
// [8b]  PTS_DTS_flags + 其他标志为0
// [8b]  PES_header_data_length
// [40b] PTS
// [40b] DTS
func (frame *Frame) packPesHeader(esLen int) []byte {
	flags := uint8(0x80)
	headerDataLength := 5
	if frame.Dts != frame.Pts {
		flags |= 0x40
		headerDataLength += 5
	}

	h := make([]byte, 9+headerDataLength, 9+headerDataLength+esLen)
	h[2] = 0x01
	h[3] = frame.Sid
	if pesLength := 3 + headerDataLength + esLen; pesLength <= 0xFFFF {
		bele.BePutUint16(h[4:], uint16(pesLength))
	}
	h[6] = 0x80
	h[7] = flags
	h[8] = uint8(headerDataLength)
	packPts(h[9:], flags>>6, frame.Pts)
	if flags&0x40 != 0 {
		packPts(h[14:], 1, frame.Dts)
	}
	return h
}

func packPcr(out []byte, pcr uint64) {
	out[0] = uint8(pcr >> 25)
	out[1] = uint8(pcr >> 17)
	out[2] = uint8(pcr >> 9)
	out[3] = uint8(pcr >> 1)
	out[4] = uint8(pcr<<7) | 0x7e
	out[5] = 0
}

// packPts PTS和DTS共用，fb为高4位的前缀
func packPts(out []byte, fb uint8, pts uint64) {
	out[0] = (fb << 4) | (uint8(pts>>29) & 0x0E) | 1
	bele.BePutUint16(out[1:], uint16(((pts>>15)&0x7FFF)<<1|1))
	bele.BePutUint16(out[3:], uint16((pts&0x7FFF)<<1|1))
}
