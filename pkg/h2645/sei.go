// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package h2645

import (
	"fmt"

	"github.com/q191201771/hlsts/pkg/base"
)

const (
	SeiPayloadTypeBufferingPeriod      uint32 = 0
	SeiPayloadTypePicTiming            uint32 = 1
	SeiPayloadTypeUserDataRegistered   uint32 = 4
	SeiPayloadTypeUserDataUnregistered uint32 = 5

	SeiUuidLength = 16
)

// SeiMessage
//
// Uuid 只在 SeiPayloadTypeUserDataUnregistered 时有值，此时 Payload 不包含uuid
type SeiMessage struct {
	PayloadType uint32
	PayloadSize uint32
	Uuid        []byte
	Payload     []byte
}

// ParseSeiMessages 解析sei_rbsp中的所有sei_message
//
// @param rbsp: 已经去掉nal header和防竞争字节
//
// <ISO-14496-10.pdf> <7.3.2.3.1 Supplemental enhancement information message syntax>
func ParseSeiMessages(rbsp []byte) ([]SeiMessage, error) {
	var ret []SeiMessage
	pos := 0
	for pos < len(rbsp) {
		// rbsp_trailing_bits
		if pos == len(rbsp)-1 && rbsp[pos] == 0x80 {
			break
		}

		var msg SeiMessage
		var ok bool
		if msg.PayloadType, pos, ok = readSeiValue(rbsp, pos); !ok {
			return ret, fmt.Errorf("%w. read sei payload type failed. pos=%d", base.ErrH2645, pos)
		}
		if msg.PayloadSize, pos, ok = readSeiValue(rbsp, pos); !ok {
			return ret, fmt.Errorf("%w. read sei payload size failed. pos=%d", base.ErrH2645, pos)
		}
		end := pos + int(msg.PayloadSize)
		if end > len(rbsp) {
			return ret, fmt.Errorf("%w. sei payload out of range. type=%d, size=%d, remain=%d",
				base.ErrH2645, msg.PayloadType, msg.PayloadSize, len(rbsp)-pos)
		}
		msg.Payload = rbsp[pos:end]
		if msg.PayloadType == SeiPayloadTypeUserDataUnregistered && len(msg.Payload) >= SeiUuidLength {
			msg.Uuid = msg.Payload[:SeiUuidLength]
			msg.Payload = msg.Payload[SeiUuidLength:]
		}
		ret = append(ret, msg)
		pos = end
	}
	return ret, nil
}

// 0xFF表示后续还有，累加
func readSeiValue(b []byte, pos int) (v uint32, newPos int, ok bool) {
	for pos < len(b) {
		c := b[pos]
		pos++
		v += uint32(c)
		if c != 0xFF {
			return v, pos, true
		}
	}
	return v, pos, false
}
