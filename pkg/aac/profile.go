// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package aac

import (
	"fmt"
	"strings"

	"github.com/q191201771/hlsts/pkg/base"
)

// DecoderProfile 下游aac解码器的能力，决定生成的asc使用SBR(object type 5)还是LC(object type 2)
type DecoderProfile int

const (
	// DecoderProfileSbr 默认。总是声明SBR，除了采样率索引小于6的单声道流
	DecoderProfileSbr DecoderProfile = iota

	// DecoderProfileSbrHighRateOnly 只有采样率索引大于等于6（24000及以下）时声明SBR
	DecoderProfileSbrHighRateOnly

	// DecoderProfileLc 总是声明LC，asc为2字节
	DecoderProfileLc
)

func (p DecoderProfile) ReadableString() string {
	switch p {
	case DecoderProfileSbr:
		return "sbr"
	case DecoderProfileSbrHighRateOnly:
		return "sbr_high_rate_only"
	case DecoderProfileLc:
		return "lc"
	}
	return "unknown"
}

// ParseDecoderProfile 配置文件中的名字转换为 DecoderProfile，空字符串对应默认值
func ParseDecoderProfile(s string) (DecoderProfile, error) {
	switch strings.ToLower(s) {
	case "", "sbr":
		return DecoderProfileSbr, nil
	case "sbr_high_rate_only":
		return DecoderProfileSbrHighRateOnly, nil
	case "lc":
		return DecoderProfileLc, nil
	}
	return DecoderProfileSbr, fmt.Errorf("%w. profile=%s", base.ErrUnknownProfile, s)
}

// MakeNormalizedConfig 根据解码器能力，重写object type并生成asc
//
// object type为5时asc为4字节，包含扩展采样率索引，否则为2字节
//
// @return objectType: 重写后的object type
// @return config:     内存块为独立新申请
//
func MakeNormalizedConfig(profile DecoderProfile, samplingFrequencyIndex uint8, channelConfiguration uint8) (objectType uint8, config []byte) {
	var extensionIndex uint8
	switch profile {
	case DecoderProfileSbrHighRateOnly:
		if samplingFrequencyIndex >= 6 {
			objectType = AudioObjectTypeSbr
			extensionIndex = samplingFrequencyIndex - 3
		} else {
			objectType = AudioObjectTypeAacLc
			extensionIndex = samplingFrequencyIndex
		}
	case DecoderProfileLc:
		objectType = AudioObjectTypeAacLc
		extensionIndex = samplingFrequencyIndex
	default:
		objectType = AudioObjectTypeSbr
		if samplingFrequencyIndex >= 6 {
			extensionIndex = samplingFrequencyIndex - 3
		} else {
			if channelConfiguration == 1 {
				objectType = AudioObjectTypeAacLc
			}
			extensionIndex = samplingFrequencyIndex
		}
	}

	// <ISO_IEC_14496-3.pdf>
	// <1.6.2.1 AudioSpecificConfig>
	// ---------------------------------
	// audioObjectType                 [5b]
	// samplingFrequencyIndex          [4b]
	// channelConfiguration            [4b]
	// ---------------------------------  object type 5 only
	// extensionSamplingFrequencyIndex [4b]
	// audioObjectType                 [5b] 2=AAC LC
	// padding                         [3b]
	if objectType == AudioObjectTypeSbr {
		config = make([]byte, 4)
	} else {
		config = make([]byte, 2)
	}
	config[0] = objectType<<3 | (samplingFrequencyIndex&0x0E)>>1
	config[1] = (samplingFrequencyIndex&0x01)<<7 | channelConfiguration<<3
	if objectType == AudioObjectTypeSbr {
		config[1] |= (extensionIndex & 0x0E) >> 1
		config[2] = (extensionIndex&0x01)<<7 | AudioObjectTypeAacLc<<2
		config[3] = 0
	}
	return
}
