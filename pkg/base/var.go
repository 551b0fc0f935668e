// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// ----- mpegts --------------------
var (
	// MpegtsPacketDumpMaxNum 日志级别为debug时，最多打印多少个出错ts包的内容
	MpegtsPacketDumpMaxNum = 8
)

// ----- tsdemux --------------------
var (
	// TsdemuxDefaultFpsNum, TsdemuxDefaultFpsDen sps中没有timing信息时使用的帧率
	TsdemuxDefaultFpsNum uint32 = 25
	TsdemuxDefaultFpsDen uint32 = 1
)
