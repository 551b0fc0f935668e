// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package srt

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// 一次读取的大小，srt live模式下每个数据包最多7个ts包
const readBufSize = 1316

// 读协程和分片协程之间的缓冲数量
const chunkChanSize = 1024

// 配置中没有指定时，每个分片最少包含的ts包数量，约192KB
const defaultFragmentPacketNum = 1024

// 强制切割的包数是最小包数的倍数
const maxFragmentPacketNumFactor = 4
