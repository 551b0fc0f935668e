// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// MetricsNamespace prometheus指标的namespace
const MetricsNamespace = "hlsts"

// 文件输入切片时，强制切割的包数是最小包数的倍数
const maxFragmentPacketNumFactor = 4
