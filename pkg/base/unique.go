// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/unique"

const (
	UkPreTsDemuxer  = "TSDEMUX"
	UkPreSrtSource  = "SRTSOURCE"
	UkPreFileSource = "FILESOURCE"
)

func GenUkTsDemuxer() string {
	return siUkTsDemuxer.GenUniqueKey()
}

func GenUkSrtSource() string {
	return siUkSrtSource.GenUniqueKey()
}

func GenUkFileSource() string {
	return siUkFileSource.GenUniqueKey()
}

var (
	siUkTsDemuxer  *unique.SingleGenerator
	siUkSrtSource  *unique.SingleGenerator
	siUkFileSource *unique.SingleGenerator
)

func init() {
	siUkTsDemuxer = unique.NewSingleGenerator(UkPreTsDemuxer)
	siUkSrtSource = unique.NewSingleGenerator(UkPreSrtSource)
	siUkFileSource = unique.NewSingleGenerator(UkPreFileSource)
}
