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
	"github.com/q191201771/naza/pkg/nazalog"
)

var Log = nazalog.GetGlobalLogger()

func NewErrAvccLength(need, actual int) error {
	return fmt.Errorf("%w. avcc nalu length out of range. need=%d, actual=%d", base.ErrH2645, need, actual)
}
