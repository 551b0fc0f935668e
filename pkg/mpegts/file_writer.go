// Copyright 2019, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"fmt"
	"os"

	"github.com/q191201771/hlsts/pkg/base"
)

// FileWriter 将收到的ts数据原样落盘，比如把srt收到的直播流切成分片文件，便于离线复现问题
type FileWriter struct {
	fp *os.File

	written int
}

func (fw *FileWriter) Create(filename string) (err error) {
	fw.fp, err = os.Create(filename)
	fw.written = 0
	return
}

func (fw *FileWriter) Write(b []byte) (err error) {
	if fw.fp == nil {
		return fmt.Errorf("%w. file writer not created", base.ErrMpegts)
	}
	n, err := fw.fp.Write(b)
	fw.written += n
	return
}

func (fw *FileWriter) Dispose() error {
	if fw.fp == nil {
		return fmt.Errorf("%w. file writer not created", base.ErrMpegts)
	}
	err := fw.fp.Close()
	fw.fp = nil
	return err
}

func (fw *FileWriter) Name() string {
	if fw.fp == nil {
		return ""
	}
	return fw.fp.Name()
}

func (fw *FileWriter) Written() int {
	return fw.written
}
