// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"fmt"
	"os"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/mpegts"
	"github.com/q191201771/naza/pkg/nazaatomic"
)

// OnFragment 分片源每得到一个完整分片回调一次
//
// @param b: 回调结束后，分片源不再持有该内存块
//
// @return: 返回非nil时，分片源停止运行，RunLoop返回该错误
//
type OnFragment func(frag *base.FragInfo, b []byte) error

// IFragmentSource 分片来源，比如本地文件、srt直播流
type IFragmentSource interface {
	UniqueKey() string

	// RunLoop 阻塞直到数据源结束、出错或者被 Dispose
	RunLoop(onFragment OnFragment) error

	Dispose() error
}

// FileSource 本地ts文件作为分片来源
//
// FragmentPacketNum为0时每个文件是一个分片，否则把文件内容当作连续的ts流切割
type FileSource struct {
	uniqueKey string
	filenames []string
	packetNum int

	fragId   int
	disposed nazaatomic.Bool
}

func NewFileSource(filenames []string, packetNum int) *FileSource {
	uk := base.GenUkFileSource()
	Log.Infof("[%s] lifecycle new file source. files=%d, packet num=%d", uk, len(filenames), packetNum)
	return &FileSource{
		uniqueKey: uk,
		filenames: filenames,
		packetNum: packetNum,
	}
}

func (s *FileSource) UniqueKey() string {
	return s.uniqueKey
}

func (s *FileSource) RunLoop(onFragment OnFragment) error {
	for _, filename := range s.filenames {
		if s.disposed.Load() {
			return base.ErrSourceDisposed
		}

		b, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		Log.Debugf("[%s] read file. name=%s, size=%d", s.uniqueKey, filename, len(b))

		if s.packetNum <= 0 {
			if err = onFragment(s.nextFrag(filename, -1), b); err != nil {
				return err
			}
			continue
		}

		cutter := mpegts.NewFragmentCutter(s.packetNum, s.packetNum*maxFragmentPacketNumFactor)
		frags := cutter.Feed(b)
		if last := cutter.Flush(); last != nil {
			frags = append(frags, last)
		}
		for i, frag := range frags {
			if s.disposed.Load() {
				return base.ErrSourceDisposed
			}
			if err = onFragment(s.nextFrag(filename, i), frag); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *FileSource) Dispose() error {
	Log.Infof("[%s] lifecycle dispose file source.", s.uniqueKey)
	s.disposed.Store(true)
	return nil
}

// @param index: 文件被切割时分片在文件中的序号，-1表示整个文件
func (s *FileSource) nextFrag(filename string, index int) *base.FragInfo {
	frag := &base.FragInfo{
		Id:  s.fragId,
		Url: filename,
	}
	if index >= 0 {
		frag.Url = fmt.Sprintf("%s#%d", filename, index)
	}
	s.fragId++
	return frag
}
