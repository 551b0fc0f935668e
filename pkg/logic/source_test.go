// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic_test

import (
	"errors"
	"testing"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/logic"
	"github.com/q191201771/hlsts/pkg/mpegts"
	"github.com/q191201771/naza/pkg/assert"
)

func TestFileSourceWholeFile(t *testing.T) {
	f0 := makeAudioFragment(1000)
	f1 := makeAudioFragment(2000)
	filenames := writeTempFiles(t, f0, f1)

	s := logic.NewFileSource(filenames, 0)
	var frags []fragRecord
	err := s.RunLoop(collectFrags(&frags))
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(frags))
	assert.Equal(t, 0, frags[0].frag.Id)
	assert.Equal(t, filenames[0], frags[0].frag.Url)
	assert.Equal(t, len(f0), frags[0].size)
	assert.Equal(t, 1, frags[1].frag.Id)
	assert.Equal(t, filenames[1], frags[1].frag.Url)
}

func TestFileSourceCut(t *testing.T) {
	var b []byte
	for i := 0; i < 3; i++ {
		b = append(b, makeAudioFragment(uint64(i)*1000)...)
	}
	unitPacketNum := len(makeAudioFragment(0)) / mpegts.TsPacketSize
	filenames := writeTempFiles(t, b)

	s := logic.NewFileSource(filenames, unitPacketNum)
	var frags []fragRecord
	err := s.RunLoop(collectFrags(&frags))
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(frags))
	for i, f := range frags {
		assert.Equal(t, i, f.frag.Id)
		assert.Equal(t, unitPacketNum*mpegts.TsPacketSize, f.size)
	}
	assert.Equal(t, filenames[0]+"#2", frags[2].frag.Url)
}

func TestFileSourceStop(t *testing.T) {
	filenames := writeTempFiles(t, makeAudioFragment(0), makeAudioFragment(1000))

	stopErr := errors.New("stop")
	s := logic.NewFileSource(filenames, 0)
	n := 0
	err := s.RunLoop(func(frag *base.FragInfo, b []byte) error {
		n++
		return stopErr
	})
	assert.Equal(t, stopErr, err)
	assert.Equal(t, 1, n)

	s = logic.NewFileSource(filenames, 0)
	assert.Equal(t, nil, s.Dispose())
	err = s.RunLoop(func(frag *base.FragInfo, b []byte) error {
		return nil
	})
	assert.Equal(t, true, errors.Is(err, base.ErrSourceDisposed))

	s = logic.NewFileSource([]string{filenames[0] + ".not_exist"}, 0)
	err = s.RunLoop(func(frag *base.FragInfo, b []byte) error {
		return nil
	})
	assert.IsNotNil(t, err)
}
