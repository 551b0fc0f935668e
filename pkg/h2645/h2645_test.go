// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package h2645_test

import (
	"errors"
	"testing"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/h2645"
	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/naza/pkg/nazabits"
)

func TestSplitNaluAnnexb(t *testing.T) {
	golden := []struct {
		in  []byte
		out [][]byte
	}{
		{nil, nil},
		{[]byte{0, 0, 1}, nil},
		{[]byte{0, 0, 0, 1, 0x67, 1, 2}, [][]byte{{0x67, 1, 2}}},
		{[]byte{0, 0, 1, 0x67, 1, 0, 0, 1, 0x68, 2, 0, 0, 0, 1, 0x65, 3, 4}, [][]byte{{0x67, 1}, {0x68, 2}, {0x65, 3, 4}}},
		// 起始码之前的数据被丢弃
		{[]byte{9, 9, 0, 0, 1, 0x09, 0xF0}, [][]byte{{0x09, 0xF0}}},
		// body中的 0x000003 不是起始码
		{[]byte{0, 0, 1, 0x06, 0, 0, 3, 1, 0x80}, [][]byte{{0x06, 0, 0, 3, 1, 0x80}}},
	}
	for _, item := range golden {
		out := h2645.SplitNaluAnnexb(item.in)
		assert.Equal(t, len(item.out), len(out))
		for i := range item.out {
			assert.Equal(t, item.out[i], out[i])
		}
	}
}

func TestJoinNaluAvcc(t *testing.T) {
	assert.Equal(t, nil, h2645.JoinNaluAvcc())
	b := h2645.JoinNaluAvcc([]byte{0x65, 1, 2}, []byte{0x41})
	assert.Equal(t, []byte{0, 0, 0, 3, 0x65, 1, 2, 0, 0, 0, 1, 0x41}, b)

	var nals [][]byte
	err := h2645.IterateNaluAvcc(b, func(nal []byte) {
		nals = append(nals, nal)
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(nals))
	assert.Equal(t, []byte{0x41}, nals[1])

	err = h2645.IterateNaluAvcc(b[:len(b)-1], func(nal []byte) {})
	assert.Equal(t, true, errors.Is(err, base.ErrH2645))

	annexb := h2645.JoinNaluAnnexb([]byte{0x65, 1, 2}, []byte{0x41})
	assert.Equal(t, 2, len(h2645.SplitNaluAnnexb(annexb)))
}

func TestEbspToRbsp(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 3}, h2645.EbspToRbsp([]byte{1, 2, 3}))
	assert.Equal(t, []byte{0, 0, 1, 0, 0, 0}, h2645.EbspToRbsp([]byte{0, 0, 3, 1, 0, 0, 3, 0}))
	assert.Equal(t, []byte{0, 0, 0, 0}, h2645.EbspToRbsp([]byte{0, 0, 3, 0, 0}))
}

func TestReadSignedGolomb(t *testing.T) {
	// codeNum 0..4 -> 0, 1, -1, 2, -2
	// 1 010 011 00100 00101
	b := []byte{0xA6, 0x42, 0x80}
	br := nazabits.NewBitReader(b)
	for _, expected := range []int32{0, 1, -1, 2, -2} {
		v, err := h2645.ReadSignedGolomb(&br)
		assert.Equal(t, nil, err)
		assert.Equal(t, expected, v)
	}
}

func TestParseNaluType(t *testing.T) {
	assert.Equal(t, h2645.H264NaluTypeSps, h2645.ParseNaluType(true, 0x67))
	assert.Equal(t, h2645.H264NaluTypeIdrSlice, h2645.ParseNaluType(true, 0x65))
	assert.Equal(t, h2645.H265NaluTypeVps, h2645.ParseNaluType(false, 0x40))
	assert.Equal(t, h2645.H265NaluTypeSliceIdr, h2645.ParseNaluType(false, 0x26))
}

func TestParseSeiMessages(t *testing.T) {
	uuid := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	var rbsp []byte
	rbsp = append(rbsp, 5, 19)
	rbsp = append(rbsp, uuid...)
	rbsp = append(rbsp, 'a', 'b', 'c')
	rbsp = append(rbsp, 0xFF, 1, 2, 0x11, 0x22) // payload type 256
	rbsp = append(rbsp, 0x80)

	msgs, err := h2645.ParseSeiMessages(rbsp)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(msgs))
	assert.Equal(t, h2645.SeiPayloadTypeUserDataUnregistered, msgs[0].PayloadType)
	assert.Equal(t, uint32(19), msgs[0].PayloadSize)
	assert.Equal(t, uuid, msgs[0].Uuid)
	assert.Equal(t, []byte("abc"), msgs[0].Payload)
	assert.Equal(t, uint32(256), msgs[1].PayloadType)
	assert.Equal(t, []byte{0x11, 0x22}, msgs[1].Payload)
	assert.Equal(t, nil, msgs[1].Uuid)

	_, err = h2645.ParseSeiMessages([]byte{5, 30, 1, 2})
	assert.Equal(t, true, errors.Is(err, base.ErrH2645))
}
