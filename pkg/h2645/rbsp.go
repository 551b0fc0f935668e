// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package h2645

import (
	"github.com/q191201771/naza/pkg/nazabits"
	"github.com/q191201771/naza/pkg/nazaerrors"
)

// EbspToRbsp 去掉防竞争字节，即 0x000003 中的 0x03
//
// 没有防竞争字节时直接返回b
func EbspToRbsp(b []byte) []byte {
	found := false
	for i := 0; i+2 < len(b); i++ {
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 3 {
			found = true
			break
		}
	}
	if !found {
		return b
	}

	out := make([]byte, 0, len(b))
	zeros := 0
	for i := 0; i < len(b); i++ {
		if zeros >= 2 && b[i] == 3 {
			zeros = 0
			continue
		}
		out = append(out, b[i])
		if b[i] == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// ReadSignedGolomb se(v)
func ReadSignedGolomb(br *nazabits.BitReader) (int32, error) {
	v, err := br.ReadGolomb()
	if err != nil {
		return 0, nazaerrors.Wrap(err)
	}
	if v&1 == 1 {
		return int32((v + 1) / 2), nil
	}
	return -int32(v / 2), nil
}

// SkipScalingList scaling_list()，只跳过，不保存
//
// <ISO-14496-10.pdf> <7.3.2.1.1.1 Scaling list syntax>
func SkipScalingList(br *nazabits.BitReader, size int) error {
	lastScale := int32(8)
	nextScale := int32(8)
	for j := 0; j < size; j++ {
		if nextScale != 0 {
			delta, err := ReadSignedGolomb(br)
			if err != nil {
				return err
			}
			nextScale = (lastScale + delta + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

// RbspReader 对 nazabits.BitReader 的简单封装
//
// 出错后，后续所有读取都直接返回0，调用方在一组字段读取完成后通过 Err 判断一次即可
type RbspReader struct {
	br  nazabits.BitReader
	err error
}

func NewRbspReader(rbsp []byte) *RbspReader {
	return &RbspReader{
		br: nazabits.NewBitReader(rbsp),
	}
}

// U u(n)，n最大为32
func (r *RbspReader) U(n uint) uint32 {
	if r.err != nil || n == 0 {
		return 0
	}
	v, err := r.br.ReadBits32(n)
	if err != nil {
		r.err = nazaerrors.Wrap(err)
		return 0
	}
	return v
}

func (r *RbspReader) U8(n uint) uint8 {
	return uint8(r.U(n))
}

func (r *RbspReader) Flag() bool {
	return r.U(1) == 1
}

// Ue ue(v)
func (r *RbspReader) Ue() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.br.ReadGolomb()
	if err != nil {
		r.err = nazaerrors.Wrap(err)
		return 0
	}
	return v
}

// Se se(v)
func (r *RbspReader) Se() int32 {
	if r.err != nil {
		return 0
	}
	v, err := ReadSignedGolomb(&r.br)
	if err != nil {
		r.err = err
		return 0
	}
	return v
}

func (r *RbspReader) Skip(n uint) {
	if r.err != nil || n == 0 {
		return
	}
	if err := r.br.SkipBits(n); err != nil {
		r.err = nazaerrors.Wrap(err)
	}
}

func (r *RbspReader) SkipScalingList(size int) {
	if r.err != nil {
		return
	}
	if err := SkipScalingList(&r.br, size); err != nil {
		r.err = err
	}
}

func (r *RbspReader) Err() error {
	return r.err
}
