// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/hlsts/pkg/base"
)

// PesAssembler 将属于同一个PES的多个ts负载组织在一起
//
// payload_unit_start_indicator为1并且以0x000001开头的负载开启一个新的PES，
// 其余负载追加到该pid当前的PES上，pid还没有PES时丢弃
type PesAssembler struct {
	current map[uint16]*Pes
	entries []*Pes

	droppedCount int
}

func NewPesAssembler() *PesAssembler {
	return &PesAssembler{
		current: make(map[uint16]*Pes),
	}
}

// Feed
//
// @param ppe: 该pid在PMT中的描述
//
// 注意，payload不做拷贝，调用方在 Entries 使用完之前需保证其有效
func (a *PesAssembler) Feed(ppe PmtProgramElement, pusi bool, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	if pusi && HasPesStartCode(payload) {
		pes, err := ParsePes(payload)
		if err != nil {
			return err
		}
		pes.Pid = ppe.Pid
		pes.StreamType = ppe.StreamType
		_, pes.Codec = StreamTypeInfo(ppe.StreamType)

		if pes.Kind == MediaTypeAudio && IsAacStreamType(ppe.StreamType) {
			es := pes.Pieces[0].Es()
			if len(es) >= 2 && !(es[0] == 0xFF && es[1]&0xF0 == 0xF0) {
				return base.NewErrAdtsSync(es[:2])
			}
		}

		p := &pes
		a.current[ppe.Pid] = p
		a.entries = append(a.entries, p)
		return nil
	}

	p, ok := a.current[ppe.Pid]
	if !ok {
		a.droppedCount++
		return nil
	}
	p.Pieces = append(p.Pieces, EsPiece{Data: payload})
	return nil
}

// Entries 所有PES，按到达顺序
func (a *PesAssembler) Entries() []*Pes {
	return a.entries
}

// DroppedCount 因为pid上还没有PES而被丢弃的负载个数
func (a *PesAssembler) DroppedCount() int {
	return a.droppedCount
}

func (a *PesAssembler) Reset() {
	a.current = make(map[uint16]*Pes)
	a.entries = nil
	a.droppedCount = 0
}

// MergeVideo 拼接所有负载的ES部分，不包含PES头
func MergeVideo(pes *Pes) []byte {
	n := 0
	for _, p := range pes.Pieces {
		n += len(p.Data) - p.Pos
	}
	out := make([]byte, 0, n)
	for _, p := range pes.Pieces {
		out = append(out, p.Es()...)
	}
	return out
}

// MergeAudio 原样拼接所有负载，包含PES头
//
// 使用方需要跳过 AudioEsOffset 个字节
func MergeAudio(pes *Pes) []byte {
	n := 0
	for _, p := range pes.Pieces {
		n += len(p.Data)
	}
	out := make([]byte, 0, n)
	for _, p := range pes.Pieces {
		out = append(out, p.Data...)
	}
	return out
}

// AudioEsOffset MergeAudio 结果中ES开始的位置
func AudioEsOffset(pes *Pes) int {
	return int(pes.HeaderDataLength) + 9
}
