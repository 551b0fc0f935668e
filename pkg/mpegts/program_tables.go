// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"fmt"
	"sort"

	"github.com/q191201771/hlsts/pkg/base"
)

type PidKind uint8

const (
	PidKindUnknown PidKind = iota
	PidKindPat
	PidKindCat
	PidKindTsdt
	PidKindNull
	PidKindPmt
	PidKindMedia
)

func (k PidKind) ReadableString() string {
	switch k {
	case PidKindPat:
		return "PAT"
	case PidKindCat:
		return "CAT"
	case PidKindTsdt:
		return "TSDT"
	case PidKindNull:
		return "NULL"
	case PidKindPmt:
		return "PMT"
	case PidKindMedia:
		return "MEDIA"
	}
	return "UNKNOWN"
}

// ProgramTables 记录一次会话中解析到的PAT、PMT、CAT
//
// 同一个pid重复出现时覆盖，不会无限增长
type ProgramTables struct {
	checkCrc bool

	programs map[uint16]PatProgramElement // key: pmt pid
	streams  map[uint16]PmtProgramElement // key: elementary pid
	caPids   map[uint16]CaDescriptor      // key: ca pid

	crcErrCount int
}

func NewProgramTables(checkCrc bool) *ProgramTables {
	pt := &ProgramTables{
		checkCrc: checkCrc,
	}
	pt.Reset()
	return pt
}

// Classify 判断pid属于哪种数据
//
// @return ppe: 只在 PidKindMedia 时有效
func (pt *ProgramTables) Classify(pid uint16) (kind PidKind, ppe PmtProgramElement) {
	switch pid {
	case PidPat:
		return PidKindPat, ppe
	case PidCat:
		return PidKindCat, ppe
	case PidTsdt:
		return PidKindTsdt, ppe
	case PidNull:
		return PidKindNull, ppe
	}
	if _, ok := pt.programs[pid]; ok {
		return PidKindPmt, ppe
	}
	if ppe, ok := pt.streams[pid]; ok {
		return PidKindMedia, ppe
	}
	return PidKindUnknown, ppe
}

// FeedPsi 处理PAT、PMT、CAT的ts包负载
//
// 只处理payload_unit_start_indicator为1的包，section需要在一个ts包内完整
//
// @return: crc校验失败时返回 base.ErrPsiCrc ，此时该section被丢弃
func (pt *ProgramTables) FeedPsi(kind PidKind, payload []byte) error {
	section, err := sectionFromPayload(payload)
	if err != nil {
		return err
	}

	if pt.checkCrc {
		if ok, expected, actual := VerifySectionCrc32(section); !ok {
			pt.crcErrCount++
			return base.NewErrPsiCrc(section[0], expected, actual)
		}
	}

	switch kind {
	case PidKindPat:
		pat, err := ParsePat(section)
		if err != nil {
			return err
		}
		for _, ppe := range pat.ProgramElements {
			if ppe.IsNetwork() {
				continue
			}
			pt.programs[ppe.ProgramMapPid] = ppe
		}
	case PidKindPmt:
		pmt, err := ParsePmt(section)
		if err != nil {
			return err
		}
		for _, ppe := range pmt.ProgramElements {
			pt.streams[ppe.Pid] = ppe
		}
	case PidKindCat:
		cat, err := ParseCat(section)
		if err != nil {
			return err
		}
		for _, d := range cat.CaDescriptors {
			pt.caPids[d.CaPid] = d
		}
	default:
		return fmt.Errorf("%w. not a psi pid kind. kind=%s", base.ErrMpegts, kind.ReadableString())
	}
	return nil
}

// Programs 按pmt pid升序
func (pt *ProgramTables) Programs() []PatProgramElement {
	out := make([]PatProgramElement, 0, len(pt.programs))
	for _, v := range pt.programs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProgramMapPid < out[j].ProgramMapPid
	})
	return out
}

// Streams 按elementary pid升序
func (pt *ProgramTables) Streams() []PmtProgramElement {
	out := make([]PmtProgramElement, 0, len(pt.streams))
	for _, v := range pt.streams {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pid < out[j].Pid
	})
	return out
}

func (pt *ProgramTables) CaDescriptors() []CaDescriptor {
	out := make([]CaDescriptor, 0, len(pt.caPids))
	for _, v := range pt.caPids {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CaPid < out[j].CaPid
	})
	return out
}

func (pt *ProgramTables) CrcErrCount() int {
	return pt.crcErrCount
}

func (pt *ProgramTables) Reset() {
	pt.programs = make(map[uint16]PatProgramElement)
	pt.streams = make(map[uint16]PmtProgramElement)
	pt.caPids = make(map[uint16]CaDescriptor)
	pt.crcErrCount = 0
}

// ----- private -------------------------------------------------------------------------------------------------------

// sectionFromPayload 跳过pointer_field，并按section_length截取section（包含CRC）
func sectionFromPayload(payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return nil, base.NewErrShortBuffer(1, len(payload), "psi pointer field")
	}
	pos := 1 + int(payload[0])
	if len(payload) < pos+3 {
		return nil, base.NewErrShortBuffer(pos+3, len(payload), "psi section header")
	}
	sectionLength := int(payload[pos+1]&0x0F)<<8 | int(payload[pos+2])
	end := pos + 3 + sectionLength
	if len(payload) < end {
		return nil, base.NewErrShortBuffer(end, len(payload), "psi section")
	}
	return payload[pos:end], nil
}
