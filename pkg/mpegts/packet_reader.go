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

// OnResync
//
// @param offset:  丢失同步的位置
// @param skipped: 为了重新找到0x47跳过的字节数
type OnResync func(offset int, skipped int)

// PacketReader 按188字节切分一个ts分片
//
// 遇到sync byte不匹配时，逐字节向后寻找下一个0x47，然后继续按188字节切分。
// 剩余不足188字节时结束，不算错误。
type PacketReader struct {
	b   []byte
	pos int

	onResync OnResync
	dump     base.LogDump

	packetCount  int
	resyncCount  int
	skippedBytes int
	badCount     int
}

func NewPacketReader(b []byte) *PacketReader {
	return &PacketReader{
		b:    b,
		dump: base.NewLogDump(Log, base.MpegtsPacketDumpMaxNum),
	}
}

func (r *PacketReader) WithOnResync(onResync OnResync) *PacketReader {
	r.onResync = onResync
	return r
}

// Next
//
// @return ok: false表示已经没有完整的ts包了
//
// 注意，返回的 TsPacket 中的切片引用输入内存块，不做拷贝
func (r *PacketReader) Next() (pkt TsPacket, ok bool) {
	for {
		if len(r.b)-r.pos < TsPacketSize {
			return pkt, false
		}

		if r.b[r.pos] != syncByte {
			r.resync()
			continue
		}

		raw := r.b[r.pos : r.pos+TsPacketSize]
		r.pos += TsPacketSize

		var err error
		if pkt, err = ParseTsPacket(raw); err != nil {
			r.badCount++
			Log.Warnf("parse ts packet failed, skip it. offset=%d, err=%+v", r.pos-TsPacketSize, err)
			r.dump.DumpPrefix("bad ts packet", raw, 32)
			continue
		}
		r.packetCount++
		return pkt, true
	}
}

// Pos 下一个待读取的字节位置
func (r *PacketReader) Pos() int {
	return r.pos
}

func (r *PacketReader) PacketCount() int {
	return r.packetCount
}

func (r *PacketReader) ResyncCount() int {
	return r.resyncCount
}

func (r *PacketReader) SkippedBytes() int {
	return r.skippedBytes
}

func (r *PacketReader) BadPacketCount() int {
	return r.badCount
}

// ----- private -------------------------------------------------------------------------------------------------------

func (r *PacketReader) resync() {
	start := r.pos
	Log.Warnf("untrusted sync byte, try to recover. offset=%d, byte=0x%02x", start, r.b[start])
	r.dump.DumpPrefix("lost sync", r.b[start:], 16)

	r.pos++
	for r.pos < len(r.b) && r.b[r.pos] != syncByte {
		r.pos++
	}

	skipped := r.pos - start
	r.resyncCount++
	r.skippedBytes += skipped
	if r.onResync != nil {
		r.onResync(start, skipped)
	}
}
