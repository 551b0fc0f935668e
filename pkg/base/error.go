// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var (
	ErrShortBuffer  = errors.New("hlsts: buffer too short")
	ErrFileNotExist = errors.New("hlsts: file not exist")
)

func NewErrShortBuffer(need, actual int, msg string) error {
	return fmt.Errorf("%w. need=%d, actual=%d, msg=%s", ErrShortBuffer, need, actual, msg)
}

// ----- pkg/aac -------------------------------------------------------------------------------------------------------

var (
	ErrAac                    = errors.New("hlsts.aac: fxxk")
	ErrAdtsSync               = errors.New("hlsts.aac: adts sync word not found")
	ErrSamplingFrequencyIndex = errors.New("hlsts.aac: invalid sampling frequency index")
	ErrUnknownProfile         = errors.New("hlsts.aac: unknown decoder profile")
)

func NewErrAdtsSync(b []byte) error {
	return fmt.Errorf("%w. head=%x", ErrAdtsSync, b)
}

// ----- pkg/avc -------------------------------------------------------------------------------------------------------

var ErrAvc = errors.New("hlsts.avc: fxxk")

// ----- pkg/hevc ------------------------------------------------------------------------------------------------------

var ErrHevc = errors.New("hlsts.hevc: fxxk")

// ----- pkg/h2645 -----------------------------------------------------------------------------------------------------

var ErrH2645 = errors.New("hlsts.h2645: fxxk")

// ----- pkg/mpegts ----------------------------------------------------------------------------------------------------

var (
	ErrMpegts       = errors.New("hlsts.mpegts: fxxk")
	ErrSyncByte     = errors.New("hlsts.mpegts: sync byte mismatch")
	ErrPsiCrc       = errors.New("hlsts.mpegts: psi crc32 mismatch")
	ErrPesFormat    = errors.New("hlsts.mpegts: pes format not supported")
	ErrPesExtension = errors.New("hlsts.mpegts: pes extension not supported")
	ErrDsmTrickMode = errors.New("hlsts.mpegts: dsm trick mode not supported")
)

func NewErrPesFormat(streamId uint8, marker uint8) error {
	return fmt.Errorf("%w. stream_id=0x%02x, marker=%d", ErrPesFormat, streamId, marker)
}

func NewErrPsiCrc(tableId uint8, expected, actual uint32) error {
	return fmt.Errorf("%w. table_id=%d, expected=0x%08x, actual=0x%08x", ErrPsiCrc, tableId, expected, actual)
}

// ----- pkg/tsdemux ---------------------------------------------------------------------------------------------------

var ErrDemuxerDestroyed = errors.New("hlsts.tsdemux: demuxer already destroyed")

// ----- pkg/logic -----------------------------------------------------------------------------------------------------

var (
	ErrConfig          = errors.New("hlsts.logic: invalid config")
	ErrSourceDisposed  = errors.New("hlsts.logic: source already disposed")
	ErrProbeNoPrograms = errors.New("hlsts.logic: probe found no program")
)

// ---------------------------------------------------------------------------------------------------------------------

// IsFormatError 格式错误会终止本次demux调用，调用方应跳过该分片而不是原样重试
func IsFormatError(err error) bool {
	return errors.Is(err, ErrPesFormat) ||
		errors.Is(err, ErrPesExtension) ||
		errors.Is(err, ErrDsmTrickMode) ||
		errors.Is(err, ErrAdtsSync)
}
