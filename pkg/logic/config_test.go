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
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/q191201771/hlsts/pkg/aac"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/logic"
	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/naza/pkg/nazalog"
)

func writeConf(t *testing.T, name string, content string) string {
	filename := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestLoadConfJson(t *testing.T) {
	filename := writeConf(t, "hlsts.conf.json", fmt.Sprintf(`{
  "log": {
    "level": %d,
    "is_to_stdout": false
  },
  "demux": {
    "decoder_profile": "lc",
    "is_vod": true,
    "fragment_packet_num": 1024
  },
  "srt": {
    "port": 7001
  }
}`, nazalog.LevelWarn))
	config, err := logic.LoadConf(filename)
	assert.Equal(t, nil, err)
	assert.Equal(t, nazalog.LevelWarn, config.Log.Level)
	assert.Equal(t, false, config.Log.IsToStdout)
	assert.Equal(t, "./logs/hlsts.log", config.Log.Filename)
	assert.Equal(t, true, config.Log.IsRotateDaily)
	assert.Equal(t, "lc", config.Demux.DecoderProfile)
	assert.Equal(t, aac.DecoderProfileLc, config.DecoderProfile())
	assert.Equal(t, true, config.Demux.IsVod)
	assert.Equal(t, false, config.Demux.CheckCrc)
	assert.Equal(t, 1024, config.Demux.FragmentPacketNum)
	assert.Equal(t, "0.0.0.0", config.Srt.Addr)
	assert.Equal(t, uint16(7001), config.Srt.Port)
	assert.Equal(t, 120, config.Srt.Latency)
	assert.Equal(t, false, config.Metrics.Enable)
	assert.Equal(t, ":8084", config.Metrics.Addr)
	assert.Equal(t, base.ConfVersion, config.ConfVersion)
}

func TestLoadConfToml(t *testing.T) {
	filename := writeConf(t, "hlsts.conf.toml", fmt.Sprintf(`
[log]
level = %d
filename = "/tmp/hlsts.log"

[demux]
decoder_profile = "sbr_high_rate_only"
check_crc = true

[srt]
addr = "127.0.0.1"
latency = 200
record_filename = "/tmp/record.ts"

[metrics]
enable = true
addr = ":9100"
`, nazalog.LevelInfo))
	config, err := logic.LoadConf(filename)
	assert.Equal(t, nil, err)
	assert.Equal(t, nazalog.LevelInfo, config.Log.Level)
	assert.Equal(t, "/tmp/hlsts.log", config.Log.Filename)
	assert.Equal(t, true, config.Log.IsToStdout)
	assert.Equal(t, aac.DecoderProfileSbrHighRateOnly, config.DecoderProfile())
	assert.Equal(t, true, config.Demux.CheckCrc)
	assert.Equal(t, false, config.Demux.IsVod)
	assert.Equal(t, 0, config.Demux.FragmentPacketNum)
	assert.Equal(t, "127.0.0.1", config.Srt.Addr)
	assert.Equal(t, uint16(6001), config.Srt.Port)
	assert.Equal(t, 200, config.Srt.Latency)
	assert.Equal(t, "/tmp/record.ts", config.Srt.RecordFilename)
	assert.Equal(t, true, config.Metrics.Enable)
	assert.Equal(t, ":9100", config.Metrics.Addr)
}

func TestLoadConfInvalid(t *testing.T) {
	filename := writeConf(t, "bad.conf.json", `{"demux": {"decoder_profile": "he-aac-v3"}}`)
	_, err := logic.LoadConf(filename)
	assert.Equal(t, true, errors.Is(err, base.ErrConfig))

	filename = writeConf(t, "bad.conf.toml", `
[demux]
fragment_packet_num = -1
`)
	_, err = logic.LoadConf(filename)
	assert.Equal(t, true, errors.Is(err, base.ErrConfig))

	filename = writeConf(t, "broken.conf.json", `{"demux": `)
	_, err = logic.LoadConf(filename)
	assert.IsNotNil(t, err)

	_, err = logic.LoadConf(filepath.Join(t.TempDir(), "not_exist.conf.json"))
	assert.IsNotNil(t, err)
}
