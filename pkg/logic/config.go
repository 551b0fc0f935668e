// Copyright 2019, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/q191201771/hlsts/pkg/aac"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/naza/pkg/nazajson"
	"github.com/q191201771/naza/pkg/nazalog"
)

// 配置文件支持json和toml两种格式，按文件扩展名区分，.toml为toml，其他都按json解析
//
// json格式缺失的字段用 nazajson.Exist 判断后填充默认值，toml格式先填充默认值再覆盖

type Config struct {
	ConfVersion string        `json:"conf_version" toml:"conf_version"`
	Log         LogConfig     `json:"log" toml:"log"`
	Demux       DemuxConfig   `json:"demux" toml:"demux"`
	Srt         SrtConfig     `json:"srt" toml:"srt"`
	Metrics     MetricsConfig `json:"metrics" toml:"metrics"`
}

type LogConfig struct {
	Level         nazalog.Level `json:"level" toml:"level"`
	Filename      string        `json:"filename" toml:"filename"`
	IsToStdout    bool          `json:"is_to_stdout" toml:"is_to_stdout"`
	IsRotateDaily bool          `json:"is_rotate_daily" toml:"is_rotate_daily"`
	ShortFileFlag bool          `json:"short_file_flag" toml:"short_file_flag"`
}

type DemuxConfig struct {
	DecoderProfile string `json:"decoder_profile" toml:"decoder_profile"` // sbr, sbr_high_rate_only, lc
	IsVod          bool   `json:"is_vod" toml:"is_vod"`
	CheckCrc       bool   `json:"check_crc" toml:"check_crc"`

	// FragmentPacketNum 连续ts流切片时，每个分片最少包含的ts包数量
	// 对于文件输入，为0表示一个文件就是一个分片
	FragmentPacketNum int `json:"fragment_packet_num" toml:"fragment_packet_num"`
}

type SrtConfig struct {
	Addr    string `json:"addr" toml:"addr"`
	Port    uint16 `json:"port" toml:"port"`
	Latency int    `json:"latency" toml:"latency"` // 单位毫秒

	// RecordFilename 不为空时，把收到的ts流原样写入该文件
	RecordFilename string `json:"record_filename" toml:"record_filename"`
}

type MetricsConfig struct {
	Enable bool   `json:"enable" toml:"enable"`
	Addr   string `json:"addr" toml:"addr"`
}

// DefaultConfig 所有配置项的默认值
func DefaultConfig() Config {
	return Config{
		ConfVersion: base.ConfVersion,
		Log: LogConfig{
			Level:         nazalog.LevelDebug,
			Filename:      "./logs/hlsts.log",
			IsToStdout:    true,
			IsRotateDaily: true,
			ShortFileFlag: true,
		},
		Demux: DemuxConfig{
			DecoderProfile:    aac.DecoderProfileSbr.ReadableString(),
			IsVod:             false,
			CheckCrc:          false,
			FragmentPacketNum: 0,
		},
		Srt: SrtConfig{
			Addr:    "0.0.0.0",
			Port:    6001,
			Latency: 120,
		},
		Metrics: MetricsConfig{
			Enable: false,
			Addr:   ":8084",
		},
	}
}

func LoadConf(confFile string) (*Config, error) {
	rawContent, err := os.ReadFile(confFile)
	if err != nil {
		return nil, err
	}

	var config *Config
	if strings.ToLower(filepath.Ext(confFile)) == ".toml" {
		config, err = parseTomlConf(rawContent)
	} else {
		config, err = parseJsonConf(rawContent)
	}
	if err != nil {
		return nil, err
	}

	if err = config.Check(); err != nil {
		return nil, err
	}
	return config, nil
}

// DecoderProfile 配置中的解码器能力名字转换为 aac.DecoderProfile
func (c *Config) DecoderProfile() aac.DecoderProfile {
	// 已经在Check中检查过
	profile, _ := aac.ParseDecoderProfile(c.Demux.DecoderProfile)
	return profile
}

// InitLog 使用配置中的日志参数初始化全局日志
func (c *Config) InitLog() error {
	return nazalog.Init(func(option *nazalog.Option) {
		option.Level = c.Log.Level
		option.Filename = c.Log.Filename
		option.IsToStdout = c.Log.IsToStdout
		option.IsRotateDaily = c.Log.IsRotateDaily
		option.ShortFileFlag = c.Log.ShortFileFlag
	})
}

// Check 检查配置项的合法性，命令行参数覆盖配置后需要再次检查
func (c *Config) Check() error {
	if _, err := aac.ParseDecoderProfile(c.Demux.DecoderProfile); err != nil {
		return fmt.Errorf("%w. %s", base.ErrConfig, err.Error())
	}
	if c.Demux.FragmentPacketNum < 0 {
		return fmt.Errorf("%w. fragment_packet_num=%d", base.ErrConfig, c.Demux.FragmentPacketNum)
	}
	if c.Srt.Latency < 0 {
		return fmt.Errorf("%w. srt.latency=%d", base.ErrConfig, c.Srt.Latency)
	}
	if c.Metrics.Enable && c.Metrics.Addr == "" {
		return fmt.Errorf("%w. metrics enabled without addr", base.ErrConfig)
	}
	return nil
}

func parseTomlConf(rawContent []byte) (*Config, error) {
	config := DefaultConfig()
	if err := toml.Unmarshal(rawContent, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func parseJsonConf(rawContent []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(rawContent, &config); err != nil {
		return nil, err
	}

	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, err
	}

	dc := DefaultConfig()
	if !j.Exist("conf_version") {
		config.ConfVersion = dc.ConfVersion
	}
	if !j.Exist("log.level") {
		config.Log.Level = dc.Log.Level
	}
	if !j.Exist("log.filename") {
		config.Log.Filename = dc.Log.Filename
	}
	if !j.Exist("log.is_to_stdout") {
		config.Log.IsToStdout = dc.Log.IsToStdout
	}
	if !j.Exist("log.is_rotate_daily") {
		config.Log.IsRotateDaily = dc.Log.IsRotateDaily
	}
	if !j.Exist("log.short_file_flag") {
		config.Log.ShortFileFlag = dc.Log.ShortFileFlag
	}
	if !j.Exist("demux.decoder_profile") {
		config.Demux.DecoderProfile = dc.Demux.DecoderProfile
	}
	if !j.Exist("srt.addr") {
		config.Srt.Addr = dc.Srt.Addr
	}
	if !j.Exist("srt.port") {
		config.Srt.Port = dc.Srt.Port
	}
	if !j.Exist("srt.latency") {
		config.Srt.Latency = dc.Srt.Latency
	}
	if !j.Exist("metrics.addr") {
		config.Metrics.Addr = dc.Metrics.Addr
	}
	return &config, nil
}
