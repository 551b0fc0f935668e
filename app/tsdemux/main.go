// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/logic"
	"github.com/q191201771/hlsts/pkg/srt"
	"github.com/q191201771/hlsts/pkg/tsdemux"
	"github.com/q191201771/naza/pkg/bininfo"
	"github.com/q191201771/naza/pkg/nazalog"
	"github.com/urfave/cli/v2"
)

// 全局参数
var (
	// confFile 配置文件，支持.json和.toml，不指定时使用默认配置
	confFile string

	// verbose 打印每个sample
	verbose bool

	globalFlags = []cli.Flag{
		&cli.StringFlag{
			Name:        "conf",
			Aliases:     []string{"c"},
			Usage:       "specify conf file, .json or .toml",
			Destination: &confFile,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Value:       false,
			Usage:       "log every sample",
			Destination: &verbose,
		},
	}
)

// 子命令参数
var (
	packetNum int
	isVod     bool
	profile   string

	srtAddr    string
	srtPort    uint
	srtLatency int
	srtRecord  string
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		nazalog.Errorf("run failed. err=%+v", err)
		base.OsExitAndWaitPressIfWindows(1)
	}
}

func newApp() *cli.App {
	// -v 打印bininfo
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "show bin info",
	}
	cli.VersionPrinter = func(c *cli.Context) {
		_, _ = fmt.Fprintln(os.Stderr, base.HlstsFullInfo)
		_, _ = fmt.Fprint(os.Stderr, bininfo.StringifyMultiLine())
	}

	demuxFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "aac decoder profile: sbr, sbr_high_rate_only, lc. override conf",
			Destination: &profile,
		},
		&cli.BoolFlag{
			Name:        "vod",
			Usage:       "treat fragments as vod. override conf",
			Destination: &isVod,
		},
		&cli.IntFlag{
			Name:        "packet-num",
			Aliases:     []string{"n"},
			Usage:       "cut input into fragments of at least n ts packets, 0 means one file one fragment. override conf",
			Destination: &packetNum,
		},
	}

	return &cli.App{
		Name:      "tsdemux",
		Usage:     "Demux hls mpegts fragments into audio/video samples and codec metadata.",
		UsageText: "tsdemux [global options] command [command options] [arguments...]",
		Version:   base.HlstsVersion,
		Flags:     globalFlags,
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "file",
				Aliases:   []string{"f"},
				Usage:     "Demux local ts files.",
				UsageText: "tsdemux file [-n 0] [--vod] [--profile sbr] a.ts b.ts ...",
				Flags:     demuxFlags,
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.ShowSubcommandHelp(c)
					}
					config, err := loadConf(c)
					if err != nil {
						return err
					}
					source := logic.NewFileSource(c.Args().Slice(), config.Demux.FragmentPacketNum)
					return runSession(config, source, nil)
				},
			},
			{
				Name:      "srt",
				Aliases:   []string{"s"},
				Usage:     "Listen for an srt live ts stream and demux it.",
				UsageText: "tsdemux srt [--addr 0.0.0.0] [--port 6001] [--record out.ts]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:        "addr",
						Usage:       "srt listen addr. override conf",
						Destination: &srtAddr,
					},
					&cli.UintFlag{
						Name:        "port",
						Usage:       "srt listen port. override conf",
						Destination: &srtPort,
					},
					&cli.IntFlag{
						Name:        "latency",
						Usage:       "srt latency in milliseconds. override conf",
						Destination: &srtLatency,
					},
					&cli.StringFlag{
						Name:        "record",
						Usage:       "write the received ts stream into this file. override conf",
						Destination: &srtRecord,
					},
				}, demuxFlags...),
				Action: func(c *cli.Context) error {
					config, err := loadConf(c)
					if err != nil {
						return err
					}
					source := srt.NewSource(config.Srt, config.Demux.FragmentPacketNum)
					return runSession(config, source, func(metrics *logic.Metrics) {
						metrics.Registry().MustRegister(srt.NewExporter(source))
					})
				},
			},
			{
				Name:      "probe",
				Aliases:   []string{"p"},
				Usage:     "Probe ts files with go-astits and cross check the program tables.",
				UsageText: "tsdemux probe a.ts b.ts ...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.ShowSubcommandHelp(c)
					}
					config, err := loadConf(c)
					if err != nil {
						return err
					}
					for _, filename := range c.Args().Slice() {
						if err = probeFile(config, filename); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}

// loadConf 读取配置文件并初始化日志，命令行参数覆盖配置文件中的值
func loadConf(c *cli.Context) (*logic.Config, error) {
	config := logic.DefaultConfig()
	if confFile != "" {
		loaded, err := logic.LoadConf(confFile)
		if err != nil {
			return nil, fmt.Errorf("load conf failed. file=%s, err=%w", confFile, err)
		}
		config = *loaded
	}

	if c.IsSet("profile") {
		config.Demux.DecoderProfile = profile
	}
	if c.IsSet("vod") {
		config.Demux.IsVod = isVod
	}
	if c.IsSet("packet-num") {
		config.Demux.FragmentPacketNum = packetNum
	}
	if c.IsSet("addr") {
		config.Srt.Addr = srtAddr
	}
	if c.IsSet("port") {
		config.Srt.Port = uint16(srtPort)
	}
	if c.IsSet("latency") {
		config.Srt.Latency = srtLatency
	}
	if c.IsSet("record") {
		config.Srt.RecordFilename = srtRecord
	}
	if err := config.Check(); err != nil {
		return nil, err
	}
	if !verbose && config.Log.Level < nazalog.LevelInfo {
		config.Log.Level = nazalog.LevelInfo
	}

	if err := config.InitLog(); err != nil {
		return nil, fmt.Errorf("initial log failed. err=%w", err)
	}
	base.LogoutStartInfo()
	nazalog.Infof("load conf succ. file=%s, content=%+v", confFile, config)
	return &config, nil
}

// runSession
//
// @param onMetrics: 开启metrics时回调，用于注册额外的指标
//
func runSession(config *logic.Config, source logic.IFragmentSource, onMetrics func(metrics *logic.Metrics)) error {
	var observer tsdemux.IDemuxerObserver = logic.NewLogObserver()

	var metrics *logic.Metrics
	if config.Metrics.Enable {
		metrics = logic.NewMetrics(observer)
		if onMetrics != nil {
			onMetrics(metrics)
		}
		go func() {
			if err := metrics.ListenAndServe(config.Metrics.Addr); err != nil {
				nazalog.Errorf("metrics listen failed. err=%+v", err)
			}
		}()
	}

	session := logic.NewSession(config, source, observer, metrics)
	go base.RunSignalHandler(func() {
		_ = session.Dispose()
	})
	err := session.RunLoop()
	if dErr := source.Dispose(); dErr != nil {
		nazalog.Warnf("dispose source failed. err=%+v", dErr)
	}
	if errors.Is(err, base.ErrSourceDisposed) {
		return nil
	}
	return err
}

func probeFile(config *logic.Config, filename string) error {
	fp, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer fp.Close()

	res, err := logic.Probe(context.Background(), fp)
	if err != nil {
		return fmt.Errorf("probe failed. file=%s, err=%w", filename, err)
	}
	for _, p := range res.Programs {
		nazalog.Infof("program. number=%d, pmt pid=%d", p.ProgramNumber, p.ProgramMapPid)
	}
	for _, s := range res.Streams {
		nazalog.Infof("stream. pid=%d, type=0x%02x, codec=%s, program=%d, pes=%d, first pts=%d",
			s.Pid, s.StreamType, s.Codec, s.ProgramNumber, s.PesCount, s.FirstPts)
	}

	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	d := tsdemux.NewDemuxer(nil, nil, logic.NewLogObserver(),
		tsdemux.WithDecoderProfile(config.DecoderProfile()),
		tsdemux.WithCheckCrc(config.Demux.CheckCrc))
	defer d.Destroy()
	if err = d.Demux(&base.FragInfo{Url: filename}, b, config.Demux.IsVod); err != nil {
		nazalog.Warnf("demux failed. file=%s, err=%+v", filename, err)
	}

	diffs := logic.CompareProgramTables(res, d.ProgramTables())
	if len(diffs) == 0 {
		nazalog.Infof("program tables match. file=%s", filename)
		return nil
	}
	for _, diff := range diffs {
		nazalog.Errorf("program tables mismatch. file=%s, %s", filename, diff)
	}
	return fmt.Errorf("program tables mismatch. file=%s, diffs=%d", filename, len(diffs))
}
