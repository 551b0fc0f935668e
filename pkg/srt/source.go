// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package srt

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/haivision/srtgo"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/logic"
	"github.com/q191201771/hlsts/pkg/mpegts"
	"github.com/q191201771/naza/pkg/nazaatomic"
	"github.com/q191201771/naza/pkg/nazaerrors"
)

// Source 监听srt端口，把推上来的ts直播流切成分片
//
// 同一时间只处理一路推流，一路推流结束后继续等待下一路
type Source struct {
	uniqueKey string
	config    logic.SrtConfig
	packetNum int

	mu       sync.Mutex
	listener *srtgo.SrtSocket
	conn     *srtgo.SrtSocket
	connAddr string
	recorder *mpegts.FileWriter
	disposed nazaatomic.Bool

	fragId int
}

var _ logic.IFragmentSource = &Source{}

// NewSource
//
// @param packetNum: 每个分片最少包含的ts包数量，小于等于0时使用默认值
//
func NewSource(config logic.SrtConfig, packetNum int) *Source {
	if packetNum <= 0 {
		packetNum = defaultFragmentPacketNum
	}
	uk := base.GenUkSrtSource()
	Log.Infof("[%s] lifecycle new srt source. addr=%s:%d, latency=%d, packet num=%d",
		uk, config.Addr, config.Port, config.Latency, packetNum)
	return &Source{
		uniqueKey: uk,
		config:    config,
		packetNum: packetNum,
	}
}

func (s *Source) UniqueKey() string {
	return s.uniqueKey
}

func (s *Source) RunLoop(onFragment logic.OnFragment) error {
	options := make(map[string]string)
	options["transtype"] = "live"
	options["blocking"] = "1"
	options["latency"] = strconv.Itoa(s.config.Latency)

	sck := srtgo.NewSrtSocket(s.config.Addr, s.config.Port, options)
	if sck == nil {
		return fmt.Errorf("create srt socket failed. addr=%s:%d", s.config.Addr, s.config.Port)
	}
	sck.SetListenCallback(s.listenCallback)
	if err := sck.Listen(1); err != nil {
		sck.Close()
		return err
	}
	s.mu.Lock()
	s.listener = sck
	s.mu.Unlock()
	Log.Infof("[%s] start srt listen. addr=%s:%d", s.uniqueKey, s.config.Addr, s.config.Port)

	if s.config.RecordFilename != "" {
		recorder := &mpegts.FileWriter{}
		if err := recorder.Create(s.config.RecordFilename); err != nil {
			return err
		}
		s.mu.Lock()
		s.recorder = recorder
		s.mu.Unlock()
	}

	for {
		if s.disposed.Load() {
			return base.ErrSourceDisposed
		}

		conn, addr, err := sck.Accept()
		if err != nil {
			if s.disposed.Load() {
				return base.ErrSourceDisposed
			}
			return err
		}
		Log.Infof("[%s] srt accept. remote=%s", s.uniqueKey, addr.String())

		s.mu.Lock()
		s.conn = conn
		s.connAddr = addr.String()
		s.mu.Unlock()

		err = s.serve(conn, addr, onFragment)

		s.mu.Lock()
		s.conn = nil
		s.connAddr = ""
		s.mu.Unlock()
		conn.Close()

		if err != nil {
			return err
		}
	}
}

func (s *Source) Dispose() error {
	Log.Infof("[%s] lifecycle dispose srt source.", s.uniqueKey)
	s.disposed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()

	var es []error
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	if s.recorder != nil {
		Log.Infof("[%s] record done. file=%s, written=%d", s.uniqueKey, s.recorder.Name(), s.recorder.Written())
		if err := s.recorder.Dispose(); err != nil {
			es = append(es, err)
		}
		s.recorder = nil
	}
	return nazaerrors.CombineErrors(es...)
}

// Stats 当前推流连接的srt统计信息，没有推流时返回错误
//
// @return addr: 推流端地址
//
func (s *Source) Stats() (addr string, stats *srtgo.SrtStats, err error) {
	s.mu.Lock()
	conn := s.conn
	addr = s.connAddr
	s.mu.Unlock()

	if conn == nil {
		return "", nil, errNoConnection
	}
	stats, err = conn.Stats()
	return
}

var errNoConnection = errors.New("hlsts.srt: no connection")

// serve 读协程把数据块通过channel交给当前协程，当前协程负责切片、录制以及回调
func (s *Source) serve(conn *srtgo.SrtSocket, addr *net.UDPAddr, onFragment logic.OnFragment) error {
	chunks := make(chan []byte, chunkChanSize)
	done := make(chan struct{})
	defer close(done)

	var readErr error
	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, readBufSize)
			n, err := conn.Read(buf)
			if err != nil {
				readErr = err
				return
			}
			if n == 0 {
				return
			}
			select {
			case chunks <- buf[:n]:
			case <-done:
				return
			}
		}
	}()

	url := "srt://" + addr.String()
	cutter := mpegts.NewFragmentCutter(s.packetNum, s.packetNum*maxFragmentPacketNumFactor)
	readBytes := 0
	for chunk := range chunks {
		readBytes += len(chunk)
		s.record(chunk)
		for _, b := range cutter.Feed(chunk) {
			if err := onFragment(s.nextFrag(url), b); err != nil {
				return err
			}
		}
	}

	if last := cutter.Flush(); last != nil {
		if err := onFragment(s.nextFrag(url), last); err != nil {
			return err
		}
	}

	// chunks已经被关闭，readErr不会再被修改
	if readErr != nil && !errors.Is(readErr, srtgo.EConnLost) && !s.disposed.Load() {
		Log.Warnf("[%s] srt read failed. remote=%s, err=%+v", s.uniqueKey, addr.String(), readErr)
	}
	Log.Infof("[%s] srt connection done. remote=%s, read=%d", s.uniqueKey, addr.String(), readBytes)
	return nil
}

func (s *Source) record(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Write(b); err != nil {
		Log.Errorf("[%s] record failed. err=%+v", s.uniqueKey, err)
	}
}

func (s *Source) nextFrag(url string) *base.FragInfo {
	frag := &base.FragInfo{
		Id:  s.fragId,
		Url: url,
	}
	s.fragId++
	return frag
}

func (s *Source) listenCallback(socket *srtgo.SrtSocket, version int, addr *net.UDPAddr, streamid string) bool {
	Log.Infof("[%s] srt socket will connect. version=%d, remote=%s, streamid=%s",
		s.uniqueKey, version, addr.String(), streamid)
	return true
}
