// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package srt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/q191201771/hlsts/pkg/logic"
)

const srtSubsystem = "srt"

var (
	activeConnectionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(logic.MetricsNamespace, srtSubsystem, "active_connections"),
		"The number of active SRT publishing connections",
		nil, nil,
	)

	// 字段参考 https://pkg.go.dev/github.com/haivision/srtgo#SrtStats
	pktRecvTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(logic.MetricsNamespace, srtSubsystem, "receive_packets_total"),
		"total number of received packets",
		[]string{"address"}, nil,
	)

	pktRcvLossTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(logic.MetricsNamespace, srtSubsystem, "receive_lost_packets_total"),
		"total number of lost packets (receive_side)",
		[]string{"address"}, nil,
	)

	pktRcvDropTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(logic.MetricsNamespace, srtSubsystem, "receive_dropped_packets_total"),
		"number of too-late-to play missing packets",
		[]string{"address"}, nil,
	)

	byteRecvTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(logic.MetricsNamespace, srtSubsystem, "receive_bytes_total"),
		"total number of received bytes",
		[]string{"address"}, nil,
	)

	byteRcvLossTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(logic.MetricsNamespace, srtSubsystem, "receive_lost_bytes_total"),
		"total number of lost bytes",
		[]string{"address"}, nil,
	)
)

// Exporter 导出 Source 当前推流连接的srt统计信息，实现 prometheus.Collector
type Exporter struct {
	source *Source
}

func NewExporter(source *Source) *Exporter {
	return &Exporter{source: source}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- activeConnectionsDesc
	ch <- pktRecvTotalDesc
	ch <- pktRcvLossTotalDesc
	ch <- pktRcvDropTotalDesc
	ch <- byteRecvTotalDesc
	ch <- byteRcvLossTotalDesc
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	addr, stats, err := e.source.Stats()
	if err != nil {
		ch <- prometheus.MustNewConstMetric(activeConnectionsDesc, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(activeConnectionsDesc, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(pktRecvTotalDesc, prometheus.CounterValue, float64(stats.PktRecvTotal), addr)
	ch <- prometheus.MustNewConstMetric(pktRcvLossTotalDesc, prometheus.CounterValue, float64(stats.PktRcvLossTotal), addr)
	ch <- prometheus.MustNewConstMetric(pktRcvDropTotalDesc, prometheus.CounterValue, float64(stats.PktRcvDropTotal), addr)
	ch <- prometheus.MustNewConstMetric(byteRecvTotalDesc, prometheus.CounterValue, float64(stats.ByteRecvTotal), addr)
	ch <- prometheus.MustNewConstMetric(byteRcvLossTotalDesc, prometheus.CounterValue, float64(stats.ByteRcvLossTotal), addr)
}
