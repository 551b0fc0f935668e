// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/q191201771/hlsts/pkg/base"
	"github.com/q191201771/hlsts/pkg/tsdemux"
)

const demuxerSubsystem = "demuxer"

var (
	packetsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, demuxerSubsystem, "packets_total"),
		"total number of ts packets read",
		[]string{"demuxer"}, nil,
	)

	readBytesTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, demuxerSubsystem, "read_bytes_total"),
		"total number of fragment bytes fed into the demuxer",
		[]string{"demuxer"}, nil,
	)

	resyncTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, demuxerSubsystem, "resync_total"),
		"number of times the packet reader lost sync and scanned forward",
		[]string{"demuxer"}, nil,
	)

	resyncSkippedBytesTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, demuxerSubsystem, "resync_skipped_bytes_total"),
		"number of bytes skipped while resyncing",
		[]string{"demuxer"}, nil,
	)

	badPacketsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, demuxerSubsystem, "bad_packets_total"),
		"number of ts packets with a malformed adaptation field",
		[]string{"demuxer"}, nil,
	)

	unknownPidPacketsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, demuxerSubsystem, "unknown_pid_packets_total"),
		"number of ts packets ignored because of an unknown or unsupported pid",
		[]string{"demuxer"}, nil,
	)

	droppedPayloadsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, demuxerSubsystem, "dropped_payloads_total"),
		"number of pes continuation payloads dropped before any pes start",
		[]string{"demuxer"}, nil,
	)

	psiErrorsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, demuxerSubsystem, "psi_errors_total"),
		"number of pat/pmt/cat sections that failed to parse",
		[]string{"demuxer"}, nil,
	)
)

// Metrics 以prometheus指标的形式导出demuxer的回调事件和统计信息
//
// Metrics 本身实现 tsdemux.IDemuxerObserver，计数后把回调原样转发给next
type Metrics struct {
	next tsdemux.IDemuxerObserver

	registry  *prometheus.Registry
	samples   *prometheus.CounterVec
	metadata  *prometheus.CounterVec
	sei       prometheus.Counter
	fragments prometheus.Counter
	errors    *prometheus.CounterVec

	mu   sync.Mutex
	stat base.StatDemuxer
}

var _ tsdemux.IDemuxerObserver = &Metrics{}

// NewMetrics
//
// @param next: 可以为nil
//
func NewMetrics(next tsdemux.IDemuxerObserver) *Metrics {
	m := &Metrics{
		next:     next,
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: demuxerSubsystem,
			Name:      "samples_total",
			Help:      "number of samples emitted",
		}, []string{"kind"}),
		metadata: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: demuxerSubsystem,
			Name:      "metadata_total",
			Help:      "number of metadata established or changed events",
		}, []string{"kind"}),
		sei: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: demuxerSubsystem,
			Name:      "sei_total",
			Help:      "number of sei messages emitted",
		}),
		fragments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: demuxerSubsystem,
			Name:      "fragments_total",
			Help:      "number of fragments demuxed completely",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: demuxerSubsystem,
			Name:      "errors_total",
			Help:      "number of demux calls aborted by an error",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(m.samples, m.metadata, m.sei, m.fragments, m.errors, &statExporter{m: m})
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ListenAndServe 阻塞运行，在 /metrics 上导出指标
func (m *Metrics) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	Log.Infof("start metrics listen. addr=%s", addr)
	return http.ListenAndServe(addr, mux)
}

// UpdateStat 每次demux调用后，更新统计信息的快照
func (m *Metrics) UpdateStat(stat base.StatDemuxer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stat = stat
}

func (m *Metrics) OnDemuxError(err error) {
	reason := "other"
	if base.IsFormatError(err) {
		reason = "format"
	}
	m.errors.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnMetadata(kind base.MediaKind, track *base.Track) {
	m.metadata.WithLabelValues(string(kind)).Inc()
	if m.next != nil {
		m.next.OnMetadata(kind, track)
	}
}

func (m *Metrics) OnVideoSample(sample *base.VideoSample) {
	m.samples.WithLabelValues(string(base.MediaKindVideo)).Inc()
	if m.next != nil {
		m.next.OnVideoSample(sample)
	}
}

func (m *Metrics) OnAudioSample(sample *base.AudioSample) {
	m.samples.WithLabelValues(string(base.MediaKindAudio)).Inc()
	if m.next != nil {
		m.next.OnAudioSample(sample)
	}
}

func (m *Metrics) OnSei(sei *base.Sei) {
	m.sei.Inc()
	if m.next != nil {
		m.next.OnSei(sei)
	}
}

func (m *Metrics) OnDemuxComplete(frag *base.FragInfo) {
	m.fragments.Inc()
	if m.next != nil {
		m.next.OnDemuxComplete(frag)
	}
}

// ---------------------------------------------------------------------------------------------------------------------

// statExporter 把 base.StatDemuxer 快照导出为prometheus指标，实现 prometheus.Collector
type statExporter struct {
	m *Metrics
}

func (e *statExporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- packetsTotalDesc
	ch <- readBytesTotalDesc
	ch <- resyncTotalDesc
	ch <- resyncSkippedBytesTotalDesc
	ch <- badPacketsTotalDesc
	ch <- unknownPidPacketsTotalDesc
	ch <- droppedPayloadsTotalDesc
	ch <- psiErrorsTotalDesc
}

func (e *statExporter) Collect(ch chan<- prometheus.Metric) {
	e.m.mu.Lock()
	stat := e.m.stat
	e.m.mu.Unlock()

	if stat.UniqueKey == "" {
		return
	}
	uk := stat.UniqueKey
	ch <- prometheus.MustNewConstMetric(packetsTotalDesc, prometheus.CounterValue, float64(stat.PacketCount), uk)
	ch <- prometheus.MustNewConstMetric(readBytesTotalDesc, prometheus.CounterValue, float64(stat.ReadBytesSum), uk)
	ch <- prometheus.MustNewConstMetric(resyncTotalDesc, prometheus.CounterValue, float64(stat.ResyncCount), uk)
	ch <- prometheus.MustNewConstMetric(resyncSkippedBytesTotalDesc, prometheus.CounterValue, float64(stat.ResyncSkippedBytes), uk)
	ch <- prometheus.MustNewConstMetric(badPacketsTotalDesc, prometheus.CounterValue, float64(stat.BadPacketCount), uk)
	ch <- prometheus.MustNewConstMetric(unknownPidPacketsTotalDesc, prometheus.CounterValue, float64(stat.UnknownPidPacketCount), uk)
	ch <- prometheus.MustNewConstMetric(droppedPayloadsTotalDesc, prometheus.CounterValue, float64(stat.DroppedPayloadCount), uk)
	ch <- prometheus.MustNewConstMetric(psiErrorsTotalDesc, prometheus.CounterValue, float64(stat.PsiErrCount), uk)
}
