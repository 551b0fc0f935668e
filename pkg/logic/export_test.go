// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/hlsts
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import "github.com/prometheus/client_golang/prometheus"

func MetricsSamples(m *Metrics, kind string) prometheus.Counter {
	return m.samples.WithLabelValues(kind)
}

func MetricsMetadata(m *Metrics, kind string) prometheus.Counter {
	return m.metadata.WithLabelValues(kind)
}

func MetricsFragments(m *Metrics) prometheus.Counter {
	return m.fragments
}

func MetricsErrors(m *Metrics, reason string) prometheus.Counter {
	return m.errors.WithLabelValues(reason)
}
