/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fxapp

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

// MetricsPath is the HTTP path that Prometheus metrics are exposed on
const MetricsPath = "/metrics"

// newMetricsRegistry creates the app's own registry, i.e., the global default registry is not used.
// Go runtime and process metrics are registered.
func newMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func metricsEndpoint(gatherer prometheus.Gatherer, registerer prometheus.Registerer, logger *zerolog.Logger) HTTPHandler {
	errorLog := metricsErrorLog(HTTPServerEvent.NewLogEvent(ComponentLogger(logger, "metrics"), zerolog.ErrorLevel))
	return NewHTTPHandler(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:            errorLog,
		ErrorHandling:       promhttp.ContinueOnError,
		Registry:            registerer,
		MaxRequestsInFlight: 5,
	}))
}

// metricsErrorLog implements promhttp.Logger
type metricsErrorLog LogEvent

func (log metricsErrorLog) Println(v ...interface{}) {
	log(errorEvent{errors.New(fmt.Sprint(v...))}, "prometheus HTTP handler error")
}

// FindMetricFamily returns the first metric family that matches the filter
func FindMetricFamily(mfs []*dto.MetricFamily, accept func(mf *dto.MetricFamily) bool) *dto.MetricFamily {
	for _, mf := range mfs {
		if accept(mf) {
			return mf
		}
	}
	return nil
}

// MetricNamed returns a filter that matches metric families by name
func MetricNamed(name string) func(mf *dto.MetricFamily) bool {
	return func(mf *dto.MetricFamily) bool {
		return mf.GetName() == name
	}
}
