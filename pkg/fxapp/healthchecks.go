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
	"context"
	"encoding/json"
	"github.com/oysterpack/visits/pkg/fxapp/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"net/http"
	"sync"
)

// HealthChecksPath is the HTTP path that health check results are exposed on
const HealthChecksPath = "/health"

// HealthCheckMetric is used as the prometheus health check gauge name. The gauge value is the health check status,
// or -1 if the health check has not yet run.
const HealthCheckMetric = "healthcheck_status"

// HealthCheckRegistration is used to register a health check with the app
type HealthCheckRegistration struct {
	fx.Out

	health.Check `group:"HealthCheck"`
}

// NewHealthCheckRegistration wraps the health check for registration with the app
func NewHealthCheckRegistration(check health.Check) HealthCheckRegistration {
	return HealthCheckRegistration{Check: check}
}

type healthCheckOpts struct {
	fx.In

	Checks     []health.Check `group:"HealthCheck"`
	Logger     *zerolog.Logger
	Registerer prometheus.Registerer
	Lifecycle  fx.Lifecycle
}

// HealthChecks runs the registered health checks on a schedule while the app is running.
//
// Health checks are integrated with:
//   - the readiness probe - any Red health check fails the probe
//   - logging - non-Green results are logged
//   - metrics - a gauge per health check
//   - HTTP - GET /health returns the latest results
type HealthChecks struct {
	registry health.Registry

	mu        sync.RWMutex
	scheduler health.Scheduler
}

func newHealthChecks(opts healthCheckOpts) (*HealthChecks, error) {
	h := &HealthChecks{registry: health.NewRegistry()}
	for _, check := range opts.Checks {
		if err := h.registry.Register(check); err != nil {
			return nil, err
		}
		if err := h.registerGauge(check, opts.Registerer); err != nil {
			return nil, err
		}
	}

	logger := EventLogger(ComponentLogger(opts.Logger, "health"), HealthCheckEvent)
	observer := func(check health.Check, result health.Result) {
		var event *zerolog.Event
		switch result.Status {
		case health.Green:
			event = logger.Debug()
		case health.Yellow:
			event = logger.Warn().Str("impact", check.YellowImpact())
		default:
			event = logger.Error().Str("impact", check.RedImpact())
		}
		event.Object(HealthCheckEvent.String(), result).Msg(check.Description())
	}

	opts.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.scheduler = health.StartScheduler(h.registry, observer)
			return nil
		},
		OnStop: func(context.Context) error {
			if scheduler := h.getScheduler(); scheduler != nil {
				scheduler.Stop()
			}
			return nil
		},
	})

	return h, nil
}

func (h *HealthChecks) registerGauge(check health.Check, registerer prometheus.Registerer) error {
	id := check.ID()
	return registerer.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        HealthCheckMetric,
			Help:        "health check status: 0 = Green, 1 = Yellow, 2 = Red, -1 = not yet run",
			ConstLabels: prometheus.Labels{"id": id.String()},
		},
		func() float64 {
			for _, result := range h.Results() {
				if result.HealthCheckID == id {
					return float64(result.Status)
				}
			}
			return -1
		},
	))
}

func (h *HealthChecks) getScheduler() health.Scheduler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scheduler
}

// HealthChecks returns the registered health checks
func (h *HealthChecks) HealthChecks() []health.Check {
	return h.registry.HealthChecks()
}

// Results returns the latest health check results. Nil is returned until the app has started.
func (h *HealthChecks) Results() []health.Result {
	if scheduler := h.getScheduler(); scheduler != nil {
		return scheduler.Results()
	}
	return nil
}

// Status returns the worst health check status. Green is returned until the app has started.
func (h *HealthChecks) Status() health.Status {
	if scheduler := h.getScheduler(); scheduler != nil {
		return scheduler.Status()
	}
	return health.Green
}

type healthCheckReport struct {
	Check  health.Check   `json:"check"`
	Result *health.Result `json:"result,omitempty"`
}

func healthChecksEndpoint(healthChecks *HealthChecks) HTTPHandler {
	return NewHTTPHandler(HealthChecksPath, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		results := make(map[string]health.Result)
		for _, result := range healthChecks.Results() {
			results[result.HealthCheckID.String()] = result
		}
		checks := healthChecks.HealthChecks()
		reports := make([]healthCheckReport, 0, len(checks))
		for _, check := range checks {
			report := healthCheckReport{Check: check}
			if result, ok := results[check.ID().String()]; ok {
				report.Result = &result
			}
			reports = append(reports, report)
		}

		w.Header().Set("Content-Type", "application/json")
		if healthChecks.Status() == health.Red {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(reports)
	}))
}
