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

// Package visits provides the HTTP route that counts visits.
package visits

import (
	"fmt"
	"github.com/oysterpack/visits/internal/cache"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"net/http"
	"strconv"
)

// Key is the cache counter that visits are counted on
const Key = "visits"

// Path is the HTTP path the handler is registered on
const Path = "/"

// RequestFailedEvent is logged when a visit could not be counted
const RequestFailedEvent fxapp.EventTypeID = "01K52SEED51PA5ZX1T8XHSBME1"

// Handler counts each GET / request and responds with the new count:
//
//	Hello 🚀 Visits: 42
//
// When the cache is unavailable, it responds with 503 and Retry-After: 1. The request is never blocked longer than
// the cache op timeout.
//
// Only GET counts a visit. Every other method, HEAD included, gets 405 with Allow: GET. A HEAD response would have
// to either count a visit that no client sees, or report headers for a body it never computed.
type Handler struct {
	counter  cache.Counter
	requests *prometheus.CounterVec
	logError fxapp.LogEvent
}

// NewHandler constructs a new Handler
func NewHandler(counter cache.Counter, logger *zerolog.Logger) *Handler {
	return &Handler{
		counter: counter,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visits_requests_total",
				Help: "number of requests by HTTP status code",
			},
			[]string{"code"},
		),
		logError: RequestFailedEvent.NewLogEvent(fxapp.ComponentLogger(logger, "visits"), zerolog.ErrorLevel),
	}
}

// Register registers the handler metrics
func (h *Handler) Register(registerer prometheus.Registerer) error {
	return errors.Wrap(registerer.Register(h.requests), "failed to register visits metrics")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch {
	case req.URL.Path != Path:
		h.reply(w, http.StatusNotFound)
		http.NotFound(w, req)
	case req.Method != http.MethodGet:
		h.reply(w, http.StatusMethodNotAllowed)
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	default:
		h.countVisit(w, req)
	}
}

func (h *Handler) countVisit(w http.ResponseWriter, req *http.Request) {
	count, err := h.counter.Incr(req.Context(), Key)
	if err != nil {
		h.reply(w, http.StatusServiceUnavailable)
		h.logError(requestFailure{req, err}, "failed to count visit")
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	h.reply(w, http.StatusOK)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Hello 🚀 Visits: %d", count)
}

func (h *Handler) reply(w http.ResponseWriter, code int) {
	h.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

type requestFailure struct {
	req *http.Request
	err error
}

func (f requestFailure) MarshalZerologObject(e *zerolog.Event) {
	e.Str("method", f.req.Method).
		Str("path", f.req.URL.Path).
		Str("key", Key).
		Err(f.err)
}
