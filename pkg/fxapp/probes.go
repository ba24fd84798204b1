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
	"github.com/oysterpack/visits/pkg/fxapp/health"
	"net/http"
	"sync"
)

// probe HTTP endpoint paths
const (
	ReadinessProbePath = "/ready"
	LivenessProbePath  = "/live"
)

// ReadinessWaitGroup is used by application components to signal when they are ready to service requests.
//
// The app itself is counted, i.e., the wait group starts with a count of 1, which is decremented once the app has started.
type ReadinessWaitGroup interface {
	Add(delta uint)
	Inc()

	// Count returns the wait group counter value. When the count is zero, it means the wait group is done.
	Count() uint

	// Done decrements the wait group counter by one
	Done()

	// Ready returns a chan that is closed when the wait group counter is zero.
	Ready() <-chan struct{}
}

// NewReadinessWaitGroup returns a new ReadinessWaitGroup initialized with the specified count
func NewReadinessWaitGroup(count uint) ReadinessWaitGroup {
	wg := &readinessWaitGroup{ready: make(chan struct{})}
	wg.count = count
	if count == 0 {
		close(wg.ready)
	}
	return wg
}

type readinessWaitGroup struct {
	mu    sync.Mutex
	count uint
	ready chan struct{}
}

func (r *readinessWaitGroup) Add(delta uint) {
	if delta == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		r.ready = make(chan struct{})
	}
	r.count += delta
}

func (r *readinessWaitGroup) Inc() {
	r.Add(1)
}

func (r *readinessWaitGroup) Count() uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *readinessWaitGroup) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		panic("ReadinessWaitGroup count is already zero")
	}
	r.count--
	if r.count == 0 {
		close(r.ready)
	}
}

func (r *readinessWaitGroup) Ready() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// the app is ready when the readiness wait group is done and no health check is Red
func readinessProbeEndpoint(readiness ReadinessWaitGroup, healthChecks *HealthChecks) HTTPHandler {
	return NewHTTPHandler(ReadinessProbePath, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		count := readiness.Count()
		switch {
		case count > 0:
			w.Header().Add("x-readiness-wait-group-count", fmt.Sprint(count))
			w.WriteHeader(http.StatusServiceUnavailable)
		case healthChecks.Status() == health.Red:
			w.Header().Add("x-health-status", health.Red.String())
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
}

func livenessProbeEndpoint() HTTPHandler {
	return NewHTTPHandler(LivenessProbePath, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}
