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

package health

import (
	"context"
	"github.com/oklog/ulid"
	"sync"
	"time"
)

// Scheduler runs health checks on their configured intervals and keeps the latest result for each.
//
// - Each health check runs as soon as the scheduler starts, and then on its run interval.
// - Health checks are run one at a time to prevent application / system overload.
// - The health check's next run is scheduled when the health check run is complete.
// - Once the scheduler is stopped, it cannot be restarted.
type Scheduler interface {
	// Results returns the latest result for each health check that has run at least once, ordered as the
	// registry's health checks
	Results() []Result

	// Result returns the latest result for the specified health check
	Result(id ulid.ULID) (Result, bool)

	// Status returns the worst status across the latest results. Green is returned when no health check has run yet.
	Status() Status

	// Stop triggers shutdown and blocks until every health check go routine has exited
	Stop()

	// Done is closed once the scheduler has stopped
	Done() <-chan struct{}
}

// Observer is notified of each health check result
type Observer func(check Check, result Result)

type scheduler struct {
	checks []Check

	mu      sync.RWMutex
	results map[ulid.ULID]Result

	runLock  sync.Mutex
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
	stop   sync.Once
}

// StartScheduler starts a new health check scheduler for the health checks in the registry.
// The observer may be nil.
func StartScheduler(registry Registry, observer Observer) Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scheduler{
		checks:   registry.HealthChecks(),
		results:  make(map[ulid.ULID]Result),
		observer: observer,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	for _, check := range s.checks {
		s.wg.Add(1)
		go s.schedule(check)
	}

	return s
}

func (s *scheduler) schedule(check Check) {
	defer s.wg.Done()
	for {
		result, ok := s.run(check)
		if !ok {
			return
		}
		s.mu.Lock()
		s.results[check.ID()] = result
		s.mu.Unlock()
		if s.observer != nil {
			s.observer(check, result)
		}

		timer := time.NewTimer(check.RunInterval())
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// run returns false if the scheduler was stopped before the health check completed
func (s *scheduler) run(check Check) (Result, bool) {
	s.runLock.Lock()
	defer s.runLock.Unlock()
	if s.ctx.Err() != nil {
		return Result{}, false
	}
	result := check.Run(s.ctx)
	return result, s.ctx.Err() == nil
}

func (s *scheduler) Results() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]Result, 0, len(s.results))
	for _, check := range s.checks {
		if result, ok := s.results[check.ID()]; ok {
			results = append(results, result)
		}
	}
	return results
}

func (s *scheduler) Result(id ulid.ULID) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	return result, ok
}

func (s *scheduler) Status() Status {
	status := Green
	for _, result := range s.Results() {
		if result.Status > status {
			status = result.Status
		}
	}
	return status
}

func (s *scheduler) Stop() {
	s.stop.Do(func() {
		s.cancel()
		s.wg.Wait()
		close(s.done)
	})
}

func (s *scheduler) Done() <-chan struct{} {
	return s.done
}
