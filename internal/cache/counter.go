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

// Package cache provides the cache client, which maintains a connection pool to Redis and exposes an atomic
// increment-and-return operation on named counters.
package cache

import (
	"context"
	"fmt"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"time"
)

// ErrUnavailable is returned when the cache could not serve a command, e.g., connection lost, timeout, or the
// circuit breaker is open.
var ErrUnavailable = errors.New("cache unavailable")

// Counter increments named counters.
type Counter interface {
	// Incr atomically increments the counter and returns the new value.
	// A counter that does not exist is created, i.e., the first increment returns 1.
	Incr(ctx context.Context, key string) (int64, error)
}

// cache event IDs
const (
	ConnectRetryEvent fxapp.EventTypeID = "01K52SEE52E60EDQ60HQ3ZFG42"
	ConnectedEvent    fxapp.EventTypeID = "01K52SEE67794WX5GG66AHPFQG"
	BreakerStateEvent fxapp.EventTypeID = "01K52SEE7CQV46NPHDFSKJ4X9A"
)

// RedisCounter is a Counter backed by the Redis INCR command. Atomicity is provided by Redis.
//
// Each command runs with the op timeout through a circuit breaker: once the breaker opens, Incr fails fast with
// ErrUnavailable until the breaker timeout elapses and a trial command succeeds.
type RedisCounter struct {
	client        *redis.Client
	opTimeout     time.Duration
	retryInterval time.Duration
	breaker       *gobreaker.CircuitBreaker

	incrTotal    prometheus.Counter
	incrFailures prometheus.Counter

	logConnectRetry fxapp.LogEvent
	logConnected    fxapp.LogEvent
}

// NewRedisCounter constructs a new RedisCounter using the specified client
func NewRedisCounter(client *redis.Client, cfg Config, logger *zerolog.Logger) *RedisCounter {
	logger = fxapp.ComponentLogger(logger, "cache")
	logBreakerState := BreakerStateEvent.NewLogEvent(logger, zerolog.WarnLevel)
	return &RedisCounter{
		client:        client,
		opTimeout:     cfg.OpTimeout,
		retryInterval: cfg.RetryInterval,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis",
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerMaxFailure
			},
			// a request that was abandoned by the caller says nothing about the cache
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logBreakerState(breakerStateChange{from, to}, "cache circuit breaker state changed")
			},
		}),
		incrTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_incr_total",
			Help: "number of cache increment commands",
		}),
		incrFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_incr_failures_total",
			Help: "number of failed cache increment commands",
		}),
		logConnectRetry: ConnectRetryEvent.NewLogEvent(logger, zerolog.WarnLevel),
		logConnected:    ConnectedEvent.NewLogEvent(logger, zerolog.InfoLevel),
	}
}

// Incr implements Counter. Failures are reported as ErrUnavailable.
func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	c.incrTotal.Inc()
	value, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
		defer cancel()
		return c.client.Incr(ctx, key).Result()
	})
	if err != nil {
		c.incrFailures.Inc()
		return 0, unavailableError{key, err}
	}
	return value.(int64), nil
}

// Ping checks the connection to the cache
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Connect pings the cache until it responds, or until the context is done.
func (c *RedisCounter) Connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := c.Ping(ctx)
		if err == nil {
			c.logConnected(connectAttempt{attempt, nil}, "connected to cache")
			return nil
		}
		c.logConnectRetry(connectAttempt{attempt, err}, "cache connection attempt failed")

		timer := time.NewTimer(c.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrapf(err, "failed to connect to cache after %d attempts", attempt)
		case <-timer.C:
		}
	}
}

// BreakerState returns the circuit breaker state
func (c *RedisCounter) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Register registers the counter metrics
func (c *RedisCounter) Register(registerer prometheus.Registerer) error {
	breakerState := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "cache_breaker_state",
			Help: "cache circuit breaker state: 0 = closed, 1 = half-open, 2 = open",
		},
		func() float64 { return float64(c.breaker.State()) },
	)
	for _, collector := range []prometheus.Collector{c.incrTotal, c.incrFailures, breakerState} {
		if err := registerer.Register(collector); err != nil {
			return errors.Wrap(err, "failed to register cache metrics")
		}
	}
	return nil
}

// Close closes the connection pool
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

type unavailableError struct {
	key string
	err error
}

func (e unavailableError) Error() string {
	return fmt.Sprintf("%v: incr %q: %v", ErrUnavailable, e.key, e.err)
}

func (e unavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e unavailableError) Unwrap() error {
	return e.err
}

type connectAttempt struct {
	attempt int
	err     error
}

func (a connectAttempt) MarshalZerologObject(e *zerolog.Event) {
	e.Int("attempt", a.attempt)
	if a.err != nil {
		e.Err(a.err)
	}
}

type breakerStateChange struct {
	from, to gobreaker.State
}

func (s breakerStateChange) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from", s.from.String()).Str("to", s.to.String())
}
