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
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"io"
	"os"
	"reflect"
	"time"
)

// Builder is used to construct a new App instance.
type Builder interface {
	// Provide registers constructors. Constructors are lazily invoked when their results are needed.
	Provide(constructors ...interface{}) Builder
	// Invoke registers functions that are run when the app is built, in registration order.
	Invoke(funcs ...interface{}) Builder
	// Populate is used to extract values from the app, see fx.Populate
	Populate(targets ...interface{}) Builder
	// Options is used to install modules, i.e., groups of options that are packaged together, see fx.Options
	Options(opts ...fx.Option) Builder

	// Configure applies the Config settings. The log level is validated when the app is built.
	Configure(cfg Config) Builder
	SetStartTimeout(timeout time.Duration) Builder
	SetStopTimeout(timeout time.Duration) Builder
	SetHTTPAddr(addr string) Builder

	// LogWriter defaults to os.Stderr
	LogWriter(w io.Writer) Builder

	Build() (App, error)
}

// NewBuilder constructs a new Builder initialized with the default Config
func NewBuilder(desc Desc) Builder {
	return &builder{
		desc: desc,
		cfg: Config{
			LogLevel:     "info",
			HTTPAddr:     ":3000",
			StartTimeout: 30 * time.Second,
			StopTimeout:  15 * time.Second,
		},
		logWriter: os.Stderr,
	}
}

type builder struct {
	desc Desc
	cfg  Config

	constructors []interface{}
	funcs        []interface{}
	populate     []interface{}
	opts         []fx.Option

	logWriter io.Writer
}

func (b *builder) Provide(constructors ...interface{}) Builder {
	b.constructors = append(b.constructors, constructors...)
	return b
}

func (b *builder) Invoke(funcs ...interface{}) Builder {
	b.funcs = append(b.funcs, funcs...)
	return b
}

func (b *builder) Populate(targets ...interface{}) Builder {
	b.populate = append(b.populate, targets...)
	return b
}

func (b *builder) Options(opts ...fx.Option) Builder {
	b.opts = append(b.opts, opts...)
	return b
}

func (b *builder) Configure(cfg Config) Builder {
	b.cfg = cfg
	return b
}

func (b *builder) SetStartTimeout(timeout time.Duration) Builder {
	b.cfg.StartTimeout = timeout
	return b
}

func (b *builder) SetStopTimeout(timeout time.Duration) Builder {
	b.cfg.StopTimeout = timeout
	return b
}

func (b *builder) SetHTTPAddr(addr string) Builder {
	b.cfg.HTTPAddr = addr
	return b
}

func (b *builder) LogWriter(w io.Writer) Builder {
	b.logWriter = w
	return b
}

func (b *builder) validate() error {
	if b.desc == nil {
		return errors.New("app Desc is required")
	}
	err := b.desc.Validate()
	if len(b.constructors) == 0 && len(b.funcs) == 0 && len(b.opts) == 0 {
		err = multierr.Append(err, errors.New("at least 1 functional option is required"))
	}
	if b.cfg.StartTimeout <= 0 {
		err = multierr.Append(err, errors.New("start timeout must be greater than 0"))
	}
	if b.cfg.StopTimeout <= 0 {
		err = multierr.Append(err, errors.New("stop timeout must be greater than 0"))
	}
	if _, e := b.cfg.ZerologLevel(); e != nil {
		err = multierr.Append(err, e)
	}
	return err
}

// Build constructs and initializes a new App instance.
// All of the app's functions are run as part of the app initialization phase.
//
// The following are provided to the app:
//   - Desc
//   - InstanceID
//   - Config
//   - *zerolog.Logger
//   - ReadinessWaitGroup
//   - prometheus.Registerer and prometheus.Gatherer
//   - *HealthChecks
//   - *HTTPServer
//   - fx.Lifecycle and fx.Shutdowner
func (b *builder) Build() (App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	level, _ := b.cfg.ZerologLevel()
	desc, cfg := b.desc, b.cfg
	instanceID := NewInstanceID()
	logger := NewLogger(b.logWriter, desc, instanceID, level)
	metrics := newMetricsRegistry()

	a := &app{
		desc:       desc,
		instanceID: instanceID,
		cfg:        cfg,
		logger:     logger,
		readiness:  NewReadinessWaitGroup(1),

		constructors: b.constructors,
		funcs:        b.funcs,

		starting: make(chan struct{}),
		started:  make(chan struct{}),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}

	a.fxApp = fx.New(
		fx.WithLogger(func() fxevent.Logger { return newFxLogger(logger) }),
		fx.StartTimeout(cfg.StartTimeout),
		fx.StopTimeout(cfg.StopTimeout),
		fx.Provide(
			func() Desc { return desc },
			func() InstanceID { return instanceID },
			func() Config { return cfg },
			func() *zerolog.Logger { return logger },
			func() ReadinessWaitGroup { return a.readiness },
			func() prometheus.Registerer { return metrics },
			func() prometheus.Gatherer { return metrics },
			newHealthChecks,
			newHTTPServer,
			readinessProbeEndpoint,
			livenessProbeEndpoint,
			healthChecksEndpoint,
			metricsEndpoint,
		),
		fx.Options(b.options()...),
		// registered last, in this order, so that their OnStart hooks run after every app component has started
		fx.Invoke(scheduleHealthChecks),
		fx.Invoke(serveHTTP),
		fx.Populate(append([]interface{}{&a.shutdowner}, b.populate...)...),
	)

	if err := a.fxApp.Err(); err != nil {
		InitializedEvent.NewLogEvent(logger, zerolog.ErrorLevel)(errorEvent{err}, "app initialization failed")
		return nil, err
	}
	a.logInitialized()
	return a, nil
}

func (b *builder) options() []fx.Option {
	options := make([]fx.Option, 0, len(b.opts)+len(b.constructors)+len(b.funcs))
	options = append(options, b.opts...)
	for _, f := range b.constructors {
		options = append(options, fx.Provide(f))
	}
	for _, f := range b.funcs {
		options = append(options, fx.Invoke(f))
	}
	return options
}

func scheduleHealthChecks(*HealthChecks) {}

func serveHTTP(*HTTPServer) {}

func typeNames(values []interface{}) []string {
	names := make([]string, 0, len(values))
	for _, value := range values {
		names = append(names, reflect.TypeOf(value).String())
	}
	return names
}
