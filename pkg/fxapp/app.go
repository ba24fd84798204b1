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
	"fmt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"os"
	"time"
)

// App represents a functional application container, leveraging fx (https://godoc.org/go.uber.org/fx) as the underlying
// framework. Functional means, the application behavior is defined via functions.
//
// The application transitions through the following lifecycle states:
//	1. Initialized
//	2. Starting
//	3. Started
//	4. Ready
//	5. Stopping
//	6. Done
//
// When building an application, functions are registered which specify how to:
//  - initialize the application
//  - register services that are bound to the application life cycle, via fx.Lifecycle
//
// Components that connect to backing services do so in their OnStart hook, and block until the connection is
// established or the start timeout expires. The HTTP server OnStart hook always runs last. If any OnStart hook
// fails, the app fails to start, i.e., the app never serves requests without its dependencies.
type App interface {
	LifeCycle

	// Desc returns the app descriptor
	Desc() Desc

	// InstanceID returns the app unique instance ID
	InstanceID() InstanceID

	// StartTimeout returns the app start timeout
	StartTimeout() time.Duration
	// StopTimeout returns the app shutdown timeout
	StopTimeout() time.Duration

	// Run starts the application and blocks until the app is shutdown.
	// It waits to receive a SIGINT or SIGTERM signal, or Shutdown to be called, to shutdown the app.
	Run() error

	// Shutdown signals the app to shutdown. This method does not block, i.e., application shutdown occurs async.
	//
	// Shutdown can only be called after the app has been started - otherwise an error is returned.
	Shutdown() error
}

// LifeCycle defines the application lifecycle. Each channel is closed when the app enters the state.
type LifeCycle interface {
	Starting() <-chan struct{}
	Started() <-chan struct{}
	// Ready means the app is ready to serve requests
	Ready() <-chan struct{}
	Stopping() <-chan struct{}
	// Done is closed after the app has stopped. If the app fails to start, then Done is closed, but Started is not.
	Done() <-chan struct{}
}

type app struct {
	desc       Desc
	instanceID InstanceID
	cfg        Config
	logger     *zerolog.Logger
	readiness  ReadinessWaitGroup

	constructors []interface{}
	funcs        []interface{}

	fxApp      *fx.App
	shutdowner fx.Shutdowner

	starting, started, stopping, done chan struct{}
}

func (a *app) String() string {
	return fmt.Sprintf("App{%v, InstanceID: %s, StartTimeout: %s, StopTimeout: %s, Provide: %v, Invoke: %v}",
		a.desc,
		a.instanceID,
		a.StartTimeout(),
		a.StopTimeout(),
		typeNames(a.constructors),
		typeNames(a.funcs),
	)
}

func (a *app) Desc() Desc {
	return a.desc
}

func (a *app) InstanceID() InstanceID {
	return a.instanceID
}

func (a *app) StartTimeout() time.Duration {
	return a.fxApp.StartTimeout()
}

func (a *app) StopTimeout() time.Duration {
	return a.fxApp.StopTimeout()
}

func (a *app) Run() error {
	select {
	case <-a.starting:
		return errors.New("app cannot be run again after it has already been started")
	default:
	}
	close(a.starting)
	defer close(a.done)

	// registered before starting, in order not to miss the shutdown signal
	signals := a.fxApp.Done()

	a.logEvent(StartingEvent, zerolog.NoLevel)(nil, "app starting")
	startCtx, cancel := context.WithTimeout(context.Background(), a.StartTimeout())
	defer cancel()
	startTime := time.Now()
	if err := a.fxApp.Start(startCtx); err != nil {
		a.logEvent(StartFailedEvent, zerolog.ErrorLevel)(errorEvent{err}, "app failed to start")
		return errors.Wrap(err, "app failed to start")
	}
	a.logEvent(StartedEvent, zerolog.NoLevel)(duration(time.Since(startTime)), "app started")
	close(a.started)
	a.readiness.Done()

	select {
	case <-a.readiness.Ready():
		a.logEvent(ReadyEvent, zerolog.NoLevel)(nil, "app is ready to service requests")
		return a.shutdown(<-signals)
	case signal := <-signals:
		return a.shutdown(signal)
	}
}

func (a *app) shutdown(signal os.Signal) error {
	close(a.stopping)
	a.logEvent(StoppingEvent, zerolog.NoLevel)(nil, "app stopping", signal.String())

	stopCtx, cancel := context.WithTimeout(context.Background(), a.StopTimeout())
	defer cancel()
	stopTime := time.Now()
	defer func() {
		a.logEvent(StoppedEvent, zerolog.NoLevel)(duration(time.Since(stopTime)), "app stopped")
	}()
	if err := a.fxApp.Stop(stopCtx); err != nil {
		a.logEvent(StopFailedEvent, zerolog.ErrorLevel)(errorEvent{err}, "app failed to stop cleanly")
		return errors.Wrap(err, "app failed to stop cleanly")
	}
	return nil
}

func (a *app) Starting() <-chan struct{} {
	return a.starting
}

func (a *app) Started() <-chan struct{} {
	return a.started
}

func (a *app) Ready() <-chan struct{} {
	return a.readiness.Ready()
}

func (a *app) Stopping() <-chan struct{} {
	return a.stopping
}

func (a *app) Done() <-chan struct{} {
	return a.done
}

func (a *app) Shutdown() error {
	select {
	case <-a.started:
		return a.shutdowner.Shutdown()
	default:
		return errors.New("app can only be shutdown after it has started")
	}
}

func (a *app) logEvent(id EventTypeID, level zerolog.Level) LogEvent {
	return id.NewLogEvent(a.logger, level)
}

func (a *app) logInitialized() {
	event := appInitialized{
		startTimeout: a.StartTimeout(),
		stopTimeout:  a.StopTimeout(),
		constructors: typeNames(a.constructors),
		funcs:        typeNames(a.funcs),
	}
	if build, ok := ReadBuildInfo(); ok {
		event.build = &build
	}
	a.logEvent(InitializedEvent, zerolog.NoLevel)(event, "app initialized")
}
