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

package fxapp_test

import (
	"context"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/oysterpack/visits/pkg/fxapptest"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"strings"
	"sync"
	"testing"
	"time"
)

type Foo string
type Bar string

func ProvideFoo() Foo {
	return "foo"
}

func ProvideBar(foo Foo) Bar {
	return Bar(foo + "bar")
}

// - constructors and functions are registered with the app
// - functions are invoked when the app is built
// - values can be extracted from the app via Populate
func TestAppBuilder(t *testing.T) {
	log := fxapptest.NewSyncLog()
	var bar Bar
	var invoked []string
	app, err := fxapptest.NewBuilder(log).
		Provide(ProvideFoo, ProvideBar).
		Invoke(
			func(foo Foo) { invoked = append(invoked, string(foo)) },
			func(bar Bar) { invoked = append(invoked, string(bar)) },
		).
		Populate(&bar).
		Build()
	if err != nil {
		t.Fatalf("*** app build failed: %v", err)
	}

	if bar != "foobar" {
		t.Errorf("*** Bar was not populated: %q", bar)
	}
	if strings.Join(invoked, ",") != "foo,foobar" {
		t.Errorf("*** functions should be invoked in registration order: %v", invoked)
	}
	if !log.HasEvent(fxapp.InitializedEvent.String()) {
		t.Error("*** app initialized event was not logged")
	}
	if app.StartTimeout() != 5*time.Second || app.StopTimeout() != 5*time.Second {
		t.Errorf("*** app timeouts do not match the config: %s %s", app.StartTimeout(), app.StopTimeout())
	}
	if app.InstanceID().ULID().Time() == 0 {
		t.Error("*** app instance ID should have been assigned")
	}
}

func TestAppBuilder_Options(t *testing.T) {
	module := fx.Options(fx.Provide(ProvideFoo, ProvideBar))
	var bar Bar
	_, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		Options(module).
		Populate(&bar).
		Build()
	if err != nil {
		t.Fatalf("*** app build failed: %v", err)
	}
	if bar != "foobar" {
		t.Errorf("*** Bar was not populated: %q", bar)
	}
}

func TestBuildingAppWithNoFunctions(t *testing.T) {
	_, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).Build()
	if err == nil {
		t.Fatal("*** app build should have failed because no functions were registered")
	}
	t.Log(err)
}

func TestBuildingAppWithNoDesc(t *testing.T) {
	_, err := fxapp.NewBuilder(nil).Provide(ProvideFoo).Build()
	if err == nil {
		t.Fatal("*** app build should have failed because the desc is nil")
	}
}

func TestBuildingAppWithInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  fxapp.Config
	}{
		{"log level", fxapp.Config{LogLevel: "trace", StartTimeout: time.Second, StopTimeout: time.Second}},
		{"start timeout", fxapp.Config{LogLevel: "info", StopTimeout: time.Second}},
		{"stop timeout", fxapp.Config{LogLevel: "info", StartTimeout: time.Second}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := fxapp.NewBuilder(fxapptest.NewDesc()).
				Configure(test.cfg).
				Provide(ProvideFoo).
				Build()
			if err == nil {
				t.Error("*** app build should have failed")
			}
		})
	}
}

func TestAppInitFailure(t *testing.T) {
	log := fxapptest.NewSyncLog()
	_, err := fxapptest.NewBuilder(log).
		Invoke(func(foo Foo) {}).
		Build()
	if err == nil {
		t.Fatal("*** app build should have failed because Foo is not provided")
	}
	if !log.HasEvent(fxapp.InitializedEvent.String()) {
		t.Error("*** app init failure should have been logged")
	}
}

// - the app transitions through its lifecycle states
// - each lifecycle transition is logged
func TestRunningApp(t *testing.T) {
	log := fxapptest.NewSyncLog()
	app, err := fxapptest.NewBuilder(log).Provide(ProvideFoo).Build()
	if err != nil {
		t.Fatal(err)
	}

	if err := app.Shutdown(); err == nil {
		t.Error("*** app cannot be shutdown before it is started")
	}

	errs := fxapptest.Start(t, app)
	for _, c := range []<-chan struct{}{app.Starting(), app.Started(), app.Ready()} {
		select {
		case <-c:
		default:
			t.Error("*** lifecycle channel should be closed once the app is ready")
		}
	}

	if err := app.Shutdown(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-app.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("*** app did not shutdown")
	}
	if err := <-errs; err != nil {
		t.Errorf("*** app should have stopped cleanly: %v", err)
	}
	select {
	case <-app.Stopping():
	default:
		t.Error("*** Stopping should be closed")
	}

	for _, event := range []fxapp.EventTypeID{
		fxapp.InitializedEvent,
		fxapp.StartingEvent,
		fxapp.StartedEvent,
		fxapp.ReadyEvent,
		fxapp.StoppingEvent,
		fxapp.StoppedEvent,
	} {
		if !log.HasEvent(event.String()) {
			t.Errorf("*** lifecycle event was not logged: %s", event)
		}
	}

	if err := app.Run(); err == nil {
		t.Error("*** app cannot be run again")
	}
}

// - if an OnStart hook fails, the app fails to start
// - Done is closed, but Started is not
func TestAppStartFailure(t *testing.T) {
	log := fxapptest.NewSyncLog()
	app, err := fxapptest.NewBuilder(log).
		Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					return errors.New("BOOM!!!")
				},
			})
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if err := app.Run(); err == nil {
		t.Fatal("*** app should have failed to start")
	}
	select {
	case <-app.Started():
		t.Error("*** app should not have started")
	default:
	}
	select {
	case <-app.Done():
	default:
		t.Error("*** Done should be closed")
	}
	if !log.HasEvent(fxapp.StartFailedEvent.String()) {
		t.Error("*** start failure should have been logged")
	}
}

// an OnStart hook that waits on a backing service is bounded by the start timeout
func TestAppStartTimeout(t *testing.T) {
	app, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		SetStartTimeout(50 * time.Millisecond).
		Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					<-ctx.Done()
					return ctx.Err()
				},
			})
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := app.Run(); err == nil {
		t.Fatal("*** app should have failed to start")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("*** app start should have timed out: %s", time.Since(start))
	}
}

// the HTTP server only starts listening after every other component has started
func TestHTTPServerStartsLast(t *testing.T) {
	var server *fxapp.HTTPServer
	var mu sync.Mutex
	var addrOnStart *string
	app, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					mu.Lock()
					defer mu.Unlock()
					addr := server.Addr()
					addrOnStart = &addr
					return nil
				},
			})
		}).
		Populate(&server).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	fxapptest.Start(t, app)

	mu.Lock()
	defer mu.Unlock()
	switch {
	case addrOnStart == nil:
		t.Error("*** OnStart hook was not run")
	case *addrOnStart != "":
		t.Errorf("*** HTTP server was listening before the app components started: %s", *addrOnStart)
	}
	if server.Addr() == "" {
		t.Error("*** HTTP server should be listening")
	}
}
