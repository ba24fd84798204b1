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
	"go.uber.org/fx"
	"net/http"
	"testing"
	"time"
)

func TestNewReadinessWaitGroup(t *testing.T) {
	wg := fxapp.NewReadinessWaitGroup(2)
	if wg.Count() != 2 {
		t.Errorf("*** count should be 2: %d", wg.Count())
	}
	wg.Inc()
	wg.Done()
	wg.Done()
	select {
	case <-wg.Ready():
		t.Fatal("*** wait group should not be ready")
	default:
	}
	wg.Done()
	select {
	case <-wg.Ready():
	default:
		t.Fatal("*** wait group should be ready")
	}

	// adding to a ready wait group resets it
	wg.Add(1)
	select {
	case <-wg.Ready():
		t.Error("*** wait group should no longer be ready")
	default:
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("*** Done should panic when the count is already zero")
			}
		}()
		wg.Done()
		wg.Done()
	}()
}

func TestNewReadinessWaitGroup_Zero(t *testing.T) {
	wg := fxapp.NewReadinessWaitGroup(0)
	select {
	case <-wg.Ready():
	default:
		t.Error("*** a zero wait group is ready")
	}
}

// components can delay readiness after the app has started, e.g., to warm up caches
func TestReadinessProbe(t *testing.T) {
	release := make(chan struct{})
	var server *fxapp.HTTPServer
	app, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		Invoke(func(lc fx.Lifecycle, readiness fxapp.ReadinessWaitGroup) {
			readiness.Inc()
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						<-release
						readiness.Done()
					}()
					return nil
				},
			})
		}).
		Populate(&server).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	go app.Run()
	defer fxapptest.Stop(t, app)
	select {
	case <-app.Started():
	case <-time.After(5 * time.Second):
		t.Fatal("*** app did not start")
	}

	resp, _ := httpGet(t, "http://"+server.Addr()+fxapp.ReadinessProbePath)
	if resp.StatusCode != http.StatusServiceUnavailable || resp.Header.Get("x-readiness-wait-group-count") == "" {
		t.Errorf("*** app should not be ready: %d %v", resp.StatusCode, resp.Header)
	}

	close(release)
	select {
	case <-app.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("*** app did not become ready")
	}
	resp, _ = httpGet(t, "http://"+server.Addr()+fxapp.ReadinessProbePath)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("*** app should be ready: %d", resp.StatusCode)
	}
}
