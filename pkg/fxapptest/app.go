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

package fxapptest

import (
	"github.com/Masterminds/semver"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/oysterpack/visits/pkg/ulids"
	"log"
	"testing"
	"time"
)

// NewDesc returns a valid app descriptor, assigned new random IDs
func NewDesc() fxapp.Desc {
	desc, err := fxapp.NewDescBuilder().
		SetID(ulids.MustNew()).
		SetName("foo").
		SetVersion(semver.MustParse("0.0.1")).
		SetReleaseID(ulids.MustNew()).
		Build()
	if err != nil {
		log.Panic(err)
	}
	return desc
}

// NewBuilder returns an app builder configured for testing:
//   - logs at debug level to the SyncLog
//   - the HTTP server listens on a random local port
//   - start and stop timeouts are shortened
func NewBuilder(log *SyncLog) fxapp.Builder {
	return fxapp.NewBuilder(NewDesc()).
		Configure(fxapp.Config{
			LogLevel:     "debug",
			HTTPAddr:     "127.0.0.1:0",
			StartTimeout: 5 * time.Second,
			StopTimeout:  5 * time.Second,
		}).
		LogWriter(log)
}

// Start runs the app in the background and waits until it is ready. The app is shutdown when the test completes.
//
// The test fails if the app does not become ready within its start timeout.
func Start(t *testing.T, app fxapp.App) <-chan error {
	t.Helper()
	errs := make(chan error, 1)
	go func() {
		errs <- app.Run()
	}()
	t.Cleanup(func() {
		Stop(t, app)
	})

	select {
	case <-app.Ready():
	case <-app.Done():
		t.Fatalf("*** app failed to start: %v", <-errs)
	case <-time.After(app.StartTimeout() + time.Second):
		t.Fatal("*** app did not become ready in time")
	}
	return errs
}

// Stop shuts down the app, if it was started, and waits until it is done
func Stop(t *testing.T, app fxapp.App) {
	t.Helper()
	select {
	case <-app.Done():
		return
	default:
	}
	select {
	case <-app.Started():
		if err := app.Shutdown(); err != nil {
			t.Errorf("*** app shutdown failed: %v", err)
		}
	default:
	}
	select {
	case <-app.Done():
	case <-time.After(app.StopTimeout() + time.Second):
		t.Error("*** app did not shutdown in time")
	}
}
