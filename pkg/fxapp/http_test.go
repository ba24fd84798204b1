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
	"fmt"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/oysterpack/visits/pkg/fxapptest"
	"io"
	"net/http"
	"testing"
	"time"
)

func httpGet(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("*** GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

// - app endpoints are registered via HTTPHandler values
// - the standard endpoints are always registered
func TestHTTPServer(t *testing.T) {
	var server *fxapp.HTTPServer
	app, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		Provide(func() fxapp.HTTPHandler {
			return fxapp.NewHTTPHandler("/hello", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				fmt.Fprint(w, "hello")
			}))
		}).
		Populate(&server).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	expectedEndpoints := []string{"/health", "/hello", "/live", "/metrics", "/ready"}
	if fmt.Sprint(server.Endpoints()) != fmt.Sprint(expectedEndpoints) {
		t.Errorf("*** endpoints do not match: %v", server.Endpoints())
	}
	if server.Addr() != "" {
		t.Errorf("*** server should not be listening before the app is started: %s", server.Addr())
	}

	fxapptest.Start(t, app)
	baseURL := "http://" + server.Addr()

	resp, body := httpGet(t, baseURL+"/hello")
	if resp.StatusCode != http.StatusOK || body != "hello" {
		t.Errorf("*** unexpected response: %d %q", resp.StatusCode, body)
	}

	resp, _ = httpGet(t, baseURL+fxapp.LivenessProbePath)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("*** liveness probe failed: %d", resp.StatusCode)
	}
	resp, _ = httpGet(t, baseURL+fxapp.ReadinessProbePath)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("*** readiness probe failed: %d", resp.StatusCode)
	}
}

func TestHTTPServer_DuplicateEndpoints(t *testing.T) {
	handler := func() fxapp.HTTPHandler {
		return fxapp.NewHTTPHandler(fxapp.MetricsPath, http.NotFoundHandler())
	}
	_, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		Provide(handler).
		Invoke(func(*fxapp.HTTPServer) {}).
		Build()
	if err == nil {
		t.Error("*** app build should fail because of the duplicate endpoint path")
	}
}

func TestHTTPServer_NilHandler(t *testing.T) {
	_, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		Provide(func() fxapp.HTTPHandler {
			return fxapp.NewHTTPHandler("/nil", nil)
		}).
		Build()
	if err == nil {
		t.Error("*** app build should fail because the handler is nil")
	}
}

func TestHTTPServer_ListenFailure(t *testing.T) {
	var server *fxapp.HTTPServer
	first, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		Provide(ProvideFoo).
		Populate(&server).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	fxapptest.Start(t, first)

	second, err := fxapptest.NewBuilder(fxapptest.NewSyncLog()).
		SetHTTPAddr(server.Addr()).
		Provide(ProvideFoo).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Run(); err == nil {
		t.Error("*** app should fail to start when the HTTP address is in use")
	}
}
