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
	"log"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HTTPHandler is used to group HTTPEndpoint(s) together.
// The HTTPEndpoint(s) are automatically registered with the app's HTTP server.
type HTTPHandler struct {
	fx.Out

	HTTPEndpoint `group:"HTTPEndpoint"`
}

// NewHTTPHandler constructs a new HTTPHandler
func NewHTTPHandler(path string, handler http.Handler) HTTPHandler {
	return HTTPHandler{
		HTTPEndpoint: HTTPEndpoint{
			Path:    path,
			Handler: handler,
		},
	}
}

// HTTPEndpoint maps an HTTP handler to an HTTP path
type HTTPEndpoint struct {
	Path    string
	Handler http.Handler
}

type httpServerOpts struct {
	fx.In

	Endpoints []HTTPEndpoint `group:"HTTPEndpoint"`
	Config    Config
	Logger    *zerolog.Logger
	Lifecycle fx.Lifecycle
}

// validate runs the following checks:
//	- endpoint paths are unique
//	- handlers are not nil
func (opts httpServerOpts) validate() error {
	paths := make(map[string]bool, len(opts.Endpoints))
	for _, endpoint := range opts.Endpoints {
		if paths[endpoint.Path] {
			return fmt.Errorf("duplicate HTTP endpoint path: %v", endpoint.Path)
		}
		if endpoint.Handler == nil {
			return fmt.Errorf("http handler is nil for: %v", endpoint.Path)
		}
		paths[endpoint.Path] = true
	}
	return nil
}

// HTTPServer is the app HTTP server. It serves every HTTPEndpoint provided to the app.
//
// The server binds its listener in its OnStart hook, which is registered after the OnStart hooks of every other
// app component. Thus, the app only accepts traffic once its dependencies have started.
type HTTPServer struct {
	server    *http.Server
	endpoints []string

	mu   sync.RWMutex
	addr net.Addr
}

// Addr returns the address the server is listening on. It is empty until the server has started.
func (s *HTTPServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Endpoints returns the registered endpoint paths in sorted order
func (s *HTTPServer) Endpoints() []string {
	endpoints := make([]string, len(s.endpoints))
	copy(endpoints, s.endpoints)
	return endpoints
}

func newHTTPServer(opts httpServerOpts) (*HTTPServer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	endpoints := make([]string, 0, len(opts.Endpoints))
	for _, endpoint := range opts.Endpoints {
		mux.Handle(endpoint.Path, endpoint.Handler)
		endpoints = append(endpoints, endpoint.Path)
	}
	sort.Strings(endpoints)

	logger := ComponentLogger(opts.Logger, "http")
	s := &HTTPServer{
		server: &http.Server{
			Addr:              opts.Config.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: time.Second,
			MaxHeaderBytes:    1024,
			ErrorLog:          log.New(EventLogger(logger, HTTPServerEvent), "", 0),
		},
		endpoints: endpoints,
	}

	logEvent := HTTPServerEvent.NewLogEvent(logger, zerolog.InfoLevel)
	logError := HTTPServerEvent.NewLogEvent(logger, zerolog.ErrorLevel)
	opts.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", s.server.Addr)
			if err != nil {
				return errors.Wrapf(err, "HTTP server failed to listen on: %s", s.server.Addr)
			}
			s.mu.Lock()
			s.addr = ln.Addr()
			s.mu.Unlock()

			logEvent(httpServerInfo{s.Addr(), s.endpoints}, "HTTP server started")
			go func() {
				if err := s.server.Serve(ln); err != http.ErrServerClosed {
					logError(errorEvent{err}, "HTTP server has exited with an error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.server.Shutdown(ctx)
		},
	})

	return s, nil
}

type httpServerInfo struct {
	addr      string
	endpoints []string
}

func (info httpServerInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("addr", info.addr).
		Strs("endpoints", info.endpoints)
}
