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
	"github.com/rs/zerolog"
	"runtime/debug"
)

// BuildInfo is the module build information embedded in the running binary. It is logged with the app initialized
// event, which makes it possible to tell which versions of the Redis and Postgres drivers a running instance uses.
type BuildInfo struct {
	Path      string
	GoVersion string
	Main      Module
	Deps      []Module
}

// Module is a module version
type Module struct {
	Path     string
	Version  string
	Checksum string
}

// ReadBuildInfo returns the build information embedded in the running binary.
// It returns false for binaries that were not built with module support.
func ReadBuildInfo() (BuildInfo, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return BuildInfo{}, false
	}
	deps := make([]Module, 0, len(info.Deps))
	for _, dep := range info.Deps {
		deps = append(deps, newModule(dep))
	}
	return BuildInfo{
		Path:      info.Path,
		GoVersion: info.GoVersion,
		Main:      newModule(&info.Main),
		Deps:      deps,
	}, true
}

func newModule(m *debug.Module) Module {
	if m.Replace != nil {
		m = m.Replace
	}
	return Module{m.Path, m.Version, m.Sum}
}

func (b BuildInfo) MarshalZerologObject(e *zerolog.Event) {
	deps := zerolog.Arr()
	for _, dep := range b.Deps {
		deps.Object(dep)
	}
	e.Str("path", b.Path).
		Str("go", b.GoVersion).
		Object("main", b.Main).
		Array("deps", deps)
}

func (m Module) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", m.Path).
		Str("version", m.Version)
	if m.Checksum != "" {
		e.Str("checksum", m.Checksum)
	}
}
