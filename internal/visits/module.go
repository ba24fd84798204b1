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

package visits

import (
	"github.com/oysterpack/visits/internal/cache"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module registers the Handler on the app HTTP server. It depends on a cache.Counter.
var Module = fx.Options(
	fx.Provide(newHandler),
)

func newHandler(counter cache.Counter, logger *zerolog.Logger, registerer prometheus.Registerer) (fxapp.HTTPHandler, error) {
	handler := NewHandler(counter, logger)
	if err := handler.Register(registerer); err != nil {
		return fxapp.HTTPHandler{}, err
	}
	return fxapp.NewHTTPHandler(Path, handler), nil
}
