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
	"go.uber.org/fx/fxevent"
)

// fxLogger routes fx's own lifecycle events into the app's zerolog logger.
// Successful events are logged at debug level, failures at error level.
type fxLogger struct {
	logger *zerolog.Logger
}

func newFxLogger(logger *zerolog.Logger) fxevent.Logger {
	return fxLogger{EventLogger(ComponentLogger(logger, "fx"), FxEvent)}
}

func (l fxLogger) event(err error) *zerolog.Event {
	if err != nil {
		return l.logger.Error().Err(err)
	}
	return l.logger.Debug()
}

func (l fxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		l.event(e.Err).
			Str("callee", e.FunctionName).
			Str("caller", e.CallerName).
			Dur("runtime", e.Runtime).
			Msg("OnStart hook executed")
	case *fxevent.OnStopExecuted:
		l.event(e.Err).
			Str("callee", e.FunctionName).
			Str("caller", e.CallerName).
			Dur("runtime", e.Runtime).
			Msg("OnStop hook executed")
	case *fxevent.Provided:
		l.event(e.Err).
			Str("constructor", e.ConstructorName).
			Strs("types", e.OutputTypeNames).
			Msg("provided")
	case *fxevent.Invoked:
		l.event(e.Err).
			Str("function", e.FunctionName).
			Msg("invoked")
	case *fxevent.RolledBack:
		l.event(e.Err).Msg("start failed, rolled back")
	case *fxevent.Started:
		l.event(e.Err).Msg("started")
	case *fxevent.Stopped:
		l.event(e.Err).Msg("stopped")
	}
}
