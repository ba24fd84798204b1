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
	"github.com/oysterpack/visits/pkg/ulids"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"io"
)

// Applies standard zerolog initialization.
//
// The following global settings are applied for performance reasons:
//   - the following standard logger field names are shortened
//     - Timestamp -> t
//     - Level -> l
//     - Message -> m
//     - Error -> e
//   - Unix time format is used - seconds granularity is sufficient for log events
//
// An error stack marshaller is configured.
func init() {
	zerolog.TimestampFieldName = "t"
	zerolog.LevelFieldName = "l"
	zerolog.MessageFieldName = "m"
	zerolog.ErrorFieldName = "e"

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldInteger = true

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// NewLogger returns the app logger. Every log event carries the app ID ('a'), release ID ('r'),
// instance ID ('x') and a unique event ID ('z').
func NewLogger(w io.Writer, desc Desc, instanceID InstanceID, level zerolog.Level) *zerolog.Logger {
	logger := zerolog.New(w).
		Level(level).
		Hook(zerolog.HookFunc(setEventID)).
		With().
		Timestamp().
		Str("a", desc.ID().String()).
		Str("r", desc.ReleaseID().String()).
		Str("x", instanceID.String()).
		Logger()
	return &logger
}

// EventLogger returns a new logger with the event type ID field 'n' set to the specified value.
func EventLogger(logger *zerolog.Logger, id EventTypeID) *zerolog.Logger {
	l := logger.With().Str("n", id.String()).Logger()
	return &l
}

// ComponentLogger returns a new logger with the component field 'c' set to the specified value.
func ComponentLogger(logger *zerolog.Logger, name string) *zerolog.Logger {
	l := logger.With().Str("c", name).Logger()
	return &l
}

// setEventID injects an event ID field named 'z'.
//
// Use Case: Enables log event to be referenced.
func setEventID(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str("z", ulids.MustNew().String())
}
