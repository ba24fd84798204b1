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
	"time"
)

// EventTypeID is used as an event type ID.
// It must be globally unique - ULIDs are recommended.
type EventTypeID string

func (e EventTypeID) String() string {
	return string(e)
}

// LogEvent is a function used to log events.
type LogEvent func(eventData zerolog.LogObjectMarshaler, msg string, tags ...string)

// NewLogEvent creates a new function used to log events using a standardized structure, e.g.,
//
//	{
//	  "l": "error", -------------------------------------- event level
//	  "a": "01DE379HHM9Y3QYBDB4MSY7YYQ", ----------------- app ID
//	  "r": "01DE379HHNRJ4YS4NY4CMJX5YE", ----------------- app release ID
//	  "x": "01DE379HHN2RRX9YQCG2DN9CHG", ----------------- app instance ID
//	  "n": "01K52SEE3X7EB1CMYN3BHAE6T8", ----------------- event type ID
//	  "01K52SEE3X7EB1CMYN3BHAE6T8": { -------------------- event type ID is used as event object dictionary key (optional)
//		"key": "visits", --------------------------------- event object data (optional)
//		"e": "connection refused" ------------------------ event object data (optional)
//	  },
//	  "g": ["tag-a","tag-b"], ---------------------------- event tags (optional)
//	  "z": "01DE379HHNM87XT4PBHXYYBTYS", ----------------- event ID
//	  "t": 1561328928,
//	  "m": "cache increment failed" ---------------------- event short description
//	}
func (e EventTypeID) NewLogEvent(logger *zerolog.Logger, level zerolog.Level) LogEvent {
	eventLogger := EventLogger(logger, e)
	return func(eventObject zerolog.LogObjectMarshaler, msg string, tags ...string) {
		event := eventLogger.WithLevel(level)
		if eventObject != nil {
			event.Object(e.String(), eventObject)
		}
		if len(tags) > 0 {
			event.Strs("g", tags)
		}
		event.Msg(msg)
	}
}

// app lifecycle event IDs
//
// NOTE: lifecycle events are logged with no level to ensure they are always logged, regardless of the log level
const (
	InitializedEvent EventTypeID = "01K52SEDQ6QH1CA8EM75ZDFRG6"
	StartingEvent    EventTypeID = "01K52SEDRBNMCFF8A5SYFZF2B7"
	StartFailedEvent EventTypeID = "01K52SEDSGCNPXRPGEZ4TH2M8C"
	StartedEvent     EventTypeID = "01K52SEDTN6Y6Z0V0NHKXWDE1Y"
	ReadyEvent       EventTypeID = "01K52SEDVTD97SBQ7AMCAQ61BC"
	StoppingEvent    EventTypeID = "01K52SEDWZT24GBB207CYECPQN"
	StopFailedEvent  EventTypeID = "01K52SEDY47NV7QNF0H4SEX3BF"
	StoppedEvent     EventTypeID = "01K52SEDZ9KACK1ZHAKSARB62K"
	FxEvent          EventTypeID = "01K52SEE0EH8HP5KJ2GNQS5G84"
	HealthCheckEvent EventTypeID = "01K52SEE1KC5ZK901H2ESGWXFP"
	HTTPServerEvent  EventTypeID = "01K52SEE2RV5FSQNPY67BG7309"
)

type appInitialized struct {
	startTimeout, stopTimeout time.Duration
	constructors, funcs       []string
	build                     *BuildInfo
}

func (event appInitialized) MarshalZerologObject(e *zerolog.Event) {
	e.Dur("start_timeout", event.startTimeout).
		Dur("stop_timeout", event.stopTimeout).
		Strs("provides", event.constructors).
		Strs("invokes", event.funcs)
	if event.build != nil {
		e.Object("build", event.build)
	}
}

type duration time.Duration

func (d duration) MarshalZerologObject(e *zerolog.Event) {
	e.Dur("duration", time.Duration(d))
}

type errorEvent struct {
	error
}

func (err errorEvent) MarshalZerologObject(e *zerolog.Event) {
	e.Err(err.error)
}
