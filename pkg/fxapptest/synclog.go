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

// Package fxapptest provides test helpers for apps built with fxapp.
package fxapptest

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

// SyncLog is a concurrency safe log sink.
//
// Use Case: capturing the app's JSON log in unit tests while multiple go routines are logging.
type SyncLog struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewSyncLog returns a new empty SyncLog
func NewSyncLog() *SyncLog {
	return &SyncLog{}
}

func (l *SyncLog) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(data)
}

func (l *SyncLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// LogEvent is the subset of the standard log event fields that tests assert on.
type LogEvent struct {
	Level   string `json:"l"`
	Event   string `json:"n"`
	Message string `json:"m"`
	Error   string `json:"e"`
}

// Events parses each log line as a LogEvent. Lines that are not JSON are skipped.
func (l *SyncLog) Events() []LogEvent {
	var events []LogEvent
	for _, line := range strings.Split(l.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events
}

// HasEvent returns true if an event with the specified event type ID was logged
func (l *SyncLog) HasEvent(eventTypeID string) bool {
	for _, event := range l.Events() {
		if event.Event == eventTypeID {
			return true
		}
	}
	return false
}
