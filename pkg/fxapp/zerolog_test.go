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
	"bytes"
	"encoding/json"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/oysterpack/visits/pkg/fxapptest"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"testing"
)

func TestZerologFieldNames(t *testing.T) {
	type StackFrame struct {
		Func   string
		Line   string
		Source string
	}

	type LogEvent struct {
		Timestamp uint   `json:"t"`
		Message   string `json:"m"`
		Level     string `json:"l"`
		Name      string `json:"n"`
		Component string `json:"c"`
		Error     string `json:"e"`
		Stack     []StackFrame
	}

	buf := new(bytes.Buffer)
	logger := zerolog.New(buf).With().Timestamp().Logger()
	compLogger := fxapp.ComponentLogger(&logger, "foo")
	eventLogger := fxapp.EventLogger(compLogger, "bar")

	eventLogger.Error().
		Stack().
		Err(errors.New("BOOM!!!")).
		Msg("foobar")

	t.Log(buf.String())

	var logEvent LogEvent
	err := json.Unmarshal(buf.Bytes(), &logEvent)
	switch {
	case err != nil:
		t.Errorf("*** failed to parse log event: %v", err)
	case logEvent.Timestamp == 0:
		t.Error("*** timestamp should be unix time")
	case logEvent.Message != "foobar":
		t.Errorf("*** message does not match: %q", logEvent.Message)
	case logEvent.Level != zerolog.ErrorLevel.String():
		t.Errorf("*** level does not match: %q", logEvent.Level)
	case logEvent.Name != "bar":
		t.Errorf("*** event name does not match: %q", logEvent.Name)
	case logEvent.Component != "foo":
		t.Errorf("*** component does not match: %q", logEvent.Component)
	case logEvent.Error != "BOOM!!!":
		t.Errorf("*** error does not match: %q", logEvent.Error)
	case len(logEvent.Stack) == 0:
		t.Error("*** error stack should have been logged")
	}
}

// every app log event carries the app ID, release ID, instance ID, and a unique event ID
func TestNewLogger(t *testing.T) {
	desc := fxapptest.NewDesc()
	instanceID := fxapp.NewInstanceID()
	buf := new(bytes.Buffer)
	logger := fxapp.NewLogger(buf, desc, instanceID, zerolog.InfoLevel)

	logger.Debug().Msg("filtered")
	logger.Info().Msg("info")

	var logEvent struct {
		App       string `json:"a"`
		Release   string `json:"r"`
		Instance  string `json:"x"`
		EventID   string `json:"z"`
		Timestamp uint   `json:"t"`
	}
	if err := json.Unmarshal(buf.Bytes(), &logEvent); err != nil {
		t.Fatalf("*** expected a single log event: %v : %s", err, buf)
	}
	switch {
	case logEvent.App != desc.ID().String():
		t.Errorf("*** app ID does not match: %s", logEvent.App)
	case logEvent.Release != desc.ReleaseID().String():
		t.Errorf("*** release ID does not match: %s", logEvent.Release)
	case logEvent.Instance != instanceID.String():
		t.Errorf("*** instance ID does not match: %s", logEvent.Instance)
	case logEvent.EventID == "":
		t.Error("*** event ID should have been set")
	}
}
