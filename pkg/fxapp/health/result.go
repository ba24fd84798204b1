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

package health

import (
	"encoding/json"
	"github.com/oklog/ulid"
	"github.com/rs/zerolog"
	"time"
)

// Result of running a health check
type Result struct {
	HealthCheckID ulid.ULID
	// Time is when the health check was run
	Time time.Time
	// Duration is how long it took for the health check to run
	Duration time.Duration
	Status   Status
	// Err is nil when Status is Green
	Err error
}

func newResult(id ulid.ULID, start time.Time, status Status, err error) Result {
	return Result{
		HealthCheckID: id,
		Time:          start,
		Duration:      time.Since(start),
		Status:        status,
		Err:           err,
	}
}

// MarshalJSON implements json.Marshaler
func (r Result) MarshalJSON() ([]byte, error) {
	var err string
	if r.Err != nil {
		err = r.Err.Error()
	}
	return json.Marshal(struct {
		HealthCheckID ulid.ULID `json:"id"`
		Time          time.Time `json:"time"`
		Duration      string    `json:"duration"`
		Status        string    `json:"status"`
		Err           string    `json:"error,omitempty"`
	}{
		r.HealthCheckID,
		r.Time,
		r.Duration.String(),
		r.Status.String(),
		err,
	})
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (r Result) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", r.HealthCheckID.String()).
		Str("status", r.Status.String()).
		Dur("duration", r.Duration)
	if r.Err != nil {
		e.Err(r.Err)
	}
}
