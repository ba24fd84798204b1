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

// Package database establishes the relational database connection pool.
//
// The connection is opened at startup and kept healthy for the life of the app. No queries are run against it.
package database

import (
	"context"
	"database/sql"
	"github.com/lib/pq"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"time"
)

// database event IDs
const (
	ConnectRetryEvent fxapp.EventTypeID = "01K52SEEAV023JFAKHR6DHW8YB"
	ConnectedEvent    fxapp.EventTypeID = "01K52SEEC0ZYNCT5SMP6DQE5S5"
)

// Open returns a connection pool using the lib/pq driver. No connection is made until the pool is used.
func Open(cfg Config) (*sql.DB, error) {
	connector, err := pq.NewConnector(cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "invalid database config")
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	return db, nil
}

// Connect pings the database until it responds, or until the context is done.
// Each failed attempt is logged.
func Connect(ctx context.Context, db *sql.DB, retryInterval time.Duration, logger *zerolog.Logger) error {
	logRetry := ConnectRetryEvent.NewLogEvent(logger, zerolog.WarnLevel)
	logConnected := ConnectedEvent.NewLogEvent(logger, zerolog.InfoLevel)
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			logConnected(connectAttempt{attempt, nil}, "connected to database")
			return nil
		}
		logRetry(connectAttempt{attempt, err}, "database connection attempt failed")

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrapf(err, "failed to connect to database after %d attempts", attempt)
		case <-timer.C:
		}
	}
}

type connectAttempt struct {
	attempt int
	err     error
}

func (a connectAttempt) MarshalZerologObject(e *zerolog.Event) {
	e.Int("attempt", a.attempt)
	if a.err != nil {
		e.Err(a.err)
	}
}
