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

package database

import (
	"database/sql"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/oysterpack/visits/pkg/fxapp/health"
	"github.com/oysterpack/visits/pkg/fxapptest"
	"github.com/pkg/errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Host:          "localhost",
		Port:          5432,
		User:          "postgres",
		Database:      "postgres",
		SSLMode:       "disable",
		RetryInterval: 10 * time.Millisecond,
		MaxOpenConns:  1,
	}
}

func TestModule_ConnectsOnStart(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing() // connect
	mock.ExpectPing() // health check
	mock.ExpectClose()

	log := fxapptest.NewSyncLog()
	var healthChecks *fxapp.HealthChecks
	app, err := fxapptest.NewBuilder(log).
		Provide(
			testConfig,
			func() *sql.DB { return db },
			newHealthCheck,
		).
		Invoke(bindLifecycle).
		Populate(&healthChecks).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	fxapptest.Start(t, app)

	if !log.HasEvent(ConnectRetryEvent.String()) {
		t.Error("*** failed connection attempt should have been logged")
	}
	if !log.HasEvent(ConnectedEvent.String()) {
		t.Error("*** connection should have been logged")
	}

	deadline := time.After(5 * time.Second)
	for len(healthChecks.Results()) == 0 {
		select {
		case <-deadline:
			t.Fatal("*** database health check did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}
	result := healthChecks.Results()[0]
	if result.HealthCheckID != HealthCheckID || result.Status != health.Green {
		t.Errorf("*** database health check should be Green: %v", result)
	}

	fxapptest.Stop(t, app)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestModule_StartFailsWhenDatabaseIsDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for i := 0; i < 100; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	log := fxapptest.NewSyncLog()
	app, err := fxapptest.NewBuilder(log).
		SetStartTimeout(100 * time.Millisecond).
		Provide(
			testConfig,
			func() *sql.DB { return db },
		).
		Invoke(bindLifecycle).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if err := app.Run(); err == nil {
		t.Fatal("*** app should have failed to start")
	}
	select {
	case <-app.Started():
		t.Error("*** app should not have started")
	default:
	}
	select {
	case <-app.Done():
	default:
		t.Error("*** Done should be closed after the app failed to start")
	}
	if !log.HasEvent(fxapp.StartFailedEvent.String()) {
		t.Error("*** start failure should have been logged")
	}
}
