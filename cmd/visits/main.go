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

// visits is an HTTP service that counts visits in Redis:
//
//	GET / -> 200 Hello 🚀 Visits: 42
//
// The cache and database connections are established before the HTTP server starts listening. If either cannot be
// established within the app start timeout, then the process exits with a non-zero exit code.
//
// The app descriptor and container settings are loaded from APP12X_* env vars, the cache from REDIS_* env vars, and
// the database from the PG* env vars.
package main

import (
	"github.com/Masterminds/semver"
	"github.com/oysterpack/visits/internal/cache"
	"github.com/oysterpack/visits/internal/database"
	"github.com/oysterpack/visits/internal/visits"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/oysterpack/visits/pkg/ulids"
	"github.com/rs/zerolog"
	"os"
)

var (
	appID     = ulids.MustParse("01K52SEEEA7VB2F7MMM526WQYT")
	releaseID = ulids.MustParse("01K52SEEFFKYC8ZKA41D0FW5V7")
	version   = semver.MustParse("1.0.0")
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	desc, err := loadDesc()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid app descriptor")
	}
	cfg, err := fxapp.LoadConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid app config")
	}

	app, err := fxapp.NewBuilder(desc).
		Configure(cfg).
		Options(
			database.Module,
			cache.Module,
			visits.Module,
		).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}
	// start and stop failures are logged by the app
	if err := app.Run(); err != nil {
		os.Exit(1)
	}
}

func loadDesc() (fxapp.Desc, error) {
	defaults, err := fxapp.NewDescBuilder().
		SetID(appID).
		SetName("visits").
		SetVersion(version).
		SetReleaseID(releaseID).
		Build()
	if err != nil {
		return nil, err
	}
	return fxapp.LoadDescFromEnv(defaults)
}
