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
	"context"
	"database/sql"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/oysterpack/visits/pkg/fxapp/health"
	"github.com/oysterpack/visits/pkg/ulids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"time"
)

// HealthCheckID identifies the database ping health check
var HealthCheckID = ulids.MustParse("01K52SEE9PK39BBJTPJ30KMHY9")

// Module provides the *sql.DB connection pool, bound to the app lifecycle:
//   - OnStart blocks until the database responds to a ping, retrying until the app start timeout expires
//   - OnStop closes the connection pool
//
// The connection is established at startup even though nothing depends on it.
var Module = fx.Options(
	fx.Provide(
		LoadConfigFromEnv,
		Open,
		newHealthCheck,
	),
	fx.Invoke(bindLifecycle),
)

func bindLifecycle(db *sql.DB, cfg Config, logger *zerolog.Logger, registerer prometheus.Registerer, lc fx.Lifecycle) error {
	logger = fxapp.ComponentLogger(logger, "database")
	if err := registerer.Register(collectors.NewDBStatsCollector(db, cfg.Database)); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().EmbedObject(cfg).Msg("connecting to database")
			return Connect(ctx, db, cfg.RetryInterval, logger)
		},
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return nil
}

func newHealthCheck(db *sql.DB) fxapp.HealthCheckRegistration {
	return fxapp.NewHealthCheckRegistration(
		health.NewBuilder(HealthCheckID).
			Description("Pings the database").
			RedImpact("The database connection is lost").
			Timeout(5 * time.Second).
			RunInterval(15 * time.Second).
			Checker(func(ctx context.Context) health.Failure {
				if err := db.PingContext(ctx); err != nil {
					return health.RedFailure(err)
				}
				return nil
			}).
			MustBuild(),
	)
}
