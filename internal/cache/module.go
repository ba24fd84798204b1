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

package cache

import (
	"context"
	"github.com/oysterpack/visits/pkg/fxapp"
	"github.com/oysterpack/visits/pkg/fxapp/health"
	"github.com/oysterpack/visits/pkg/ulids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"time"
)

// HealthCheckID identifies the cache ping health check
var HealthCheckID = ulids.MustParse("01K52SEE8H823ZEARA0PNYT8W7")

// Module provides the cache Counter, bound to the app lifecycle:
//   - OnStart blocks until the cache responds to a ping, retrying until the app start timeout expires
//   - OnStop closes the connection pool
//
// The Config is loaded from the env.
var Module = fx.Options(
	fx.Provide(
		LoadConfigFromEnv,
		newClient,
		newRedisCounter,
		func(c *RedisCounter) Counter { return c },
		newHealthCheck,
	),
)

func newClient(cfg Config) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func newRedisCounter(client *redis.Client, cfg Config, logger *zerolog.Logger, registerer prometheus.Registerer, lc fx.Lifecycle) (*RedisCounter, error) {
	counter := NewRedisCounter(client, cfg, logger)
	if err := counter.Register(registerer); err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			fxapp.ComponentLogger(logger, "cache").Info().EmbedObject(cfg).Msg("connecting to cache")
			return counter.Connect(ctx)
		},
		OnStop: func(context.Context) error {
			return counter.Close()
		},
	})
	return counter, nil
}

func newHealthCheck(counter *RedisCounter, cfg Config) fxapp.HealthCheckRegistration {
	return fxapp.NewHealthCheckRegistration(
		health.NewBuilder(HealthCheckID).
			Description("Pings the cache").
			RedImpact("Visits cannot be counted: GET / responds with 503").
			Timeout(min(cfg.OpTimeout, 5*time.Second)).
			RunInterval(10 * time.Second).
			Checker(func(ctx context.Context) health.Failure {
				if err := counter.Ping(ctx); err != nil {
					return health.RedFailure(err)
				}
				return nil
			}).
			MustBuild(),
	)
}
