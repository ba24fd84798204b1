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
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"net/url"
	"time"
)

// Config is the cache client config.
//
// Env vars:
//   - REDIS_URL                    - cache connection URL (default redis://localhost:6379/0)
//   - REDIS_OP_TIMEOUT             - deadline applied to each cache command (default 2s)
//   - REDIS_CONNECT_RETRY_INTERVAL - pause between startup connection attempts (default 500ms)
//   - REDIS_BREAKER_MAX_FAILURES   - consecutive failures that open the circuit breaker (default 5)
//   - REDIS_BREAKER_TIMEOUT        - how long the breaker stays open before letting a trial command through (default 5s)
type Config struct {
	URL               string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	OpTimeout         time.Duration `envconfig:"REDIS_OP_TIMEOUT" default:"2s"`
	RetryInterval     time.Duration `envconfig:"REDIS_CONNECT_RETRY_INTERVAL" default:"500ms"`
	BreakerMaxFailure uint32        `envconfig:"REDIS_BREAKER_MAX_FAILURES" default:"5"`
	BreakerTimeout    time.Duration `envconfig:"REDIS_BREAKER_TIMEOUT" default:"5s"`
}

// LoadConfigFromEnv loads the cache Config from env vars
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to load cache config from env")
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.OpTimeout <= 0:
		return errors.New("REDIS_OP_TIMEOUT must be greater than 0")
	case c.RetryInterval <= 0:
		return errors.New("REDIS_CONNECT_RETRY_INTERVAL must be greater than 0")
	case c.BreakerMaxFailure == 0:
		return errors.New("REDIS_BREAKER_MAX_FAILURES must be greater than 0")
	}
	return nil
}

// Options parses the URL into redis client options.
//   - context deadlines are enabled, i.e., each command is bound by the op timeout
//   - commands are never retried: INCR is not idempotent, and a command that failed after it was written may have
//     already been applied. Failures are handled by the circuit breaker.
func (c Config) Options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid REDIS_URL: %s", c.redactedURL())
	}
	opts.ContextTimeoutEnabled = true
	opts.MaxRetries = -1
	return opts, nil
}

func (c Config) redactedURL() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler. The URL password is redacted.
func (c Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("url", c.redactedURL()).
		Dur("op_timeout", c.OpTimeout).
		Dur("retry_interval", c.RetryInterval).
		Uint32("breaker_max_failures", c.BreakerMaxFailure).
		Dur("breaker_timeout", c.BreakerTimeout)
}
