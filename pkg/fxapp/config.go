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
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"time"
)

// EnvconfigPrefix is used as the environment variable name prefix to load app configs from the env.
// "APP12X" stands for 12-factor app.
const EnvconfigPrefix = "APP12X"

// Config holds the app container settings.
//
// Env vars:
//   - APP12X_LOG_LEVEL     - debug | info | warn | error (default info)
//   - APP12X_HTTP_ADDR     - HTTP server listen address (default :3000)
//   - APP12X_START_TIMEOUT - (default 30s)
//   - APP12X_STOP_TIMEOUT  - (default 15s)
type Config struct {
	LogLevel     string        `split_words:"true" default:"info"`
	HTTPAddr     string        `envconfig:"HTTP_ADDR" default:":3000"`
	StartTimeout time.Duration `split_words:"true" default:"30s"`
	StopTimeout  time.Duration `split_words:"true" default:"15s"`
}

// LoadConfigFromEnv loads the app Config from env vars
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvconfigPrefix, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to load app config from env")
	}
	if _, err := cfg.ZerologLevel(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ZerologLevel maps the configured log level to a zerolog.Level
func (c Config) ZerologLevel() (zerolog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, errors.Errorf("unsupported log level: %q", c.LogLevel)
	}
}
