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
	"fmt"
	"github.com/Masterminds/semver"
	"github.com/kelseyhightower/envconfig"
	"github.com/oklog/ulid"
	"github.com/oysterpack/visits/pkg/ulids"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"regexp"
	"strings"
)

var (
	// name constraints:
	// - must be alpha-numeric and can contain the following non-alpha-numeric chars: '_' '-'
	// - must start with an alpha
	// - min len = 3, max len = 50
	nameRegex = regexp.MustCompile(`^[[:alpha:]][a-zA-Z0-9_-]{2,49}$`)
)

// Desc represents the application descriptor
type Desc interface {
	// ID returns the app ID. Application names may change, but the app ID is immutable.
	ID() ulid.ULID

	// Name returns the app name
	Name() string

	// Version returns the app version
	Version() *semver.Version

	// ReleaseID returns the app release ID, which can be used to look up release artifacts
	ReleaseID() ulid.ULID

	// Validate checks if the app descriptor is valid
	Validate() error

	fmt.Stringer
}

// DescBuilder constructs a new Desc
type DescBuilder interface {
	SetID(id ulid.ULID) DescBuilder
	SetName(name string) DescBuilder
	SetVersion(version *semver.Version) DescBuilder
	SetReleaseID(id ulid.ULID) DescBuilder

	Build() (Desc, error)
}

// NewDescBuilder constructs a new DescBuilder
func NewDescBuilder() DescBuilder {
	return &desc{}
}

type desc struct {
	id        ulid.ULID
	name      string
	version   *semver.Version
	releaseID ulid.ULID
}

func (d *desc) String() string {
	return fmt.Sprintf("Desc{ID: %s, Name: %s, Version: %v, ReleaseID: %s}", d.id, d.name, d.version, d.releaseID)
}

func (d *desc) Build() (Desc, error) {
	d.name = strings.TrimSpace(d.name)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *desc) Validate() error {
	var err error
	if ulids.IsZero(d.id) {
		err = multierr.Append(err, errors.New("`ID` is required"))
	}
	if !nameRegex.MatchString(d.name) {
		err = multierr.Append(err, fmt.Errorf("`Name` failed to match against regex: %q : %q", nameRegex, d.name))
	}
	if d.version == nil {
		err = multierr.Append(err, errors.New("`Version` is required"))
	}
	if ulids.IsZero(d.releaseID) {
		err = multierr.Append(err, errors.New("`ReleaseID` is required"))
	}
	return err
}

func (d *desc) ID() ulid.ULID {
	return d.id
}

func (d *desc) SetID(id ulid.ULID) DescBuilder {
	d.id = id
	return d
}

func (d *desc) Name() string {
	return d.name
}

func (d *desc) SetName(name string) DescBuilder {
	d.name = name
	return d
}

func (d *desc) Version() *semver.Version {
	return d.version
}

func (d *desc) SetVersion(version *semver.Version) DescBuilder {
	d.version = version
	return d
}

func (d *desc) ReleaseID() ulid.ULID {
	return d.releaseID
}

func (d *desc) SetReleaseID(releaseID ulid.ULID) DescBuilder {
	d.releaseID = releaseID
	return d
}

// LoadDescFromEnv loads the app descriptor from env vars, falling back to the defaults for any var that is not set:
//
//   - APP12X_ID
//   - APP12X_NAME
//   - APP12X_VERSION
//   - APP12X_RELEASE_ID
func LoadDescFromEnv(defaults Desc) (Desc, error) {
	var cfg struct {
		ID        string
		Name      string
		Version   string
		ReleaseID string `split_words:"true"`
	}
	if err := envconfig.Process(EnvconfigPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load app descriptor from env")
	}

	builder := NewDescBuilder()
	if defaults != nil {
		builder.SetID(defaults.ID()).
			SetName(defaults.Name()).
			SetVersion(defaults.Version()).
			SetReleaseID(defaults.ReleaseID())
	}

	var err error
	if cfg.ID != "" {
		id, e := ulids.Parse(cfg.ID)
		err = multierr.Append(err, e)
		builder.SetID(id)
	}
	if cfg.Name != "" {
		builder.SetName(cfg.Name)
	}
	if cfg.Version != "" {
		version, e := semver.NewVersion(cfg.Version)
		err = multierr.Append(err, e)
		builder.SetVersion(version)
	}
	if cfg.ReleaseID != "" {
		releaseID, e := ulids.Parse(cfg.ReleaseID)
		err = multierr.Append(err, e)
		builder.SetReleaseID(releaseID)
	}
	if err != nil {
		return nil, err
	}

	return builder.Build()
}
