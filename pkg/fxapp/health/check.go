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

// Package health provides application health checks, which are run on a schedule.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"log"
	"strings"
	"time"
)

// Status is the health check status
type Status uint8

// Status enum
const (
	Green Status = iota
	Yellow
	Red
)

func (s Status) String() string {
	switch s {
	case Green:
		return "Green"
	case Yellow:
		return "Yellow"
	default:
		return "Red"
	}
}

// Builder is used to construct new Check instances
type Builder interface {
	Description(description string) Builder

	YellowImpact(impact string) Builder

	RedImpact(impact string) Builder

	Checker(func(ctx context.Context) Failure) Builder

	// Timeout defaults to 5 secs
	Timeout(timeout time.Duration) Builder

	// RunInterval defaults to 15 secs
	RunInterval(interval time.Duration) Builder

	Build() (Check, error)

	MustBuild() Check
}

// Check represents a health check
type Check interface {
	ID() ulid.ULID

	// Description describes what the health check does
	Description() string

	// YellowImpact describes the impact when the health check is Yellow. It may be blank.
	YellowImpact() string

	// RedImpact describes the impact when the health check is Red. It is required.
	RedImpact() string

	// Timeout is used to limit how long the health check is allowed to run.
	// If the health check times out, then it is considered a Red failure.
	Timeout() time.Duration

	// RunInterval is used to schedule the health check to run on a periodic basis.
	// The interval resets after the health check run completes.
	RunInterval() time.Duration

	// Run runs the health check, constrained by the check's timeout.
	Run(ctx context.Context) Result

	fmt.Stringer
	json.Marshaler
}

// health check run constraints
var (
	// Health checks can not be scheduled to run more frequently than once per second.
	minRunInterval = time.Second
	// Health checks should be designed to run fast.
	maxRunTimeout = 10 * time.Second
)

// NewBuilder constructs a new health check Builder.
func NewBuilder(id ulid.ULID) Builder {
	return &builder{
		check: &check{
			id:       id,
			timeout:  5 * time.Second,
			interval: 15 * time.Second,
		},
	}
}

type builder struct {
	check *check
}

func (b *builder) Description(description string) Builder {
	b.check.description = description
	return b
}

func (b *builder) YellowImpact(impact string) Builder {
	b.check.yellowImpact = impact
	return b
}

func (b *builder) RedImpact(impact string) Builder {
	b.check.redImpact = impact
	return b
}

func (b *builder) Checker(f func(ctx context.Context) Failure) Builder {
	b.check.run = f
	return b
}

func (b *builder) Timeout(timeout time.Duration) Builder {
	b.check.timeout = timeout
	return b
}

func (b *builder) RunInterval(interval time.Duration) Builder {
	b.check.interval = interval
	return b
}

func (b *builder) Build() (Check, error) {
	b.check.description = strings.TrimSpace(b.check.description)
	b.check.yellowImpact = strings.TrimSpace(b.check.yellowImpact)
	b.check.redImpact = strings.TrimSpace(b.check.redImpact)
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b.check, nil
}

func (b *builder) validate() error {
	var err error
	if b.check.id == (ulid.ULID{}) {
		err = errors.New("ID is required")
	}
	if b.check.description == "" {
		err = multierr.Append(err, errors.New("Description is required and must not be blank"))
	}
	if b.check.redImpact == "" {
		err = multierr.Append(err, errors.New("RedImpact is required and must not be blank"))
	}
	if b.check.run == nil {
		err = multierr.Append(err, errors.New("check function is required"))
	}
	if b.check.timeout <= 0 {
		err = multierr.Append(err, errors.New("timeout must be greater than 0"))
	}
	if b.check.timeout > maxRunTimeout {
		err = multierr.Append(err, fmt.Errorf("timeout cannot be more than %s", maxRunTimeout))
	}
	if b.check.interval < minRunInterval {
		err = multierr.Append(err, fmt.Errorf("run interval cannot be less than %s", minRunInterval))
	}
	return err
}

func (b *builder) MustBuild() Check {
	c, err := b.Build()
	if err != nil {
		log.Panic(err)
	}
	return c
}

type check struct {
	id           ulid.ULID
	description  string
	yellowImpact string
	redImpact    string

	run      func(ctx context.Context) Failure
	timeout  time.Duration
	interval time.Duration
}

func (c *check) String() string {
	jsonBytes, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%#v", c)
	}
	return string(jsonBytes)
}

func (c *check) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           ulid.ULID
		Description  string
		YellowImpact string `json:",omitempty"`
		RedImpact    string
		Timeout      time.Duration
		RunInterval  time.Duration
	}{
		c.id,
		c.description,
		c.yellowImpact,
		c.redImpact,
		c.timeout,
		c.interval,
	})
}

func (c *check) ID() ulid.ULID {
	return c.id
}

func (c *check) Description() string {
	return c.description
}

func (c *check) YellowImpact() string {
	return c.yellowImpact
}

func (c *check) RedImpact() string {
	return c.redImpact
}

func (c *check) Timeout() time.Duration {
	return c.timeout
}

func (c *check) RunInterval() time.Duration {
	return c.interval
}

func (c *check) Run(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	// buffered so that the checker go routine can always exit, even after a timeout
	ch := make(chan Failure, 1)
	go func() {
		ch <- c.run(ctx)
	}()

	select {
	case <-ctx.Done():
		return newResult(c.id, start, Red, TimeoutError{})
	case failure := <-ch:
		switch {
		case failure == nil:
			return newResult(c.id, start, Green, nil)
		case failure.Status() == Yellow:
			return newResult(c.id, start, Yellow, failure)
		default:
			return newResult(c.id, start, Red, failure)
		}
	}
}

// Failure represents a health check failure
type Failure interface {
	error
	Status() Status
}

type failure struct {
	error
	status Status
}

func (f failure) Status() Status {
	return f.status
}

// YellowFailure constructs a new Failure with a Yellow status
func YellowFailure(err error) Failure {
	return failure{err, Yellow}
}

// RedFailure constructs a new Failure with a Red status
func RedFailure(err error) Failure {
	return failure{err, Red}
}

// TimeoutError is used for timeout errors.
// Healthcheck timeout errors are flagged as Red.
type TimeoutError struct{}

func (e TimeoutError) Error() string {
	return "health check timed out"
}
