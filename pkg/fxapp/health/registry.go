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
	"fmt"
	"github.com/pkg/errors"
	"sync"
)

// Registry is used as a health check registry
type Registry interface {
	// Register is used to register health checks.
	// An error will be returned if a health check with the same ID is already registered.
	Register(check Check) error

	// HealthChecks returns the registered health checks in the order they were registered.
	// Health checks registered through an fx value group arrive in no particular order.
	HealthChecks() []Check
}

// NewRegistry creates a new Registry
func NewRegistry() Registry {
	return &registry{}
}

type registry struct {
	sync.RWMutex
	checks []Check
}

func (r *registry) Register(check Check) error {
	if check == nil {
		return errors.New("check was nil")
	}

	r.Lock()
	defer r.Unlock()
	for _, c := range r.checks {
		if c.ID() == check.ID() {
			return fmt.Errorf("health check is already registered using same ID : %v", c)
		}
	}
	r.checks = append(r.checks, check)
	return nil
}

func (r *registry) HealthChecks() []Check {
	r.RLock()
	defer r.RUnlock()
	checks := make([]Check, len(r.checks))
	copy(checks, r.checks)
	return checks
}
