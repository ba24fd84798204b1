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

// Package ulids provides ULID helpers used for app, instance, event and health check IDs.
package ulids

import (
	"crypto/rand"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
	"sync"
)

// Generator returns a function that generates ULIDs in strictly increasing order.
// It is safe for concurrent use and panics if a ULID fails to be generated.
func Generator() func() ulid.ULID {
	var m sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)

	return func() ulid.ULID {
		m.Lock()
		defer m.Unlock()
		return ulid.MustNew(ulid.Now(), entropy)
	}
}

// MustNew generates a new crypto/rand based ULID.
func MustNew() ulid.ULID {
	return ulid.MustNew(ulid.Now(), rand.Reader)
}

// Parse parses the id into a ULID. The zero ULID is rejected.
func Parse(id string) (ulid.ULID, error) {
	uid, err := ulid.Parse(id)
	if err != nil {
		return uid, errors.Wrapf(err, "invalid ULID: %q", id)
	}
	if IsZero(uid) {
		return uid, errors.New("ULID must not be zero")
	}
	return uid, nil
}

// MustParse is like Parse but panics on error. Use it for ULID constants.
func MustParse(id string) ulid.ULID {
	uid, err := Parse(id)
	if err != nil {
		panic(err)
	}
	return uid
}

// IsZero returns true if the id is the zero value
func IsZero(id ulid.ULID) bool {
	return ulid.ULID{} == id
}
