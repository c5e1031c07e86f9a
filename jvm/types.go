// Copyright (c) 2025 ADBC Drivers Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//         http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jvm

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// SQLTypesClass holds the standard JDBC type constants.
const SQLTypesClass = "java.sql.Types"

// TypeConstants maps java.sql.Types field names to their values. It is
// populated once from the running JVM and read-only afterwards.
type TypeConstants struct {
	mu     sync.Mutex
	loaded atomic.Bool
	byName map[string]int32
	byCode map[int32]string
}

// EnsureLoaded enumerates java.sql.Types on first use. The calling thread
// must be attached. A failed load leaves the cache empty so a later call can
// try again; the result of a load is always the same.
func (tc *TypeConstants) EnsureLoaded(b Bridge) error {
	if tc.loaded.Load() {
		return nil
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.loaded.Load() {
		return nil
	}

	fields, err := b.StaticFields(SQLTypesClass)
	if err != nil {
		return fmt.Errorf("enumerate %s: %w", SQLTypesClass, err)
	}
	byName := make(map[string]int32, len(fields))
	byCode := make(map[int32]string, len(fields))
	// Sorted so aliases sharing a code always resolve to the same name.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		code := fields[name]
		byName[name] = code
		if _, ok := byCode[code]; !ok {
			byCode[code] = name
		}
	}
	tc.byName = byName
	tc.byCode = byCode
	tc.loaded.Store(true)
	return nil
}

// Loaded reports whether the constants have been read from the JVM.
func (tc *TypeConstants) Loaded() bool {
	return tc.loaded.Load()
}

// Lookup returns the value of the named constant, e.g. "VARCHAR".
func (tc *TypeConstants) Lookup(name string) (int32, bool) {
	if !tc.loaded.Load() {
		return 0, false
	}
	code, ok := tc.byName[name]
	return code, ok
}

// NameOf returns the constant name for a type code reported by a driver.
func (tc *TypeConstants) NameOf(code int32) (string, bool) {
	if !tc.loaded.Load() {
		return "", false
	}
	name, ok := tc.byCode[code]
	return name, ok
}

// Len returns the number of known constants.
func (tc *TypeConstants) Len() int {
	if !tc.loaded.Load() {
		return 0
	}
	return len(tc.byName)
}
