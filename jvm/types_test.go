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

package jvm_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/adbc-drivers/jdbc/jvm"
	"github.com/adbc-drivers/jdbc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeConstantsLoadOnce(t *testing.T) {
	b := testutil.NewFakeBridge()
	var tc jvm.TypeConstants

	assert.False(t, tc.Loaded())
	_, ok := tc.Lookup("VARCHAR")
	assert.False(t, ok)

	require.NoError(t, tc.EnsureLoaded(b))
	require.NoError(t, tc.EnsureLoaded(b))
	assert.True(t, tc.Loaded())
	assert.Equal(t, 1, b.FieldLoads())
	assert.Equal(t, len(testutil.JDBCTypes()), tc.Len())

	code, ok := tc.Lookup("VARCHAR")
	require.True(t, ok)
	assert.EqualValues(t, 12, code)

	code, ok = tc.Lookup("TIMESTAMP_WITH_TIMEZONE")
	require.True(t, ok)
	assert.EqualValues(t, 2014, code)

	name, ok := tc.NameOf(-5)
	require.True(t, ok)
	assert.Equal(t, "BIGINT", name)

	_, ok = tc.Lookup("NOT_A_TYPE")
	assert.False(t, ok)
}

func TestTypeConstantsAliases(t *testing.T) {
	b := testutil.NewFakeBridge()
	b.Fields = map[string]int32{"VARCHAR": 12, "CHARACTER_VARYING": 12}
	var tc jvm.TypeConstants
	require.NoError(t, tc.EnsureLoaded(b))

	name, ok := tc.NameOf(12)
	require.True(t, ok)
	assert.Equal(t, "CHARACTER_VARYING", name)
}

func TestTypeConstantsFailedLoad(t *testing.T) {
	b := testutil.NewFakeBridge()
	b.FieldsErr = errors.New("java.lang.NoClassDefFoundError: java/sql/Types")
	var tc jvm.TypeConstants

	err := tc.EnsureLoaded(b)
	assert.ErrorContains(t, err, "java.sql.Types")
	assert.False(t, tc.Loaded())
	assert.Zero(t, tc.Len())

	b.FieldsErr = nil
	require.NoError(t, tc.EnsureLoaded(b))
	assert.True(t, tc.Loaded())
	assert.Equal(t, 2, b.FieldLoads())
}

func TestTypeConstantsConcurrentLoad(t *testing.T) {
	b := testutil.NewFakeBridge()
	var tc jvm.TypeConstants

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tc.EnsureLoaded(b))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, b.FieldLoads())
	code, ok := tc.Lookup("INTEGER")
	require.True(t, ok)
	assert.EqualValues(t, 4, code)
}
