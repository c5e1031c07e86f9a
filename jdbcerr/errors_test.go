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

package jdbcerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMatching(t *testing.T) {
	err := jdbcerr.Configuration("translate", "missing required key %q", "_driver")
	assert.ErrorIs(t, err, jdbcerr.ErrConfiguration)
	assert.NotErrorIs(t, err, jdbcerr.ErrConnection)
	assert.EqualError(t, err, `translate: configuration error: missing required key "_driver"`)

	wrapped := fmt.Errorf("open: %w", err)
	kind, ok := jdbcerr.KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, jdbcerr.KindConfiguration, kind)

	_, ok = jdbcerr.KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestConnectionLiftsSQLState(t *testing.T) {
	cause := &jdbcerr.SQLException{
		ClassName:  "java.sql.SQLInvalidAuthorizationSpecException",
		Message:    "invalid username/password",
		SQLState:   "28000",
		VendorCode: 1017,
	}
	err := jdbcerr.Connection("connect", cause, "getConnection(%s)", "jdbc:oracle:thin://db")

	var e *jdbcerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "28000", e.SQLState)
	assert.Equal(t, int32(1017), e.VendorCode)
	assert.ErrorIs(t, err, jdbcerr.ErrConnection)
	assert.Contains(t, err.Error(), "invalid username/password")

	var sqlErr *jdbcerr.SQLException
	assert.ErrorAs(t, err, &sqlErr)
}

func TestDriverLoadUnwraps(t *testing.T) {
	cause := errors.New("java.lang.ClassNotFoundException: org.example.Driver")
	err := jdbcerr.DriverLoad("connect", cause, "load %s", "org.example.Driver")
	assert.ErrorIs(t, err, jdbcerr.ErrDriverLoad)
	assert.ErrorIs(t, err, cause)
}
