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

package sqlwrapper

import (
	"testing"
	"time"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	assert.Equal(t, PoolConfig{MaxOpen: 10, MaxIdle: 5, MaxLifetime: 30 * time.Minute}, NewPoolConfig())

	opts, err := PoolOptionsFromMap(map[string]string{
		OptionKeyMaxOpenConns:    "4",
		OptionKeyMaxIdleConns:    "0",
		OptionKeyConnMaxLifetime: "90s",
		"adbc.jdbc.property.ssl": "true",
	})
	require.NoError(t, err)
	assert.Equal(t, PoolConfig{MaxOpen: 4, MaxIdle: 0, MaxLifetime: 90 * time.Second}, NewPoolConfig(opts...))

	for name, opts := range map[string]map[string]string{
		"not a number":      {OptionKeyMaxOpenConns: "many"},
		"negative":          {OptionKeyMaxIdleConns: "-1"},
		"bad duration":      {OptionKeyConnMaxLifetime: "forever"},
		"negative lifetime": {OptionKeyConnMaxLifetime: "-1m"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := PoolOptionsFromMap(opts)
			assert.ErrorIs(t, err, jdbcerr.ErrConfiguration)
		})
	}
}
