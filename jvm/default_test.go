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

//go:build !jni

package jvm_test

import (
	"testing"

	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/adbc-drivers/jdbc/jvm"
	"github.com/stretchr/testify/assert"
)

func TestDefaultWithoutBridge(t *testing.T) {
	session, err := jvm.Default()
	assert.Nil(t, session)
	assert.ErrorIs(t, err, jdbcerr.ErrConnection)
	assert.ErrorContains(t, err, "-tags jni")
}
