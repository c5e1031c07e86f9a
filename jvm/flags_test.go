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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartFlagsFor(t *testing.T) {
	on := StartFlags{IgnoreUnrecognized: true, ConvertStrings: true}
	for _, tc := range []struct {
		version string
		want    StartFlags
	}{
		{"0.6.3", StartFlags{}},
		{"0.6", StartFlags{}},
		{"0.7", on},
		{"0.7.0", on},
		{"1.5.0", on},
		{"v1.5.0", on},
		// 0.10 sorts after 0.7; a float comparison would get this wrong.
		{"0.10.1", on},
		{"1.5.0.dev0", on},
		{"", StartFlags{}},
		{"unknown", StartFlags{}},
		{"1", StartFlags{}},
	} {
		t.Run(tc.version, func(t *testing.T) {
			assert.Equal(t, tc.want, startFlagsFor(tc.version))
		})
	}
}

func TestBuildArgs(t *testing.T) {
	sep := string(os.PathListSeparator)

	assert.Empty(t, buildArgs(nil, nil, nil))
	assert.Equal(t,
		[]string{"-Djava.class.path=a.jar" + sep + "b.jar"},
		buildArgs([]string{"a.jar", "b.jar"}, nil, nil))
	assert.Equal(t,
		[]string{"-Djava.class.path=a.jar", "-Djava.library.path=/opt/native", "-Xmx1g"},
		buildArgs([]string{"a.jar"}, []string{"/opt/native"}, []string{"-Xmx1g"}))
	assert.Equal(t, []string{"-Xss4m"}, buildArgs(nil, nil, []string{"-Xss4m"}))
}

func TestMergePaths(t *testing.T) {
	assert.Nil(t, mergePaths())
	assert.Equal(t,
		[]string{"a.jar", "b.jar", "c.jar"},
		mergePaths([]string{"a.jar", "", "b.jar"}, []string{"b.jar", "c.jar", "a.jar"}))
}

func TestEnvClasspath(t *testing.T) {
	sep := string(os.PathListSeparator)

	t.Setenv("CLASSPATH", "")
	assert.Nil(t, envClasspath())

	t.Setenv("CLASSPATH", "/opt/a.jar"+sep+"/opt/b.jar")
	assert.Equal(t, []string{"/opt/a.jar", "/opt/b.jar"}, envClasspath())
}
