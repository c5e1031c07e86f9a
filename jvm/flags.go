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
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// flagsThreshold is the first bridge version that understands StartFlags.
const flagsThreshold = "v0.7"

var majorMinor = regexp.MustCompile(`^\d+\.\d+`)

// startFlagsFor picks the startup flags for a bridge version. Versions that
// cannot be parsed get the pre-threshold behavior.
func startFlagsFor(version string) StartFlags {
	m := majorMinor.FindString(strings.TrimPrefix(strings.TrimSpace(version), "v"))
	if m == "" {
		return StartFlags{}
	}
	v := "v" + m
	if !semver.IsValid(v) || semver.Compare(v, flagsThreshold) < 0 {
		return StartFlags{}
	}
	return StartFlags{IgnoreUnrecognized: true, ConvertStrings: true}
}

// buildArgs assembles the JVM startup arguments.
func buildArgs(classpath, libs, jvmArgs []string) []string {
	var args []string
	if len(classpath) > 0 {
		args = append(args, "-Djava.class.path="+strings.Join(classpath, string(os.PathListSeparator)))
	}
	if len(libs) > 0 {
		args = append(args, "-Djava.library.path="+strings.Join(libs, string(os.PathListSeparator)))
	}
	return append(args, jvmArgs...)
}

// mergePaths returns the union of the given lists in first-seen order.
func mergePaths(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, p := range list {
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// envClasspath reads the CLASSPATH environment variable.
func envClasspath() []string {
	cp := os.Getenv("CLASSPATH")
	if cp == "" {
		return nil
	}
	return strings.Split(cp, string(os.PathListSeparator))
}
