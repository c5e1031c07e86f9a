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
	"strings"

	"github.com/adbc-drivers/jdbc/jdbc"
	"github.com/adbc-drivers/jdbc/jdbcerr"
	"github.com/apache/arrow-adbc/go/adbc"
)

// OptionKeyPropertyPrefix prefixes database options that are passed to the
// JDBC driver as connection properties, e.g.
// "adbc.jdbc.property.ssl" = "true".
const OptionKeyPropertyPrefix = "adbc.jdbc.property."

// ConnOptionsBuilder turns ADBC database options into connector options.
type ConnOptionsBuilder interface {
	BuildConnOptions(opts map[string]string) ([]jdbc.ConnOption, error)
}

// DefaultConnOptionsBuilder reads the abstract URL from adbc.OptionKeyURI.
// Username and password become the "user" and "password" properties and
// override any credentials carried in the URL.
type DefaultConnOptionsBuilder struct{}

func (b *DefaultConnOptionsBuilder) BuildConnOptions(opts map[string]string) ([]jdbc.ConnOption, error) {
	uri := opts[adbc.OptionKeyURI]
	if uri == "" {
		return nil, jdbcerr.Configuration("build connection options", "missing required option %s", adbc.OptionKeyURI)
	}

	props := make(map[string]string)
	for key, value := range opts {
		if name, ok := strings.CutPrefix(key, OptionKeyPropertyPrefix); ok {
			if name == "" {
				return nil, jdbcerr.Configuration("build connection options", "empty property name in option %q", key)
			}
			props[name] = value
		}
	}
	if username := opts[adbc.OptionKeyUsername]; username != "" {
		props["user"] = username
	}
	if password := opts[adbc.OptionKeyPassword]; password != "" {
		props["password"] = password
	}

	connOpts := []jdbc.ConnOption{jdbc.WithURL(uri)}
	if len(props) > 0 {
		connOpts = append(connOpts, jdbc.WithProperties(props))
	}
	return connOpts, nil
}
