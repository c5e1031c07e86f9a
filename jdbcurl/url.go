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

package jdbcurl

import (
	"net/url"
	"strings"

	"github.com/adbc-drivers/jdbc/jdbcerr"
)

// Param is one query parameter, already percent-decoded once.
type Param struct {
	Key   string
	Value string
}

// AbstractURL is a connection URL split the way a generic URL parser sees
// it: a scheme, an authority-plus-path "host", optional user info, and the
// query parameters in the order they were written.
type AbstractURL struct {
	// Raw is the URL text exactly as supplied.
	Raw    string
	Scheme string
	// Host is the authority without user info, followed by any path. A '@'
	// before the query always ends the user info.
	Host        string
	User        string
	Password    string
	HasPassword bool
	Query       []Param
}

// Parse splits raw into an AbstractURL. The authority is kept as written, so
// JDBC hosts such as `host\instance` or `host;db=x` survive unchanged.
func Parse(raw string) (AbstractURL, error) {
	const op = "parse url"
	u := AbstractURL{Raw: raw}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return u, jdbcerr.Configuration(op, "%q is not of the form scheme://host[?query]", raw)
	}
	u.Scheme = scheme

	hostPart, query, _ := strings.Cut(rest, "?")
	// User info may itself contain '/', so it is split off before the path.
	if at := strings.LastIndex(hostPart, "@"); at >= 0 {
		userinfo := hostPart[:at]
		hostPart = hostPart[at+1:]
		user, password, hasPassword := strings.Cut(userinfo, ":")
		var err error
		if u.User, err = url.PathUnescape(user); err != nil {
			return u, jdbcerr.Configuration(op, "invalid user name: %v", err)
		}
		if hasPassword {
			if u.Password, err = url.PathUnescape(password); err != nil {
				return u, jdbcerr.Configuration(op, "invalid password: %v", err)
			}
			u.HasPassword = true
		}
	}
	u.Host = hostPart

	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return u, jdbcerr.Configuration(op, "invalid query key %q: %v", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return u, jdbcerr.Configuration(op, "invalid value for %q: %v", key, err)
		}
		u.Query = append(u.Query, Param{Key: key, Value: value})
	}
	return u, nil
}

// Get returns the value of the last occurrence of key.
func (u AbstractURL) Get(key string) (string, bool) {
	for i := len(u.Query) - 1; i >= 0; i-- {
		if u.Query[i].Key == key {
			return u.Query[i].Value, true
		}
	}
	return "", false
}

// unquote decodes %XX escapes. Malformed escapes are kept as written and '+'
// is left alone.
func unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// escape percent-encodes a forwarded value so that unquote restores it.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
