// Copyright 2026 The dflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hooks

import (
	"crypto/rand"
	"math/big"
)

const (
	tokenLength  = 21
	base62Chars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// GenerateToken returns a 21-byte, base62-encoded random token suitable for
// handing to a third party as a bearer credential over a URL (spec.md
// §4.9). Chosen over a UUID (see DESIGN.md's Open Question decision): a
// hook token is a capability a webhook caller presents, not an internal
// identifier, so it should carry no structure (version/variant bits) for
// an attacker to read, and should draw from a larger alphabet per
// character than hex.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenLength)
	max := big.NewInt(int64(len(base62Chars)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = base62Chars[n.Int64()]
	}
	return string(buf), nil
}
