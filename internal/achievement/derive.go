/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package achievement seeds the achievement catalog and awards achievements
// to identities. Both operations are safe to re-run.
package achievement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// DeriveID maps a stable catalog key to a UUID-shaped identifier.
//
// The layout is fixed for compatibility with rows seeded by earlier
// deployments: it reuses the version and variant positions of a UUID but is
// not an RFC 4122 name-based UUID.
func DeriveID(key string) string {
	sum := sha256.Sum256([]byte(key))
	h := hex.EncodeToString(sum[:])

	// h[16:18] is always two hex digits, so this cannot fail
	b, _ := strconv.ParseUint(h[16:18], 16, 8)
	variant := (b & 0x3F) | 0x80

	return fmt.Sprintf("%s-%s-5%s-%02x%s-%s", h[0:8], h[8:12], h[13:16], variant, h[18:20], h[20:32])
}
