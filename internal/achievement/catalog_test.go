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

package achievement

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(`
version: 3
achievements:
  - key: welcome
    name: Welcome
    reward: "12.50"
    default: true
  - key: champion
    name: Champion
`))
	require.NoError(t, err)

	assert.Equal(t, 3, catalog.Version)
	require.Len(t, catalog.Achievements, 2)
	assert.True(t, catalog.Achievements[0].Reward.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, catalog.Achievements[1].Reward.IsZero())

	defaults := catalog.Defaults()
	require.Len(t, defaults, 1)
	assert.Equal(t, "welcome", defaults[0].Key)

	def, ok := catalog.Find("champion")
	require.True(t, ok)
	assert.Equal(t, DeriveID("champion"), def.ID())

	_, ok = catalog.Find("missing")
	assert.False(t, ok)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":          "version: 1\n",
		"missing key":    "achievements:\n  - name: A\n",
		"missing name":   "achievements:\n  - key: a\n",
		"duplicate key":  "achievements:\n  - {key: a, name: A}\n  - {key: a, name: B}\n",
		"duplicate name": "achievements:\n  - {key: a, name: A}\n  - {key: b, name: A}\n",
		"bad reward":     "achievements:\n  - {key: a, name: A, reward: lots}\n",
		"negative":       "achievements:\n  - {key: a, name: A, reward: \"-1\"}\n",
		"not yaml":       "achievements: [",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "achievements.yaml")
	require.NoError(t, os.WriteFile(path, []byte("achievements:\n  - {key: a, name: A, reward: \"5\"}\n"), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, catalog.Achievements, 1)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadCatalog_Shipped(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join("..", "..", "achievements.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, catalog.Defaults())
}
