// Copyright (c) 2016-2019 Uber Technologies, Inc.
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
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"minUploadRate": 1000,
		"maxUploadRate": 2000,
		"simultaneousSeed": 1,
		"client": "utorrent-3.5",
		"keepTorrentWithZeroLeechers": false
	}`)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(1000), c.MinUploadRate)
	require.Equal(t, int64(2000), c.MaxUploadRate)
	require.Equal(t, 1, c.SimultaneousSeed)
	require.Equal(t, "utorrent-3.5", c.Client)
	require.Equal(t, -1.0, c.UploadRatioTarget)
	require.Equal(t, int64(259200000), c.MaxNonSeedingTimeMs)
	require.Equal(t, int64(604800000), c.RequiredSeedingTimeMs)
}

func TestLoadHonorsExplicitOptionalFields(t *testing.T) {
	path := writeConfig(t, `{
		"minUploadRate": 1000,
		"maxUploadRate": 2000,
		"simultaneousSeed": -1,
		"client": "utorrent-3.5",
		"keepTorrentWithZeroLeechers": true,
		"uploadRatioTarget": 1.5,
		"maxNonSeedingTimeMs": 1000,
		"requiredSeedingTimeMs": 2000
	}`)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, -1, c.SimultaneousSeed)
	require.Equal(t, 1.5, c.UploadRatioTarget)
	require.Equal(t, int64(1000), c.MaxNonSeedingTimeMs)
	require.Equal(t, int64(2000), c.RequiredSeedingTimeMs)
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	path := writeConfig(t, `{
		"minUploadRate": 1000,
		"maxUploadRate": 2000,
		"simultaneousSeed": 1,
		"client": "utorrent-3.5",
		"keepTorrentWithZeroLeechers": false,
		"webUIPort": 8080
	}`)

	_, err := Load(path)
	require.NoError(t, err)
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := writeConfig(t, `{
		"minUploadRate": 1000,
		"maxUploadRate": 2000,
		"simultaneousSeed": 1,
		"keepTorrentWithZeroLeechers": false
	}`)

	_, err := Load(path)
	require.Error(t, err)
	require.IsType(t, &ErrInvalid{}, err)
}

func TestLoadRejectsMaxBelowMin(t *testing.T) {
	path := writeConfig(t, `{
		"minUploadRate": 2000,
		"maxUploadRate": 1000,
		"simultaneousSeed": 1,
		"client": "utorrent-3.5",
		"keepTorrentWithZeroLeechers": false
	}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsZeroSimultaneousSeed(t *testing.T) {
	path := writeConfig(t, `{
		"minUploadRate": 1000,
		"maxUploadRate": 2000,
		"simultaneousSeed": 0,
		"client": "utorrent-3.5",
		"keepTorrentWithZeroLeechers": false
	}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsNegativeUploadRatioTargetOtherThanSentinel(t *testing.T) {
	path := writeConfig(t, `{
		"minUploadRate": 1000,
		"maxUploadRate": 2000,
		"simultaneousSeed": 1,
		"client": "utorrent-3.5",
		"keepTorrentWithZeroLeechers": false,
		"uploadRatioTarget": -2
	}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
}
