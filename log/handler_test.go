// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandlerRendersAmounts(t *testing.T) {
	var buf bytes.Buffer
	logger := New(JSONHandlerWithLevel(&buf, LevelDebug), "pkg", "test")

	logger.Info("deposit", "amount", uint256.NewInt(1_000_000), "missing", (*uint256.Int)(nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "deposit", rec["msg"])
	assert.Equal(t, "test", rec["pkg"])
	assert.Equal(t, "1000000", rec["amount"])
	assert.Equal(t, "<nil>", rec["missing"])
	assert.Equal(t, "info", rec["lvl"])
	assert.Contains(t, rec, "t")
}

func TestLogfmtHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LogfmtHandlerWithLevel(&buf, LevelWarn))

	logger.Info("hidden")
	assert.Empty(t, buf.String())
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))

	logger.Warn("shown", "k", "v")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNewHandler(t *testing.T) {
	for _, format := range []string{"terminal", "json", "logfmt", ""} {
		h, err := NewHandler(format, &bytes.Buffer{}, LevelInfo)
		assert.NoError(t, err)
		assert.NotNil(t, h)
	}
	_, err := NewHandler("xml", &bytes.Buffer{}, LevelInfo)
	assert.Error(t, err)
}

func TestWithContextFollowsRoot(t *testing.T) {
	var buf bytes.Buffer
	logger := WithContext("pkg", "lazy")

	SetDefault(JSONHandlerWithLevel(&buf, LevelTrace))
	defer SetDefault(DiscardHandler())

	logger.With("id", 7).Debug("resolved late")
	assert.Contains(t, buf.String(), "\"pkg\":\"lazy\"")
	assert.Contains(t, buf.String(), "\"id\":7")
}
