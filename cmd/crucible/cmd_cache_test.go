package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spboyer/crucible/internal/cache"
	"github.com/spboyer/crucible/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCache(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "cache")
	c := cache.New(dir)
	for _, q := range []models.SearchQuery{
		{Text: "hive rental market", Type: models.QueryTypeMarketSize},
		{Text: "urban beekeeping growth", Type: models.QueryTypeTrend},
	} {
		_, err := c.Put(cache.Key(q), &models.ValidationResult{Query: q, Status: models.ValidationPartial})
		require.NoError(t, err)
	}
	return dir
}

func TestCacheStatsCommand(t *testing.T) {
	dir := seedCache(t)

	var out bytes.Buffer
	cmd := newCacheCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"stats", "--cache-dir", dir})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Entries: 2")
	assert.Regexp(t, `market_size\s+1`, out.String())
	assert.Regexp(t, `trend\s+1`, out.String())
}

func TestCacheClearCommand(t *testing.T) {
	dir := seedCache(t)

	var out bytes.Buffer
	cmd := newCacheCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"clear", "--cache-dir", dir})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Cache cleared")
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
