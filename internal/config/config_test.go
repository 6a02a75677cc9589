package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAndLoad(t *testing.T) {
	v := viper.New()
	Defaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "lexigraph", cfg.Logger.ServiceName)
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	assert.Equal(t, 10000, cfg.Loader.BatchRows)
	assert.Equal(t, 50, cfg.Loader.PreviewLimit)
	assert.Equal(t, 20000, cfg.Loader.CleanupChunk)
	assert.Empty(t, cfg.Journal.DSN)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	Defaults(v)
	v.Set("neo4j.uri", "bolt+s://db.example.com:7687")
	v.Set("loader.batch_rows", 2500)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "bolt+s://db.example.com:7687", cfg.Neo4j.URI)
	assert.Equal(t, 2500, cfg.Loader.BatchRows)
}

func TestResolvePassword(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "from-env")

	assert.Equal(t, "explicit", Neo4jConfig{Password: "explicit"}.ResolvePassword())
	assert.Equal(t, "from-env", Neo4jConfig{}.ResolvePassword())

	t.Setenv("NEO4J_PASSWORD", "")
	assert.Empty(t, Neo4jConfig{}.ResolvePassword())
}
