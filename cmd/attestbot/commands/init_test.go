package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/attestbot/internal/config"
)

func TestInitWritesLoadableConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "attestbot.yaml")
	root := &CLI{Config: configPath}

	cmd := &InitCmd{}
	require.NoError(t, cmd.Run(&Global{}, root))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Forges)
	assert.NotEmpty(t, cfg.Ledger.GraphQLURL)

	// Second init without --force refuses to clobber.
	require.Error(t, cmd.Run(&Global{}, root))

	cmd.Force = true
	require.NoError(t, cmd.Run(&Global{}, root))
}
