package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitylink/communitylink/internal/bootstrap"
)

func TestServerRunStopsWhenContextEnds(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
server:
  port: "0"
  mode: production
database:
  driver: sqlite
  sqlite_path: `+filepath.Join(dir, "server.db")+`
jwt:
  secret: test-secret
`), 0o600))

	cfg, _, err := bootstrap.LoadConfigAndSetupLogger(bootstrap.Options{ConfigPath: cfgPath, EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)

	srv, err := NewServer(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Nil(t, srv.storage)
}
