package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/autoapply/internal/config"
	"github.com/sells-group/autoapply/internal/model"
)

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
		},
	}

	ctx := context.Background()
	st, err := initStore(ctx)
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck

	// Schema is applied, so the store is usable straight away.
	_, err = st.CreateRun(ctx, model.Job{URL: "https://acme.com/apply"})
	assert.NoError(t, err)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver: "mysql",
		},
	}

	st, err := initStore(context.Background())
	assert.Nil(t, st)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestInitNotion(t *testing.T) {
	cfg = &config.Config{}
	assert.Nil(t, initNotion())

	cfg = &config.Config{Notion: config.NotionConfig{Token: "secret", JobDB: "db"}}
	n := initNotion()
	require.NotNil(t, n)
	assert.Equal(t, "db", n.DB)
	assert.NotNil(t, n.Client)
}
