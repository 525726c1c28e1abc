package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/jdcompare/store"
	"github.com/spetersoncode/jdcompare/store/bolt"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
}

func TestOpenStoreMemory(t *testing.T) {
	st, backend, err := openStore(context.Background(), &Config{})
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, "memory", backend)
	assert.IsType(t, &store.Memory{}, st)
}

func TestOpenStoreBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "jdcompare.db")

	st, backend, err := openStore(context.Background(), &Config{BoltPath: path})
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, "bolt", backend)
	assert.IsType(t, &bolt.Store{}, st)
}

func TestMigrateRequiresStore(t *testing.T) {
	clearEnv(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to migrate")
}

func TestMigrateBolt(t *testing.T) {
	clearEnv(t)
	t.Setenv("JDCOMPARE_BOLT_PATH", filepath.Join(t.TempDir(), "jdcompare.db"))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "bolt schema is up to date\n", out.String())
}
