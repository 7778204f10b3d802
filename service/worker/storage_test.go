package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalFileStore {
	t.Helper()
	store, err := NewLocalFileStore(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalFileStore_StoreAndFetch(t *testing.T) {
	store := newTestStore(t)
	content := "name,age\nalice,30\n"

	key, size, hash, err := store.Store(context.Background(), "Users.CSV", strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	expected := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(expected[:]), hash)
	assert.Equal(t, hash+".csv", key, "键为哈希加小写扩展名")

	localPath, err := store.Fetch(context.Background(), key)
	require.NoError(t, err)
	defer os.Remove(localPath)

	fetched, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(fetched))
	assert.True(t, strings.HasSuffix(localPath, ".csv"), "临时文件保留扩展名")
}

func TestLocalFileStore_ContentAddressing(t *testing.T) {
	store := newTestStore(t)

	key1, _, _, err := store.Store(context.Background(), "a.csv", strings.NewReader("same"))
	require.NoError(t, err)
	key2, _, _, err := store.Store(context.Background(), "b.csv", strings.NewReader("same"))
	require.NoError(t, err)
	assert.Equal(t, key1, key2, "相同内容产生相同键")
}

func TestLocalFileStore_FetchMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Fetch(context.Background(), "no-such-key.csv")
	assert.Error(t, err)
}

func TestLocalFileStore_Delete(t *testing.T) {
	store := newTestStore(t)

	key, _, _, err := store.Store(context.Background(), "a.csv", strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), key))
	_, err = store.Fetch(context.Background(), key)
	assert.Error(t, err, "删除后不可再抓取")

	// 删除不存在的键不报错
	assert.NoError(t, store.Delete(context.Background(), "ghost.csv"))
}

func TestLocalFileStore_KeyTraversal(t *testing.T) {
	store := newTestStore(t)

	key, _, _, err := store.Store(context.Background(), "a.csv", strings.NewReader("data"))
	require.NoError(t, err)

	// 路径穿越被 Base 归一化，仍命中同一文件
	localPath, err := store.Fetch(context.Background(), "../../"+key)
	require.NoError(t, err)
	defer os.Remove(localPath)
}
