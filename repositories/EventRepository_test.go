package repositories

import (
	"path/filepath"
	"testing"

	"github.com/reaandrew/salus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[string]EventRepository {
	t.Helper()
	dir := t.TempDir()
	repos := map[string]EventRepository{}
	for kind, p := range map[string]string{
		KindSqlite: filepath.Join(dir, "events.db"),
		KindBolt:   filepath.Join(dir, "events.bolt"),
		KindFile:   filepath.Join(dir, "events"),
	} {
		repo, err := New(kind, p)
		require.NoError(t, err, kind)
		t.Cleanup(func() { repo.Close() })
		repos[kind] = repo
	}
	return repos
}

func TestEventRepositoriesIterateInStoreOrder(t *testing.T) {
	for kind, repo := range openAll(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, repo.Store(sampleSet("api")))
			require.NoError(t, repo.Store(sampleSet("web")))

			var names []string
			it := repo.NewIterator()
			for it.HasNext() {
				set, err := it.Next()
				require.NoError(t, err)
				names = append(names, set.Repository)
				assert.Len(t, set.Events, 4)
			}
			assert.Equal(t, []string{"api", "web"}, names)

			_, err := it.Next()
			assert.Error(t, err)

			require.NoError(t, it.Reset())
			assert.True(t, it.HasNext())
		})
	}
}

func TestEventRepositoriesPreserveEventContent(t *testing.T) {
	for kind, repo := range openAll(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, repo.Store(sampleSet("api")))

			it := repo.NewIterator()
			require.True(t, it.HasNext())
			set, err := it.Next()
			require.NoError(t, err)

			assert.True(t, set.Events[0].IsFailure())
			assert.Equal(t, core.InfoTypeDependency, set.Events[1].InfoType)
			assert.Equal(t, "github.com/sirupsen/logrus", set.Events[1].Message.(map[string]any)["name"])
			assert.Equal(t, "warning", set.Events[2].Text)
			assert.Equal(t, "boom", set.Events[3].Error["message"])
		})
	}
}

func TestEventRepositoriesClear(t *testing.T) {
	for kind, repo := range openAll(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, repo.Store(sampleSet("api")))
			require.NoError(t, repo.Clear())
			assert.False(t, repo.NewIterator().HasNext())
		})
	}
}

func TestSqliteEventRepositoryIndexesEvents(t *testing.T) {
	repo, err := NewSqliteEventRepository(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Store(sampleSet("api")))
	require.NoError(t, repo.Store(sampleSet("web")))

	count, err := repo.(*SqliteEventRepository).CountEvents(core.EventError)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("mongo", "x")
	assert.Error(t, err)
}
