package memory

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a test preferences repository
func newTestPreferencesRepository() *PreferencesRepository {
	app := test.NewApp()
	prefs := app.Preferences()

	return NewPreferencesRepository(prefs)
}

func TestPreferencesRepository_LoadModes_Default(t *testing.T) {
	repo := newTestPreferencesRepository()

	shuffle, repeat, err := repo.LoadModes()
	require.NoError(t, err)
	assert.False(t, shuffle)
	assert.False(t, repeat)
}

func TestPreferencesRepository_SaveAndLoadModes(t *testing.T) {
	repo := newTestPreferencesRepository()

	require.NoError(t, repo.SaveModes(true, false))
	shuffle, repeat, err := repo.LoadModes()
	require.NoError(t, err)
	assert.True(t, shuffle)
	assert.False(t, repeat)

	require.NoError(t, repo.SaveModes(false, true))
	shuffle, repeat, err = repo.LoadModes()
	require.NoError(t, err)
	assert.False(t, shuffle)
	assert.True(t, repeat)
}

func TestPreferencesRepository_SaveAndLoadScanPaths(t *testing.T) {
	repo := newTestPreferencesRepository()

	paths := []string{"/home/user/Music", "/mnt/nas/flac"}
	require.NoError(t, repo.SaveScanPaths(paths))

	loaded, err := repo.LoadScanPaths()
	require.NoError(t, err)
	assert.Equal(t, paths, loaded)
}

func TestPreferencesRepository_LoadScanPaths_Empty(t *testing.T) {
	repo := newTestPreferencesRepository()

	paths, err := repo.LoadScanPaths()
	require.NoError(t, err)
	assert.NotNil(t, paths)
	assert.Empty(t, paths)
}

func TestPreferencesRepository_SaveScanPaths_OverwritesPrevious(t *testing.T) {
	repo := newTestPreferencesRepository()

	require.NoError(t, repo.SaveScanPaths([]string{"/a", "/b"}))
	require.NoError(t, repo.SaveScanPaths([]string{"/c"}))

	paths, err := repo.LoadScanPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{"/c"}, paths)
}

func TestPreferencesRepository_LoadScanPaths_Corrupt(t *testing.T) {
	app := test.NewApp()
	app.Preferences().SetString(keyScanPaths, "{not json")
	repo := NewPreferencesRepository(app.Preferences())

	_, err := repo.LoadScanPaths()
	assert.Error(t, err)
}

func TestPreferencesRepository_Clear(t *testing.T) {
	repo := newTestPreferencesRepository()

	require.NoError(t, repo.SaveModes(true, true))
	require.NoError(t, repo.SaveScanPaths([]string{"/music"}))
	require.NoError(t, repo.Clear())

	shuffle, repeat, err := repo.LoadModes()
	require.NoError(t, err)
	assert.False(t, shuffle)
	assert.False(t, repeat)

	paths, err := repo.LoadScanPaths()
	require.NoError(t, err)
	assert.Empty(t, paths)
}
