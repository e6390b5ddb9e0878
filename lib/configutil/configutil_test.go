package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string            `json:"base_url"`
	PageSize int               `json:"page_size"`
	Headers  map[string]string `json:"headers"`
}

func writeFile(t testing.TB, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.json5"), `{
		// comments are allowed
		base_url: "https://example.com",
		page_size: 10,
	}`)
	writeFile(t, filepath.Join(dir, "app.local.json5"), `{page_size: 25}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{BaseUrl: "https://example.com", PageSize: 25}, config)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.local.json5"), `{base_url: "https://local"}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://local", config.BaseUrl)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "app.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.json5"), `{base_url: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(root, "app.json5"), `{page_size: 7}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	config, err := ReadRecursively[testConfig]("app.json5")
	require.NoError(t, err)
	require.Equal(t, 7, config.PageSize)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("dir", "app.local.json5"), localPath(filepath.Join("dir", "app.json5")))
	require.Equal(t, "app.local", localPath("app"))
}

func TestWithDefaults(t *testing.T) {
	config, err := WithDefaults(
		testConfig{PageSize: 50},
		testConfig{BaseUrl: "https://default", PageSize: 10},
	)
	require.NoError(t, err)
	require.Equal(t, testConfig{BaseUrl: "https://default", PageSize: 50}, config)
}
