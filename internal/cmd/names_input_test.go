package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/marklens/marklens/internal/errors"
)

func TestResolveNamesPositional(t *testing.T) {
	names, err := resolveNames([]string{" تک نان ", "", "Nova"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"تک نان", "Nova"}, names)
}

func TestResolveNamesRejectsEmpty(t *testing.T) {
	_, err := resolveNames(nil, "")
	assert.Error(t, err)
}

func TestResolveNamesRejectsMixedSources(t *testing.T) {
	_, err := resolveNames([]string{"Nova"}, "names.txt")
	assert.ErrorContains(t, err, "cannot combine")
}

func TestReadNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(path, []byte(`
# proposed names
تک نان
سیب (Apple)

Nova
`), 0o644))

	names, err := readNamesFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"تک نان", "سیب (Apple)", "Nova"}, names)
}

func TestReadNamesFileMissingIsFileReadError(t *testing.T) {
	_, err := readNamesFile(filepath.Join(t.TempDir(), "absent.txt"))
	var fileErr *apperrors.FileReadError
	assert.ErrorAs(t, err, &fileErr)
}

func TestReadNamesFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(path, []byte("# only comments\n"), 0o644))
	_, err := readNamesFile(path)
	assert.ErrorContains(t, err, "no names found")
}
