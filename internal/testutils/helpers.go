package testutils

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/ports"
)

// Seed writes every key of data into store without expiry.
// It fails the test immediately on error.
func Seed(t *testing.T, store ports.KeyValueStore, data map[string]string) {
	t.Helper()
	for k, v := range data {
		require.NoError(t, store.Set(context.Background(), k, []byte(v), 0), "Failed to seed %s", k)
	}
}

// StorageTree builds a storage-format node document. Children are raw
// documents, typically other StorageTree results.
func StorageTree(state string, visits int, children ...string) string {
	return `{"state":["` + state + `"],"statistics":{"numVisits":` + strconv.Itoa(visits) +
		`},"children":[` + strings.Join(children, ",") + `]}`
}

// WriteFile creates name with content in a temporary directory and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write fixture")
	return path
}
