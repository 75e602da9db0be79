package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coverage.lcov")
	require.NoError(t, os.WriteFile(path, []byte("SF:a.py\nDA:1,1\nend_of_record\n"), 0o600))
	return path
}

func TestSubmitPostsArtifact(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, "secret", server.Client())
	err := client.Submit(context.Background(), writeArtifact(t), true)
	require.NoError(t, err)

	assert.Equal(t, "/jobs", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, true, gotBody["parallel"])
	assert.Contains(t, gotBody["lcov"], "SF:a.py")
}

func TestSubmitMissingArtifact(t *testing.T) {
	client := NewClientWithHTTP("http://unused", "", http.DefaultClient)
	err := client.Submit(context.Background(), filepath.Join(t.TempDir(), "nope.lcov"), false)
	assert.Error(t, err)
}

func TestSubmitServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token rejected", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, "bad", server.Client())
	err := client.Submit(context.Background(), writeArtifact(t), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token rejected")
}

func TestFinalizeClosesRun(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, "", server.Client())
	require.NoError(t, client.Finalize(context.Background(), "run-42"))

	assert.Equal(t, "/webhook", gotPath)
	assert.Equal(t, "run-42", gotBody["run_id"])
	assert.Equal(t, "done", gotBody["status"])
}

func TestNewClientReadsTokenEnv(t *testing.T) {
	t.Setenv("MATRIXCTL_TEST_TOKEN", "from-env")
	client := NewClient("http://example.invalid", "MATRIXCTL_TEST_TOKEN")
	assert.Equal(t, "from-env", client.token)
}
