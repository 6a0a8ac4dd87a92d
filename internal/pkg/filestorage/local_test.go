package filestorage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "http://localhost:8080/uploads")
	require.NoError(t, err)

	info, err := ls.Save(uploadHeader(t, "Notes.PDF", []byte("hello")), "materials/CS201")
	require.NoError(t, err)
	assert.Equal(t, "Notes.PDF", info.Filename)
	assert.Equal(t, int64(5), info.FileSize)
	assert.Equal(t, ".pdf", filepath.Ext(info.Path))
	assert.Equal(t, "http://localhost:8080/uploads/"+info.Path, info.URL)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(info.Path)))
	require.NoError(t, err)

	require.NoError(t, ls.Delete(info.Path))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(info.Path)))
	assert.True(t, os.IsNotExist(err))

	// idempotent
	assert.NoError(t, ls.Delete(info.Path))
}

func TestSubPathCannotEscapeRoot(t *testing.T) {
	assert.Equal(t, "etc/passwd", cleanSubPath("../../etc/passwd"))
	assert.Equal(t, "a/b", cleanSubPath("/a/./b/"))
	assert.Equal(t, "", cleanSubPath(".."))
}
