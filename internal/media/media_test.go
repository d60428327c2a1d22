package media

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newStorage(t *testing.T, max int64) *Storage {
	t.Helper()
	s := NewStorage(t.TempDir(), "/media/", max)
	s.now = func() time.Time { return time.Date(2025, 4, 9, 8, 7, 6, 0, time.UTC) }
	return s
}

func TestUniqueFilename(t *testing.T) {
	now := time.Date(2025, 4, 9, 8, 7, 6, 0, time.UTC)
	a := UniqueFilename("Quarterly Report.PDF", now)
	assert.Regexp(t, `^quarterly-report_[0-9a-f]{8}\.pdf$`, a)
	assert.Equal(t, a, UniqueFilename("Quarterly Report.PDF", now))
	assert.NotEqual(t, a, UniqueFilename("Quarterly Report.PDF", now.Add(time.Second)))
	assert.Regexp(t, `^file_[0-9a-f]{8}\.csv$`, UniqueFilename("データ.csv", now))
}

func TestSave(t *testing.T) {
	s := newStorage(t, 1<<20)

	st, err := s.Save(Attachments, `C:\Users\me\pixel.png`, bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(st.Path, "attachments/2025/04/09/pixel_"), st.Path)
	assert.Equal(t, "pixel.png", st.OriginalName)
	assert.Equal(t, int64(len(pngHeader)), st.Size)
	assert.Equal(t, "image/png", st.MIME)
	assert.Equal(t, "/media/"+st.Path, s.URL(st.Path))

	f, err := s.Open(st.Path)
	require.NoError(t, err)
	got, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, pngHeader, got)

	require.NoError(t, s.Remove(st.Path))
	require.NoError(t, s.Remove(st.Path))
}

func TestSaveRejects(t *testing.T) {
	s := newStorage(t, 10)

	_, err := s.Save(Attachments, "run.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, ErrExtension)

	_, err = s.Save(Images, "doc.pdf", strings.NewReader("%PDF"))
	assert.ErrorIs(t, err, ErrExtension)

	_, err = s.Save(Attachments, "empty.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = s.Save(Attachments, "big.txt", strings.NewReader(strings.Repeat("x", 11)))
	assert.ErrorIs(t, err, ErrTooLarge)

	// Nothing is left behind by the oversize upload.
	var files []string
	_ = filepath.Walk(s.root, func(p string, info os.FileInfo, _ error) error {
		if info != nil && !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	assert.Empty(t, files)
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newStorage(t, 0)
	for _, bad := range []string{"../etc/passwd", "/abs", "a/../../b", ""} {
		_, err := s.Open(bad)
		assert.ErrorIs(t, err, ErrBadPath, bad)
	}
}

func TestMIME(t *testing.T) {
	assert.Equal(t, "text/csv", detectMIME([]byte("a,b\n1,2\n"), "data.csv"))
	assert.Equal(t, "text/plain", detectMIME([]byte("hello"), "notes.txt"))
	assert.Equal(t, "application/pdf", detectMIME([]byte("%PDF-1.7\n"), "x.pdf"))
	assert.Equal(t, "application/octet-stream", MIMEByExt("x.unknown"))
	assert.Equal(t, "image/webp", MIMEByExt("A.WEBP"))
}
