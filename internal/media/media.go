// internal/media/media.go
//
// Local file storage for uploads.
//
// Context
//   Attachments and images are written under <root>/<kind>/YYYY/MM/DD/ with
//   a collision-resistant name:
//
//     slug(stem) + "_" + md5(stem + YYYYmmdd_HHMMSS)[:8] + lower(ext)
//
//   The stored path (slash-separated, relative to root) is what the
//   database keeps.  Content type is sniffed from the first bytes with
//   mimetype and falls back to the extension table.
//
// Notes
//   • Save enforces the extension whitelist and the size cap while
//     streaming; an oversize upload leaves no file behind.
//   • Open and Remove reject paths that escape root.
//
//------------------------------------------------------------------------------

package media

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/slug"
)

var (
	ErrExtension = errors.New("media: file type not allowed")
	ErrTooLarge  = errors.New("media: file too large")
	ErrEmpty     = errors.New("media: empty file")
	ErrBadPath   = errors.New("media: invalid path")
)

// DefaultMaxBytes is the upload cap when none is configured.
const DefaultMaxBytes = 10 << 20

// Kind is a class of upload with its own directory and whitelist.
type Kind struct {
	Dir     string
	Allowed []string // lower-case extensions without the dot
}

var (
	Attachments = Kind{Dir: "attachments", Allowed: []string{
		"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
		"txt", "csv", "zip", "rar", "7z",
		"jpg", "jpeg", "png", "gif", "svg", "webp",
	}}
	Images = Kind{Dir: "images", Allowed: []string{"jpg", "jpeg", "png", "gif", "svg", "webp"}}
)

// Allows reports whether name's extension is on the whitelist.
func (k Kind) Allows(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, a := range k.Allowed {
		if a == ext {
			return true
		}
	}
	return false
}

// Stored describes a saved upload.
type Stored struct {
	Path         string // relative, slash-separated
	OriginalName string
	Size         int64
	MIME         string
}

// Storage writes uploads below Root.
type Storage struct {
	root      string
	urlPrefix string
	maxBytes  int64
	now       func() time.Time
}

// NewStorage returns a Storage rooted at root.  urlPrefix ("/media/") is
// used by URL.  maxBytes <= 0 selects DefaultMaxBytes.
func NewStorage(root, urlPrefix string, maxBytes int64) *Storage {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Storage{root: root, urlPrefix: urlPrefix, maxBytes: maxBytes, now: time.Now}
}

// MaxBytes is the per-file cap.
func (s *Storage) MaxBytes() int64 { return s.maxBytes }

// Root is the directory files are stored under.
func (s *Storage) Root() string { return s.root }

// Save streams r to a new file for kind.
func (s *Storage) Save(kind Kind, originalName string, r io.Reader) (*Stored, error) {
	originalName = filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if !kind.Allows(originalName) {
		return nil, ErrExtension
	}

	now := s.now().UTC()
	rel := path.Join(kind.Dir, now.Format("2006/01/02"), UniqueFilename(originalName, now))
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("media: mkdir: %w", err)
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("media: read: %w", err)
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	head = head[:n]

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("media: create: %w", err)
	}
	size, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && size > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		if rmErr := os.Remove(full); rmErr != nil {
			zap.L().Warn("media: cleanup failed", zap.String("path", full), zap.Error(rmErr))
		}
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("media: write: %w", err)
	}

	return &Stored{
		Path:         rel,
		OriginalName: originalName,
		Size:         size,
		MIME:         detectMIME(head, originalName),
	}, nil
}

// Open returns the stored file for reading.
func (s *Storage) Open(rel string) (*os.File, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes a stored file; a missing file is not an error.
func (s *Storage) Remove(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL is the public URL for a stored path.
func (s *Storage) URL(rel string) string {
	return strings.TrimRight(s.urlPrefix, "/") + "/" + rel
}

func (s *Storage) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel {
		return "", ErrBadPath
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// UniqueFilename derives the stored name for original at now.
func UniqueFilename(original string, now time.Time) string {
	ext := filepath.Ext(original)
	stem := strings.TrimSuffix(original, ext)
	sum := md5.Sum([]byte(stem + now.Format("20060102_150405")))
	return slug.MakeOr(stem, "file") + "_" + hex.EncodeToString(sum[:])[:8] + strings.ToLower(ext)
}

// mimeByExt is the fallback when sniffing is inconclusive.
var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".zip":  "application/zip",
	".rar":  "application/vnd.rar",
	".7z":   "application/x-7z-compressed",
}

// MIMEByExt maps a filename to a content type by extension.
func MIMEByExt(name string) string {
	if m, ok := mimeByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return m
	}
	return "application/octet-stream"
}

func detectMIME(head []byte, name string) string {
	mt := mimetype.Detect(head)
	// "text/plain; charset=utf-8" → "text/plain"
	sniffed, _, _ := strings.Cut(mt.String(), ";")
	if sniffed == "" || sniffed == "application/octet-stream" {
		return MIMEByExt(name)
	}
	// Plain-text sniffing cannot tell csv from txt; trust the extension.
	if sniffed == "text/plain" {
		if byExt := MIMEByExt(name); strings.HasPrefix(byExt, "text/") {
			return byExt
		}
	}
	return sniffed
}
