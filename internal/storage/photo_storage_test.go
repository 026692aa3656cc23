package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// Минимальная PNG сигнатура с заголовком IHDR.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func newTestStorage(t *testing.T, maxMB int64) *PhotoStorage {
	t.Helper()
	s, err := NewPhotoStorage(t.TempDir(), maxMB)
	if err != nil {
		t.Fatalf("NewPhotoStorage: %v", err)
	}
	return s
}

func TestSaveImageStoresPNG(t *testing.T) {
	s := newTestStorage(t, 1)
	owner := uuid.New()

	rel, mime, err := s.SaveImage(context.Background(), owner, bytes.NewReader(append(pngHeader, make([]byte, 100)...)))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("ожидали image/png, получили %s", mime)
	}
	if filepath.Ext(rel) != ".png" {
		t.Fatalf("ожидали расширение .png, путь %s", rel)
	}

	abs, err := s.Resolve(rel)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil || info.Size() != int64(len(pngHeader)+100) {
		t.Fatalf("файл не сохранён целиком: %v", err)
	}

	if err := s.Delete(context.Background(), rel); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(abs); !os.IsNotExist(err) {
		t.Fatalf("файл должен быть удалён")
	}
}

func TestSaveImageRejectsNonImage(t *testing.T) {
	s := newTestStorage(t, 1)

	_, _, err := s.SaveImage(context.Background(), uuid.New(), bytes.NewReader([]byte("%PDF-1.4 not a photo")))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("ожидали ErrUnsupportedImage, получили %v", err)
	}
}

func TestSaveImageRejectsEmpty(t *testing.T) {
	s := newTestStorage(t, 1)

	_, _, err := s.SaveImage(context.Background(), uuid.New(), bytes.NewReader(nil))
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("ожидали ErrEmptyFile, получили %v", err)
	}
}

func TestSaveImageRejectsOversize(t *testing.T) {
	s := newTestStorage(t, 1)
	payload := append(append([]byte{}, pngHeader...), make([]byte, 1024*1024)...)

	_, _, err := s.SaveImage(context.Background(), uuid.New(), bytes.NewReader(payload))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("ожидали ErrFileTooLarge, получили %v", err)
	}

	entries, _ := filepath.Glob(filepath.Join(s.rootPath, "*", "*"))
	if len(entries) != 0 {
		t.Fatalf("временные файлы не удалены: %v", entries)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newTestStorage(t, 1)

	for _, p := range []string{"../etc/passwd", "/etc/passwd", ""} {
		if _, err := s.Resolve(p); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("%q: ожидали ErrInvalidPath, получили %v", p, err)
		}
	}
}
