package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

var (
	ErrEmptyFile        = errors.New("storage: пустой файл")
	ErrFileTooLarge     = errors.New("storage: размер файла превышает лимит")
	ErrUnsupportedImage = errors.New("storage: неподдерживаемый тип изображения")
	ErrInvalidPath      = errors.New("storage: некорректный путь")
)

// Разрешены только фото с телефона; расширение берём из реального типа, а не из имени файла.
var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// sniffLen достаточно для всех сигнатур, которые знает filetype.
const sniffLen = 512

// PhotoStorage хранит фото-доказательства к сообщениям жителей на диске.
type PhotoStorage struct {
	rootPath       string
	maxUploadBytes int64
	now            func() time.Time
}

// NewPhotoStorage создаёт файловое хранилище.
func NewPhotoStorage(rootPath string, maxUploadMB int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
		now:            time.Now,
	}, nil
}

// SaveImage проверяет сигнатуру файла и сохраняет его в каталог владельца.
// Возвращает относительный путь (всегда со слэшами) и MIME тип.
func (s *PhotoStorage) SaveImage(ctx context.Context, ownerID uuid.UUID, r io.Reader) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", "", fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	if len(head) == 0 {
		return "", "", ErrEmptyFile
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", "", ErrUnsupportedImage
	}
	ext, ok := allowedMimeTypes[kind.MIME.Value]
	if !ok {
		return "", "", ErrUnsupportedImage
	}

	ownerDir := filepath.Join(s.rootPath, ownerID.String())
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", "", fmt.Errorf("storage: не удалось создать каталог владельца: %w", err)
	}

	fileName := fmt.Sprintf("%d_%s%s", s.now().UnixNano(), uuid.NewString()[:8], ext)
	targetPath := filepath.Join(ownerDir, fileName)
	tempPath := targetPath + ".tmp"

	if err := s.write(tempPath, br); err != nil {
		_ = os.Remove(tempPath)
		return "", "", err
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return "", "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return ownerID.String() + "/" + fileName, kind.MIME.Value, nil
}

func (s *PhotoStorage) write(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		return fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		return ErrFileTooLarge
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	return nil
}

// Resolve возвращает абсолютный путь к файлу, не выпуская за пределы корня.
func (s *PhotoStorage) Resolve(relativePath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relativePath))
	if cleaned == "." || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.rootPath, cleaned), nil
}

// Delete удаляет файл из хранилища.
func (s *PhotoStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.Resolve(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}
