package file

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// MaxReceiptWidth is the widest receipt image kept as uploaded.
const MaxReceiptWidth = 1600

// StoredFile describes a file written to storage.
type StoredFile struct {
	Key         string
	ContentType string
	Size        int64
}

type FileService interface {
	// UploadReceipt stores an expense receipt under expenses/{employeeID}/.
	UploadReceipt(ctx context.Context, employeeID string, fileName string, content io.Reader) (StoredFile, error)

	Open(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, key string) error
}

type fileServiceImpl struct {
	storage storage.FileStorage
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
	}
}

// UploadReceipt implements FileService. JPEG and PNG receipts wider than
// MaxReceiptWidth are scaled down first; everything else is stored verbatim.
func (s *fileServiceImpl) UploadReceipt(ctx context.Context, employeeID string, fileName string, content io.Reader) (StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	buffer, err := io.ReadAll(content)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to read receipt: %w", err)
	}

	if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
		buffer = downscale(buffer, ext)
	}

	key := filepath.ToSlash(filepath.Join("expenses", employeeID, uuid.New().String()+ext))
	stored, err := s.storage.Put(ctx, key, bytes.NewReader(buffer))
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to store receipt: %w", err)
	}

	return StoredFile{
		Key:         stored,
		ContentType: contentTypeOf(ext),
		Size:        int64(len(buffer)),
	}, nil
}

// Open implements FileService.
func (s *fileServiceImpl) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.storage.Open(ctx, key)
}

// DeleteFile implements FileService.
func (s *fileServiceImpl) DeleteFile(ctx context.Context, key string) error {
	return s.storage.Delete(ctx, key)
}

func contentTypeOf(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return "application/octet-stream"
}

// downscale returns the image re-encoded at MaxReceiptWidth when it is wider,
// and the original bytes otherwise or when it cannot be decoded.
func downscale(buffer []byte, ext string) []byte {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buffer))
	if err != nil {
		slog.Warn("receipt is not a decodable image, storing as uploaded", "error", err)
		return buffer
	}
	if cfg.Width <= MaxReceiptWidth {
		return buffer
	}

	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		slog.Warn("receipt is not a decodable image, storing as uploaded", "error", err)
		return buffer
	}

	height := cfg.Height * MaxReceiptWidth / cfg.Width
	if height < 1 {
		height = 1
	}
	resized := resizeImage(img, MaxReceiptWidth, height)

	out := new(bytes.Buffer)
	if ext == ".png" {
		err = png.Encode(out, resized)
	} else {
		err = jpeg.Encode(out, resized, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		slog.Warn("failed to re-encode receipt, storing as uploaded", "error", err)
		return buffer
	}
	return out.Bytes()
}

// resizeImage resizes an image to the specified dimensions using high-quality interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
