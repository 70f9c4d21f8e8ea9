// Package blobstore persists uploaded file bytes and hands back a stable
// reference to them.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
)

// DefaultMaxBytes is the per-file ceiling.
const DefaultMaxBytes int64 = 50 << 20

const sniffLen = 3072

// Upload is a file as received from the client. Size is -1 when unknown.
type Upload struct {
	Body        io.Reader
	Name        string
	ContentType string
	Size        int64
}

// Object describes stored bytes.
type Object struct {
	StoredName  string
	URL         string
	Size        int64
	ContentType string
}

type Store interface {
	Put(ctx context.Context, up Upload) (Object, error)
}

// StoredName builds "<unix millis>-<9 random digits>-<base name>".
func StoredName(now time.Time, original string) string {
	return fmt.Sprintf("%d-%09d-%s", now.UnixMilli(), rand.IntN(1_000_000_000), baseName(original))
}

func baseName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}

// DetectContentType keeps the declared type unless it is empty or generic, in
// which case the leading bytes are sniffed. The returned reader replays them.
func DetectContentType(r io.Reader, declared string) (string, io.Reader, error) {
	if declared != "" && declared != "application/octet-stream" {
		return declared, r, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]

	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

func tooLarge(size, limit int64) error {
	return fmt.Errorf("%w: %d bytes exceeds limit of %d", models.ErrPayloadTooLarge, size, limit)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStorage, op, err)
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
