package storage

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrTooLarge        = errors.New("document too large")
	ErrEmptyDocument   = errors.New("document is empty")
)

const keyPrefix = "documents/"

// DocumentStore keeps uploaded activity documents. Put returns the URL that
// is stored on the activity; Delete accepts that same URL.
type DocumentStore interface {
	Put(ctx context.Context, doc Document) (string, error)
	Delete(ctx context.Context, url string) error
}

// Document is a sniffed upload ready to be stored.
type Document struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

var allowed = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// Sniff detects the content type from the first bytes of r and rejects
// anything that is not a document.
func Sniff(r io.Reader, size, maxBytes int64) (Document, error) {
	if size == 0 {
		return Document{}, ErrEmptyDocument
	}
	if maxBytes > 0 && size > maxBytes {
		return Document{}, ErrTooLarge
	}

	br := bufio.NewReaderSize(r, 3072)
	head, err := br.Peek(3072)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Document{}, err
	}

	mt := mimetype.Detect(head)
	if !isAllowed(mt) {
		return Document{}, ErrUnsupportedType
	}

	return Document{
		Key:         keyPrefix + uuid.NewString() + mt.Extension(),
		ContentType: mt.String(),
		Size:        size,
		Body:        br,
	}, nil
}

// isAllowed matches the detected type itself, never its parents: text/plain
// is the parent of html, svg and xml.
func isAllowed(mt *mimetype.MIME) bool {
	for _, a := range allowed {
		if mt.Is(a) {
			return true
		}
	}
	return false
}

// keyFromURL strips base from url. ok is false for URLs this store did not
// produce.
func keyFromURL(base, url string) (string, bool) {
	base = strings.TrimSuffix(base, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return "", false
	}

	key := strings.TrimPrefix(url, base)
	if !strings.HasPrefix(key, keyPrefix) || path.Clean(key) != key {
		return "", false
	}

	return key, true
}
