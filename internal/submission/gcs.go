package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	gcs "cloud.google.com/go/storage"

	"github.com/ciphera-net/website/internal/contact"
)

// ObjectWriterFunc opens a writer for bucket/object with the given content type.
type ObjectWriterFunc func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// GCSAttachmentStore uploads contact attachments to Cloud Storage.
type GCSAttachmentStore struct {
	bucket    string
	newWriter ObjectWriterFunc
}

// NewGCSAttachmentStore constructs a store backed by client.
func NewGCSAttachmentStore(client *gcs.Client, bucket string) (*GCSAttachmentStore, error) {
	if client == nil {
		return nil, errors.New("gcs attachment store: client is required")
	}
	return newGCSAttachmentStore(bucket, func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		w.ContentDisposition = "attachment"
		w.Metadata = map[string]string{"source": "contact-form"}
		return w
	})
}

func newGCSAttachmentStore(bucket string, newWriter ObjectWriterFunc) (*GCSAttachmentStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs attachment store: bucket is required")
	}
	return &GCSAttachmentStore{bucket: bucket, newWriter: newWriter}, nil
}

// Put implements AttachmentStore and returns a gs:// URI.
func (s *GCSAttachmentStore) Put(ctx context.Context, env Envelope, a contact.Attachment) (string, error) {
	object, err := AttachmentObjectPath(env, a.Filename)
	if err != nil {
		return "", err
	}
	contentType := strings.TrimSpace(a.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w := s.newWriter(ctx, s.bucket, object, contentType)
	if _, err := w.Write(a.Content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize attachment: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}

// AttachmentObjectPath returns contact/YYYY/MM/<id>/<filename>.
func AttachmentObjectPath(env Envelope, filename string) (string, error) {
	id := strings.TrimSpace(env.ID)
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("gcs attachment store: invalid submission id %q", env.ID)
	}
	name := SanitizeFilename(filename)
	if name == "" {
		return "", errors.New("gcs attachment store: filename is required")
	}
	at := env.ReceivedAt.UTC()
	return path.Join("contact", at.Format("2006"), at.Format("01"), id, name), nil
}

// SanitizeFilename strips directories and replaces characters that are
// unsafe in object names.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if len(out) > 128 {
		out = out[len(out)-128:]
	}
	return out
}
