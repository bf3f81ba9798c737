// Package archive stores raw uploaded billing CSVs in a GCS bucket so they
// can be audited or replayed later. Archival is best-effort: the ingestion
// result never depends on it.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// Archiver writes and reads archived uploads under a bucket prefix.
type Archiver struct {
	client *storage.Client
	bucket string
	prefix string
	log    zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an archiver on an injected storage client. The caller owns
// the client's credentials; Close releases it.
func New(client *storage.Client, bucket, prefix string, log zerolog.Logger) *Archiver {
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		log:    log.With().Str("component", "archive").Logger(),
		now:    time.Now,
	}
}

// Store writes one uploaded file under <prefix>/<date>/<uuid>_<filename>
// and returns the object name.
func (a *Archiver) Store(ctx context.Context, filename string, data []byte) (string, error) {
	object := objectName(a.prefix, filename, a.now().UTC(), uuid.New().String())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("Store: writing object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Store: finalizing object %s: %w", object, err)
	}

	a.log.Debug().Str("bucket", a.bucket).Str("object", object).Int("bytes", len(data)).Msg("Archived upload")
	return object, nil
}

// List returns the archived object names under the prefix, sorted so replay
// processes uploads in a stable order.
func (a *Archiver) List(ctx context.Context) ([]string, error) {
	it := a.client.Bucket(a.bucket).Objects(ctx, &storage.Query{Prefix: a.prefix + "/"})

	var objects []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("List: iterating objects: %w", err)
		}
		objects = append(objects, attrs.Name)
	}

	sort.Strings(objects)
	return objects, nil
}

// Fetch downloads one archived object.
func (a *Archiver) Fetch(ctx context.Context, object string) ([]byte, error) {
	r, err := a.client.Bucket(a.bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: opening object %s: %w", object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s: %w", object, err)
	}
	return data, nil
}

// Close releases the underlying storage client.
func (a *Archiver) Close() error {
	return a.client.Close()
}

// objectName builds the archive path for one upload. The original filename
// is flattened to its base name so path separators cannot escape the
// date directory.
func objectName(prefix, filename string, now time.Time, id string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload.csv"
	}
	return fmt.Sprintf("%s/%s/%s_%s", prefix, now.Format("2006/01/02"), id, base)
}

// OriginalFilename recovers the uploaded filename from an archived object
// name, for replay through the cloud-inference step.
func OriginalFilename(object string) string {
	base := path.Base(object)
	if _, rest, found := strings.Cut(base, "_"); found && rest != "" {
		return rest
	}
	return base
}
