package standards

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned when no reference document exists for an id
var ErrNotFound = errors.New("standard document not found")

// extensions are tried in order
var extensions = []string{".pdf", ".docx"}

// Document is a stored reference contract
type Document struct {
	Filename string
	Data     []byte
}

// Repository resolves standard ids to reference documents
type Repository interface {
	Load(ctx context.Context, id string) (Document, error)
	List(ctx context.Context) ([]string, error)
}

func validID(id string) bool {
	if strings.TrimSpace(id) == "" || id == "." || strings.Contains(id, "..") {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

func notFound(id string) error {
	return fmt.Errorf("%w: no standard document with id %q", ErrNotFound, id)
}

// FSRepository reads standards from a local directory
type FSRepository struct {
	dir string
}

func NewFSRepository(dir string) *FSRepository {
	return &FSRepository{dir: dir}
}

func (r *FSRepository) Load(_ context.Context, id string) (Document, error) {
	if !validID(id) {
		return Document{}, notFound(id)
	}
	for _, ext := range extensions {
		name := id + ext
		data, err := os.ReadFile(filepath.Join(r.dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Document{}, fmt.Errorf("failed to read standard %s: %w", name, err)
		}
		return Document{Filename: name, Data: data}, nil
	}
	return Document{}, notFound(id)
}

func (r *FSRepository) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list standards: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return idsFrom(names), nil
}

// idsFrom keeps files with a known extension and strips it
func idsFrom(names []string) []string {
	seen := map[string]bool{}
	var ids []string
	for _, n := range names {
		ext := filepath.Ext(n)
		known := false
		for _, e := range extensions {
			if ext == e {
				known = true
			}
		}
		id := strings.TrimSuffix(n, ext)
		if known && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

// MinIORepository reads standards from an S3-compatible bucket
type MinIORepository struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinIORepository(cfg MinIOConfig) (*MinIORepository, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinIORepository{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (r *MinIORepository) objectName(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + "/" + name
}

func (r *MinIORepository) Load(ctx context.Context, id string) (Document, error) {
	if !validID(id) {
		return Document{}, notFound(id)
	}
	for _, ext := range extensions {
		name := id + ext
		obj := r.objectName(name)
		if _, err := r.client.StatObject(ctx, r.bucket, obj, minio.StatObjectOptions{}); err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				continue
			}
			return Document{}, fmt.Errorf("failed to stat %s: %w", obj, err)
		}
		object, err := r.client.GetObject(ctx, r.bucket, obj, minio.GetObjectOptions{})
		if err != nil {
			return Document{}, fmt.Errorf("failed to get %s: %w", obj, err)
		}
		data, err := io.ReadAll(object)
		object.Close()
		if err != nil {
			return Document{}, fmt.Errorf("failed to read %s: %w", obj, err)
		}
		return Document{Filename: name, Data: data}, nil
	}
	return Document{}, notFound(id)
}

func (r *MinIORepository) List(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{Recursive: false}
	if r.prefix != "" {
		opts.Prefix = r.prefix + "/"
	}
	var names []string
	for info := range r.client.ListObjects(ctx, r.bucket, opts) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list standards: %w", info.Err)
		}
		names = append(names, strings.TrimPrefix(info.Key, opts.Prefix))
	}
	return idsFrom(names), nil
}

// Upload stores a standard document in the bucket
func (r *MinIORepository) Upload(ctx context.Context, filename string, data io.Reader, size int64) error {
	if !validID(strings.TrimSuffix(filename, filepath.Ext(filename))) {
		return fmt.Errorf("invalid standard filename %q", filename)
	}
	_, err := r.client.PutObject(ctx, r.bucket, r.objectName(filename), data, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	return nil
}
