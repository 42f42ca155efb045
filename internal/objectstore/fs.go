package objectstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"scriptflow/internal/config"
	"scriptflow/internal/services"
)

// FS is a filesystem-backed Store rooted at a single directory. Presigned
// URLs carry an HMAC-SHA256 signature over key and expiry so the monitor API
// can validate uploads without shared session state.
type FS struct {
	root       string
	secret     []byte
	presignURL string
	now        func() time.Time
}

// NewFS builds a filesystem store from config.
func NewFS(cfg *config.Config) (*FS, error) {
	if cfg.Storage.RootDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "new", "storage root_dir is required", nil)
	}
	if err := os.MkdirAll(cfg.Storage.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure storage root: %w", err)
	}
	return &FS{
		root:       cfg.Storage.RootDir,
		secret:     []byte(cfg.Storage.PresignSecret),
		presignURL: strings.TrimRight(cfg.Storage.PresignBaseURL, "/"),
		now:        time.Now,
	}, nil
}

// resolve maps key to a path under root, rejecting traversal outside it.
func (f *FS) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", services.Wrap(services.ErrValidation, "objectstore", "resolve", "empty object key", nil)
	}
	return filepath.Join(f.root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

func (f *FS) Put(ctx context.Context, key string, reader io.Reader) error {
	target, err := f.resolve(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return services.Wrap(services.ErrUploadFailed, "objectstore", "put", "create parent directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return services.Wrap(services.ErrUploadFailed, "objectstore", "put", "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return services.Wrapf(services.ErrUploadFailed, "objectstore", "put", err, "write object %q", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return services.Wrapf(services.ErrUploadFailed, "objectstore", "put", err, "flush object %q", key)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return services.Wrapf(services.ErrUploadFailed, "objectstore", "put", err, "publish object %q", key)
	}
	return nil
}

func (f *FS) PutBytes(ctx context.Context, key string, data []byte) error {
	return f.Put(ctx, key, strings.NewReader(string(data)))
}

func (f *FS) Get(ctx context.Context, key string, localPath string) error {
	reader, err := f.Open(ctx, key)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return services.Wrap(services.ErrDownloadFailed, "objectstore", "get", "create local directory", err)
	}
	out, err := os.Create(localPath)
	if err != nil {
		return services.Wrapf(services.ErrDownloadFailed, "objectstore", "get", err, "create %q", localPath)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return services.Wrapf(services.ErrDownloadFailed, "objectstore", "get", err, "download object %q", key)
	}
	return out.Close()
}

func (f *FS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := f.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if os.IsNotExist(err) {
		return nil, services.Wrapf(services.ErrNotFound, "objectstore", "open", nil, "object %q", key)
	}
	if err != nil {
		return nil, services.Wrapf(services.ErrDownloadFailed, "objectstore", "open", err, "open object %q", key)
	}
	return file, nil
}

func (f *FS) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	target, err := f.resolve(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return ObjectInfo{}, services.Wrapf(services.ErrNotFound, "objectstore", "stat", nil, "object %q", key)
	}
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: path.Clean(key), Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (f *FS) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var objects []ObjectInfo
	err := filepath.WalkDir(f.root, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		objects = append(objects, ObjectInfo{Key: key, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (f *FS) PresignPut(key, contentType string, ttl time.Duration) (string, error) {
	if len(f.secret) == 0 {
		return "", services.Wrap(services.ErrConfiguration, "objectstore", "presign", "presign_secret is not configured", nil)
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", services.Wrap(services.ErrValidation, "objectstore", "presign", "empty object key", nil)
	}
	key = strings.TrimPrefix(cleaned, "/")
	if ttl <= 0 {
		ttl = time.Hour
	}
	expires := f.now().Add(ttl).Unix()

	values := url.Values{}
	values.Set("key", key)
	if contentType != "" {
		values.Set("content_type", contentType)
	}
	values.Set("expires", strconv.FormatInt(expires, 10))
	values.Set("signature", f.sign(key, contentType, expires))

	base := f.presignURL
	if base == "" {
		base = "/objects/upload"
	}
	return base + "?" + values.Encode(), nil
}

// VerifyPresign checks a presigned upload's signature and expiry. The content
// type must match the one the URL was signed for.
func (f *FS) VerifyPresign(key, contentType string, expires int64, signature string) error {
	if f.now().Unix() > expires {
		return services.Wrap(services.ErrValidation, "objectstore", "presign", "upload url expired", nil)
	}
	expected := f.sign(key, contentType, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return services.Wrap(services.ErrValidation, "objectstore", "presign", "signature mismatch", nil)
	}
	return nil
}

func (f *FS) sign(key, contentType string, expires int64) string {
	mac := hmac.New(sha256.New, f.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", key, contentType, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
