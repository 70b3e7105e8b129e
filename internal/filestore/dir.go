package filestore

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/koustreak/dsneditor/internal/errs"
)

// DirStore serves a local directory as a Store: each sub-directory of root
// is a bucket, each file below it an object.
type DirStore struct {
	root string
}

// NewDirStore returns a Store rooted at root. The directory must exist.
func NewDirStore(root string) (*DirStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, mapFSError(err, "template directory not found")
	}
	if !info.IsDir() {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s is not a directory", root)
	}
	return &DirStore{root: root}, nil
}

// --- filestore.Store implementation ---

func (d *DirStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "ping canceled", err)
	}
	_, err := os.Stat(d.root)
	return mapFSError(err, "ping failed")
}

func (d *DirStore) Close() error { return nil }

func (d *DirStore) ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error) {
	base, err := d.bucketDir(bucket)
	if err != nil {
		return nil, err
	}

	var out []ObjectInfo
	dirs := map[string]bool{}
	err = filepath.WalkDir(base, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, opts.Prefix) {
			return nil
		}

		if !opts.Recursive {
			if i := strings.IndexByte(key[len(opts.Prefix):], '/'); i >= 0 {
				dir := key[:len(opts.Prefix)+i+1]
				if !dirs[dir] {
					dirs[dir] = true
					out = append(out, ObjectInfo{Key: dir, Size: -1, IsDir: true})
				}
				return nil
			}
		}

		info, err := e.Info()
		if err != nil {
			return err
		}
		out = append(out, objectInfo(key, info))
		return nil
	})
	if err != nil {
		return nil, mapFSError(err, "failed to list objects")
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (d *DirStore) GetObject(ctx context.Context, bucket, key string) (Object, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "get canceled", err)
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, mapFSError(err, "failed to get object")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, mapFSError(err, "failed to stat object after get")
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, errs.Newf(errs.ErrKindNotFound, "object %q not found", key)
	}
	oi := objectInfo(key, info)
	return NewObject(f, &oi), nil
}

func (d *DirStore) StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, mapFSError(err, "failed to stat object")
	}
	if info.IsDir() {
		return nil, errs.Newf(errs.ErrKindNotFound, "object %q not found", key)
	}
	oi := objectInfo(key, info)
	return &oi, nil
}

// --- helpers ---

func (d *DirStore) bucketDir(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid bucket name %q", bucket)
	}
	return filepath.Join(d.root, bucket), nil
}

// objectPath resolves key inside bucket, refusing keys that escape it.
func (d *DirStore) objectPath(bucket, key string) (string, error) {
	base, err := d.bucketDir(bucket)
	if err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+strings.TrimPrefix(key, "/") {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid object key %q", key)
	}
	return filepath.Join(base, filepath.FromSlash(clean[1:])), nil
}

func objectInfo(key string, info fs.FileInfo) ObjectInfo {
	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		ct = "text/plain"
	}
	return ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		ContentType:  ct,
		LastModified: info.ModTime(),
	}
}

func mapFSError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	case errors.Is(err, fs.ErrNotExist):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case errors.Is(err, fs.ErrPermission):
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	default:
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}
}

