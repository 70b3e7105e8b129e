package filestore

import (
	"bufio"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/errs"
)

// TemplateExt is the file extension of a DSN template object.
const TemplateExt = ".dsn"

// maxTemplateSize bounds how much of an object is read as a template.
const maxTemplateSize = 64 << 10

// Template is a named connection string stored as an object.
type Template struct {
	Name         string    `json:"name" yaml:"name"`
	Key          string    `json:"key" yaml:"key"`
	Size         int64     `json:"size" yaml:"size"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
}

// Templates reads DSN templates from one bucket prefix of a Store.
//
// A template object holds a connection string. It may be spread over
// several lines, one `keyword=value` per line; blank lines and lines
// starting with `#` are ignored.
type Templates struct {
	store  Store
	bucket string
	prefix string
}

// NewTemplates returns the templates found under prefix in bucket.
func NewTemplates(store Store, bucket, prefix string) *Templates {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Templates{store: store, bucket: bucket, prefix: prefix}
}

// List returns every template below the prefix, nested folders included.
func (t *Templates) List(ctx context.Context) ([]Template, error) {
	objs, err := t.store.ListObjects(ctx, t.bucket, ListOptions{Prefix: t.prefix, Recursive: true})
	if err != nil {
		return nil, err
	}

	var out []Template
	for _, o := range objs {
		if o.IsDir || path.Ext(o.Key) != TemplateExt {
			continue
		}
		out = append(out, Template{
			Name:         t.name(o.Key),
			Key:          o.Key,
			Size:         o.Size,
			LastModified: o.LastModified,
		})
	}
	return out, nil
}

// Load returns the connection string of the template called name.
func (t *Templates) Load(ctx context.Context, name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), TemplateExt)
	if name == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "template name is empty")
	}

	obj, err := t.store.GetObject(ctx, t.bucket, t.prefix+name+TemplateExt)
	if err != nil {
		if errs.IsNotFound(err) {
			return "", errs.Wrap(errs.ErrKindNotFound, "template \""+name+"\" not found", err)
		}
		return "", err
	}
	defer obj.Close()

	return ReadTemplate(io.LimitReader(obj, maxTemplateSize))
}

// ReadTemplate turns template text into a single-line connection string and
// checks that it parses.
func ReadTemplate(r io.Reader) (string, error) {
	var parts []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts = append(parts, strings.TrimSuffix(line, ";"))
	}
	if err := sc.Err(); err != nil {
		return "", errs.Wrap(errs.ErrKindQueryFailed, "failed to read template", err)
	}

	joined := strings.Join(parts, ";")
	attrs, err := connstr.Parse(joined)
	if err != nil {
		return "", err
	}
	return connstr.Write(attrs.Pairs()), nil
}

func (t *Templates) name(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, t.prefix), TemplateExt)
}
