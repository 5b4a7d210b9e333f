package mvchttp

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/vitalvas/lvc/mvc"
)

// DefaultMaxMemory is the part of a multipart body kept in memory; the
// rest of the uploaded files is stored on disk.
const DefaultMaxMemory = 32 << 20

// NewRequest builds an mvc.Request from r. Routers and controllers see the
// same bundle; dispatch errors carry the request URI as additional info.
func NewRequest(r *http.Request, maxMemory int64) (*mvc.Request, error) {
	bundle, err := BundleFromRequest(r, maxMemory)
	if err != nil {
		return nil, err
	}

	req := mvc.NewRequest(bundle)
	req.ErrorInfo = func() string {
		uri := r.RequestURI
		if uri == "" {
			uri = r.URL.RequestURI()
		}
		return "Request URL was " + uri
	}

	return req, nil
}

// BundleFromRequest collects the query values under "get" and the form
// values and uploaded files under "post". Keys with brackets are nested:
// data[user][name]=ann becomes post["data"]["user"]["name"] and tags[]=a
// appends to a list. The "url" query value defaults to the request path so
// path based routers work without a rewrite layer.
func BundleFromRequest(r *http.Request, maxMemory int64) (mvc.Bundle, error) {
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}

	get := nestValues(r.URL.Query())
	if _, ok := get[mvc.BundleURL]; !ok {
		get[mvc.BundleURL] = r.URL.Path
	}

	post, err := parseBody(r, maxMemory)
	if err != nil {
		return nil, err
	}

	return mvc.Bundle{
		mvc.BundleGet:  get,
		mvc.BundlePost: post,
	}, nil
}

func parseBody(r *http.Request, maxMemory int64) (map[string]any, error) {
	post := make(map[string]any)

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return post, nil
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}

	for k, v := range nestValues(r.PostForm) {
		post[k] = v
	}

	if r.MultipartForm != nil {
		names := make([]string, 0, len(r.MultipartForm.File))
		for name := range r.MultipartForm.File {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			for _, fh := range r.MultipartForm.File[name] {
				insert(post, splitKey(name), fh)
			}
		}
	}

	return post, nil
}

// FileFromBundle returns the uploaded file stored under a post key path,
// for example FileFromBundle(b, "data", "user", "avatar").
func FileFromBundle(b mvc.Bundle, path ...string) (*multipart.FileHeader, error) {
	if len(path) == 0 {
		return nil, errors.New("empty file path")
	}

	var cur any = b.Post()
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("no file at %s", strings.Join(path, "."))
		}
		cur = m[key]
	}

	switch v := cur.(type) {
	case *multipart.FileHeader:
		return v, nil
	case []any:
		if len(v) > 0 {
			if fh, ok := v[0].(*multipart.FileHeader); ok {
				return fh, nil
			}
		}
	}
	return nil, fmt.Errorf("no file at %s", strings.Join(path, "."))
}

// nestValues converts url.Values into nested maps. Repeated plain keys keep
// the last value.
func nestValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		parts := splitKey(k)
		for _, v := range values[k] {
			insert(out, parts, v)
		}
	}
	return out
}

// splitKey splits "a[b][c]" into ["a", "b", "c"]. Keys that are not well
// formed are used whole.
func splitKey(key string) []string {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}

	parts := []string{key[:i]}
	for rest := key[i:]; rest != ""; {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		parts = append(parts, rest[1:end])
		rest = rest[end+1:]
	}
	return parts
}

func insert(m map[string]any, parts []string, value any) {
	key := parts[0]

	switch {
	case len(parts) == 1:
		m[key] = value
	case len(parts) == 2 && parts[1] == "":
		list, _ := m[key].([]any)
		m[key] = append(list, value)
	default:
		child, ok := m[key].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[key] = child
		}
		insert(child, parts[1:], value)
	}
}
