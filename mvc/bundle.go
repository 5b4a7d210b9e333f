package mvc

// Bundle keys used by the platform request adapters.
const (
	BundleGet  = "get"
	BundlePost = "post"
	BundleData = "data"
	BundleURL  = "url"
)

// Bundle is the raw input of one request: query values under "get", form
// values and uploaded files under "post". It is built once per request and
// shared read-only by routers and controllers.
type Bundle map[string]any

// Get returns the query values.
func (b Bundle) Get() map[string]any {
	return submap(b[BundleGet])
}

// Post returns the form values and uploaded files.
func (b Bundle) Post() map[string]any {
	return submap(b[BundlePost])
}

// PostData returns the nested form data submitted under the "data" key
// (fields named like data[user][name]).
func (b Bundle) PostData() map[string]any {
	return submap(b.Post()[BundleData])
}

// URL returns the rewritten request path used by path based routers.
func (b Bundle) URL() (string, bool) {
	v, ok := b.Get()[BundleURL]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Decode decodes the value stored under key into dst using the same rules
// as Params.Bind.
func (b Bundle) Decode(key string, dst any) error {
	return decodeInto(b[key], dst)
}

func submap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
