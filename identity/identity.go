// Package identity defines the resolved principal shared by the session,
// token, and guard layers.
package identity

// Identity is the authenticated principal for a single request.
//
// UserID is required. Attributes carries provider-specific data such as
// email or roles and is treated as opaque by the pipeline.
type Identity struct {
	UserID     string         `json:"user_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Attr returns the attribute stored under key, or nil.
func (id *Identity) Attr(key string) any {
	if id == nil || id.Attributes == nil {
		return nil
	}
	return id.Attributes[key]
}

// Clone returns a copy whose attribute map can be mutated independently.
func (id *Identity) Clone() *Identity {
	if id == nil {
		return nil
	}
	out := &Identity{UserID: id.UserID}
	if id.Attributes != nil {
		out.Attributes = make(map[string]any, len(id.Attributes))
		for k, v := range id.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}
