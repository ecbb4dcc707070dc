package goGuard

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
)

// bearerToken extracts the credential from an Authorization header. The
// scheme is matched case-insensitively.
func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// formField reads name from a url-encoded or multipart body, reading at most
// limit bytes. Parsed values are cached on r, so later handlers still see them.
func formField(r *http.Request, name string, limit int64) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	switch mediaType(r) {
	case "application/x-www-form-urlencoded":
		if r.PostForm == nil {
			r.Body = http.MaxBytesReader(nil, r.Body, limit)
			_ = r.ParseForm()
		}
	case "multipart/form-data":
		if r.MultipartForm == nil {
			_ = r.ParseMultipartForm(limit)
		}
	default:
		return ""
	}
	return r.PostForm.Get(name)
}

// jsonField reads a top-level string field from a JSON body. The body is
// replaced with an equivalent reader so downstream handlers can decode it
// again. Bodies over limit are left unparsed.
func jsonField(r *http.Request, name string, limit int64) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	mt := mediaType(r)
	if mt != "application/json" && !strings.HasSuffix(mt, "+json") {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
	if err != nil || int64(len(buf)) > limit {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(buf, &fields); err != nil {
		return ""
	}
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

type replayBody struct {
	io.Reader
	io.Closer
}
