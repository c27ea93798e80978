package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/jwfoods/internal/common"
)

// CodePayloadTooLarge is returned for bodies over the limit.
const CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// BodyLimit caps JSON request bodies. Storefront payloads (cart lines, quote inputs,
// registration forms) are tiny, so anything larger is rejected before a handler decodes it.
type BodyLimit struct {
	Max int64
}

// Middleware answers 413 for declared or actual bodies above Max and hands handlers a fully
// buffered body otherwise. A non-positive Max disables the check.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > b.Max {
			writeTooLarge(w)
			return
		}
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		buf, err := io.ReadAll(http.MaxBytesReader(w, r.Body, b.Max))
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeTooLarge(w)
			return
		case err != nil:
			common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func writeTooLarge(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request entity too large", nil)
}
