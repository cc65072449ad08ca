package ocr

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// MaxImageBytes caps the decoded image size.
const MaxImageBytes = 8 << 20

// DecodeImage accepts raw base64 or a data URL and returns the bytes and
// their MIME type.
func DecodeImage(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", domain.ErrValidation("image requise")
	}

	var mime string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, "", domain.ErrValidation("image invalide: URL data base64 attendue")
		}
		mime = strings.TrimSuffix(header, ";base64")
		s = payload
	}

	if base64.StdEncoding.DecodedLen(len(s)) > MaxImageBytes+2 {
		return nil, "", domain.ErrValidation(fmt.Sprintf("image trop volumineuse (%d Mo maximum)", MaxImageBytes>>20))
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", domain.ErrValidation("image invalide: base64 attendu")
	}
	if len(data) > MaxImageBytes {
		return nil, "", domain.ErrValidation(fmt.Sprintf("image trop volumineuse (%d Mo maximum)", MaxImageBytes>>20))
	}
	if len(data) == 0 {
		return nil, "", domain.ErrValidation("image requise")
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}
