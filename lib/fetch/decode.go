package fetch

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// DecodeError means the response body matched none of the candidate
// character encodings. There is nothing sensible a caller can retry.
type DecodeError struct {
	URL string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fetch: no candidate encoding decodes response from %s", e.URL)
}

// decodeText tries UTF-8 first, then the legacy Japanese encodings the
// upstream site historically served. The first candidate that decodes
// without producing replacement runes wins.
func decodeText(url string, body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}
	decoders := []func([]byte) ([]byte, error){
		japanese.ShiftJIS.NewDecoder().Bytes,
		japanese.EUCJP.NewDecoder().Bytes,
	}
	for _, decode := range decoders {
		out, err := decode(body)
		if err != nil {
			continue
		}
		decoded := string(out)
		if !strings.ContainsRune(decoded, utf8.RuneError) {
			return decoded, nil
		}
	}
	return "", &DecodeError{URL: url}
}
