package pixiv

import (
	"bytes"
	"encoding/json"
)

// the profile endpoint returns the author's novels as an object keyed by
// id; the key order is meaningful (newest first) and a plain map would
// lose it, so the keys are collected by walking the raw tokens
type orderedIDs []string

func (o *orderedIDs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	// authors with zero novels get [] instead of {}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		if key, ok := keyTok.(string); ok {
			*o = append(*o, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
	}
	return nil
}

type profileAllResponse struct {
	Body struct {
		Novels orderedIDs `json:"novels"`
	} `json:"body"`
}
