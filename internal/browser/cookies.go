package browser

import (
	"encoding/json"
	"fmt"
)

// Cookie is the canonical cookie record injected into the browser session.
// Session exports arrive either as a {"url": ..., "cookies": [...]} envelope
// (the J2Team extension format) or as a bare list of cookie records; both are
// resolved into this single shape before use.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	Expires  float64 `json:"expirationDate"` // unix seconds, 0 = session cookie
}

// cookieEnvelope matches the J2Team export wrapper.
type cookieEnvelope struct {
	Cookies []json.RawMessage `json:"cookies"`
}

// ParseCookieExport parses a session-cookie export into canonical cookie
// records. Records missing a name or value are counted as skipped rather than
// failing the whole import. An error is returned only when the export is not
// parseable JSON in either accepted shape.
func ParseCookieExport(raw string) (cookies []Cookie, skipped int, err error) {
	var records []json.RawMessage

	var envelope cookieEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil && envelope.Cookies != nil {
		records = envelope.Cookies
	} else if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, 0, fmt.Errorf("session export is neither a cookie envelope nor a cookie list: %w", err)
	}

	for _, record := range records {
		var c Cookie
		if err := json.Unmarshal(record, &c); err != nil {
			skipped++
			continue
		}
		if c.Name == "" || c.Value == "" {
			skipped++
			continue
		}
		if c.Path == "" {
			c.Path = "/"
		}
		cookies = append(cookies, c)
	}

	return cookies, skipped, nil
}
