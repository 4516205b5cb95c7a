package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidPhotoURL       = errors.New("auth: invalid photo url")
	ErrInvalidPhotoExtension = errors.New("auth: photo url must point to a valid image file")
)

// PhotoURL stores a link to a profile picture. Construction validates
// both the URL itself and its file extension.
type PhotoURL struct {
	url *url.URL
}

func NewPhotoURL(raw string) (*PhotoURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhotoURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: missing scheme or host", ErrInvalidPhotoURL)
	}
	if !hasValidImageExtension(u) {
		return nil, ErrInvalidPhotoExtension
	}
	return &PhotoURL{url: u}, nil
}

func (p *PhotoURL) String() string {
	return p.url.String()
}

func (p *PhotoURL) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PhotoURL) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewPhotoURL(raw)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}

func hasValidImageExtension(u *url.URL) bool {
	segments := strings.Split(u.Path, "/")
	filename := segments[len(segments)-1]
	name, ext, ok := cutLast(filename, ".")
	if !ok || name == "" {
		return false
	}
	switch ext {
	case "png", "jpg", "jpeg", "webp":
		return true
	}
	return false
}

func cutLast(s, sep string) (before, after string, found bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}
