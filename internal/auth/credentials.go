package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// credential is the parsed form of an Authorization header: a small
// tagged union produced by a single parse step so scheme dispatch stays
// in one exhaustive switch.
type credential struct {
	kind     credentialKind
	login    string
	password string
	token    string
}

type credentialKind int

const (
	credentialBasic credentialKind = iota
	credentialBearer
)

// parseAuthorizationHeader splits the header into scheme and data on
// the first space and decodes the scheme-specific payload. Unknown
// schemes and malformed payloads fail with typed errors that carry no
// information about account existence.
func parseAuthorizationHeader(header string) (credential, error) {
	scheme, data, ok := strings.Cut(header, " ")
	if !ok {
		return credential{}, ErrBadHeaderSchemeData
	}
	switch scheme {
	case "Basic":
		login, password, err := decodeBasicPayload(data)
		if err != nil {
			return credential{}, err
		}
		return credential{kind: credentialBasic, login: login, password: password}, nil
	case "Bearer":
		return credential{kind: credentialBearer, token: data}, nil
	default:
		return credential{}, ErrUnsupportedScheme
	}
}

func decodeBasicPayload(data string) (login, password string, err error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrBadCredentialEncoding, err)
	}
	if !utf8.Valid(decoded) {
		return "", "", fmt.Errorf("%w: credentials are not valid UTF-8", ErrBadCredentialEncoding)
	}
	login, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", ErrNoBasicColonSplit
	}
	return login, password, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
