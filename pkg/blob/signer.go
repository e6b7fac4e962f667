package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Header is a single canonicalized custom header. Headers are rendered in the
// exact order they are passed; each operation pins its own required set, so
// the PUT/HEAD/GET signing paths cannot drift apart.
type Header struct {
	Name  string
	Value string
}

// Signer builds the canonical string-to-sign for a request and produces the
// SharedKey HMAC-SHA256 signature. It is pure and performs no I/O.
type Signer struct {
	account string
	key     []byte
}

// NewSigner creates a signer for the given storage account. The shared key
// must be valid base64; a malformed key is a configuration error and no
// request may be sent unsigned.
func NewSigner(account, sharedKey string) (*Signer, error) {
	if account == "" {
		return nil, fmt.Errorf("%w: account name is empty", ErrConfiguration)
	}
	if sharedKey == "" {
		return nil, fmt.Errorf("%w: shared key is empty", ErrConfiguration)
	}
	key, err := base64.StdEncoding.DecodeString(sharedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: shared key is not valid base64: %v", ErrConfiguration, err)
	}
	return &Signer{account: account, key: key}, nil
}

// Account returns the storage account name the signer was configured with.
func (s *Signer) Account() string {
	return s.account
}

// StringToSign renders the fixed 14-field newline-joined sequence the service
// verifies. Content length 0 is rendered as an empty field; the date field is
// always empty because the date travels in the x-ms-date custom header.
func (s *Signer) StringToSign(verb string, contentLength int64, contentType string, headers []Header, resource string) string {
	length := ""
	if contentLength > 0 {
		length = strconv.FormatInt(contentLength, 10)
	}

	canonical := make([]string, 0, len(headers))
	for _, h := range headers {
		canonical = append(canonical, h.Name+":"+h.Value)
	}

	fields := []string{
		verb,
		"", // Content-Encoding
		"", // Content-Language
		length,
		"", // Content-MD5
		contentType,
		"", // Date (carried via x-ms-date instead)
		"", // If-Modified-Since
		"", // If-Match
		"", // If-None-Match
		"", // If-Unmodified-Since
		"", // Range
		strings.Join(canonical, "\n"),
		resource,
	}

	return strings.Join(fields, "\n")
}

// Sign computes base64(HMAC-SHA256(stringToSign, key)).
func (s *Signer) Sign(stringToSign string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Authorization returns the full Authorization header value for a request.
func (s *Signer) Authorization(stringToSign string) string {
	return "SharedKey " + s.account + ":" + s.Sign(stringToSign)
}

// BlobResource builds the canonicalized resource for a blob-level operation.
func (s *Signer) BlobResource(container, path string) string {
	return "/" + s.account + "/" + container + "/" + path
}

// ContainerResource builds the canonicalized resource for a container-level
// operation. Query parameters are appended as newline-joined key:value pairs
// sorted by key.
func (s *Signer) ContainerResource(container string, query map[string]string) string {
	resource := "/" + s.account + "/" + container

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		resource += "\n" + k + ":" + query[k]
	}
	return resource
}
