package blob

import (
	"encoding/xml"
	"strings"
)

// enumerationResults mirrors the container listing response body
type enumerationResults struct {
	XMLName xml.Name `xml:"EnumerationResults"`
	Blobs   struct {
		Blob []struct {
			Name string `xml:"Name"`
		} `xml:"Blob"`
	} `xml:"Blobs"`
}

// ParseListing extracts the blob names from a raw XML container listing.
// Malformed XML yields an empty result rather than an error; the listing is
// advisory and feeds manual recovery tooling, not the primary sync path.
func ParseListing(data []byte) []string {
	var results enumerationResults
	if err := xml.Unmarshal(data, &results); err != nil {
		return nil
	}

	names := make([]string, 0, len(results.Blobs.Blob))
	for _, b := range results.Blobs.Blob {
		if b.Name != "" {
			names = append(names, b.Name)
		}
	}
	return names
}

// SessionIDs extracts the unique session ids from a raw XML container
// listing, matching entries of the shape "{prefix}/{sessionId}/meta.json".
// Duplicates collapse; the result order is not significant. A trailing slash
// on the prefix is tolerated.
func SessionIDs(data []byte, prefix string) []string {
	prefix = strings.TrimSuffix(prefix, "/")

	seen := make(map[string]bool)
	var ids []string
	for _, name := range ParseListing(data) {
		rest, ok := strings.CutPrefix(name, prefix+"/")
		if !ok {
			continue
		}
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != MetaBlobName {
			continue
		}
		if !seen[parts[0]] {
			seen[parts[0]] = true
			ids = append(ids, parts[0])
		}
	}
	return ids
}
