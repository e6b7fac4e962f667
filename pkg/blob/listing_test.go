package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func listingXML(names ...string) []byte {
	body := `<?xml version="1.0" encoding="utf-8"?><EnumerationResults><Blobs>`
	for _, name := range names {
		body += "<Blob><Name>" + name + "</Name></Blob>"
	}
	body += `</Blobs><NextMarker /></EnumerationResults>`
	return []byte(body)
}

func TestParseListing(t *testing.T) {
	names := ParseListing(listingXML(
		"facilityA/s1/meta.json",
		"facilityA/s1/transcript.txt",
	))
	assert.Equal(t, []string{"facilityA/s1/meta.json", "facilityA/s1/transcript.txt"}, names)
}

func TestParseListing_MalformedXML(t *testing.T) {
	assert.Empty(t, ParseListing([]byte("<EnumerationResults><Blobs>")))
	assert.Empty(t, ParseListing([]byte("not xml at all")))
	assert.Empty(t, ParseListing(nil))
}

func TestSessionIDs(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		prefix   string
		expected []string
	}{
		{
			name: "duplicates collapse",
			data: listingXML(
				"facilityA/s1/meta.json",
				"facilityA/s2/meta.json",
				"facilityA/s1/meta.json",
			),
			prefix:   "facilityA/",
			expected: []string{"s1", "s2"},
		},
		{
			name: "non-meta entries ignored",
			data: listingXML(
				"facilityA/s1/meta.json",
				"facilityA/s1/transcript.txt",
				"facilityA/s1/audio_1.m4a",
			),
			prefix:   "facilityA",
			expected: []string{"s1"},
		},
		{
			name: "other facilities ignored",
			data: listingXML(
				"facilityA/s1/meta.json",
				"facilityB/s2/meta.json",
			),
			prefix:   "facilityA",
			expected: []string{"s1"},
		},
		{
			name:     "nested or short paths ignored",
			data:     listingXML("facilityA/meta.json", "facilityA/s1/extra/meta.json", "facilityA//meta.json"),
			prefix:   "facilityA",
			expected: nil,
		},
		{
			name:     "malformed body yields empty set",
			data:     []byte("<broken"),
			prefix:   "facilityA",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SessionIDs(tt.data, tt.prefix)
			assert.ElementsMatch(t, tt.expected, got)
		})
	}
}
