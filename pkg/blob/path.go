package blob

import "fmt"

// Fixed artifact names under the {facilityId}/{sessionId}/ prefix
const (
	MetaBlobName       = "meta.json"
	TranscriptBlobName = "transcript.txt"
)

// JoinPath builds the logical three-segment blob key used for both write
// destinations and listing prefixes.
func JoinPath(facilityID, sessionID, artifact string) string {
	return facilityID + "/" + sessionID + "/" + artifact
}

// AudioBlobName returns the sequential name for the nth audio artifact of a
// session, starting at 1.
func AudioBlobName(n int) string {
	return fmt.Sprintf("audio_%d.m4a", n)
}
