package adapters

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var (
	detailFaceIDPattern = regexp.MustCompile(`/face/(\d+)`)
	imageFaceIDPattern  = regexp.MustCompile(`watchfaces/[^/]+/(\d+)`)
)

// Identity is the stable-ish identifier derived for an extracted item
type Identity struct {
	FaceID     string
	OriginalID string
	DetailURL  string
}

// ExtractFaceID returns the numeric id of a /face/<digits> URL, or "".
func ExtractFaceID(u string) string {
	if m := detailFaceIDPattern.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// extractImageFaceID returns the id embedded in an asset path such as
// watchfaces/<slug>/<digits>/snapshot.png.
func extractImageFaceID(u string) string {
	if m := imageFaceIDPattern.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// FallbackOriginalID derives a deterministic key from the dedup pair
func FallbackOriginalID(name, imageURL string) string {
	sum := sha256.Sum256([]byte(name + "\x00" + imageURL))
	return "watchface_" + hex.EncodeToString(sum[:8])
}

// ResolveIdentity derives the face id from the detail URL or, failing that,
// from the image URL. With a face id the detail URL becomes the canonical
// <site>/face/<id>; without one the original id is a content hash.
func (b *BaseAdapter) ResolveIdentity(name, imageURL, detailURL string) Identity {
	faceID := ExtractFaceID(detailURL)
	if faceID == "" {
		faceID = extractImageFaceID(imageURL)
	}
	if faceID == "" {
		return Identity{
			OriginalID: FallbackOriginalID(name, imageURL),
			DetailURL:  detailURL,
		}
	}
	return Identity{
		FaceID:     faceID,
		OriginalID: "face_" + faceID,
		DetailURL:  b.siteURL + "/face/" + faceID,
	}
}
