package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFaceID(t *testing.T) {
	assert.Equal(t, "123", ExtractFaceID("https://www.watchfacely.com/face/123"))
	assert.Equal(t, "45", ExtractFaceID("/face/45?ref=latest"))
	assert.Equal(t, "", ExtractFaceID("https://www.watchfacely.com/face/abc"))
	assert.Equal(t, "", ExtractFaceID(""))
}

func TestResolveIdentity_FromDetailURL(t *testing.T) {
	base := newTestBase()

	id := base.ResolveIdentity("Ocean", "https://cdn/a.png", "https://www.watchfacely.com/face/123?utm=x")

	assert.Equal(t, "123", id.FaceID)
	assert.Equal(t, "face_123", id.OriginalID)
	assert.Equal(t, "https://www.watchfacely.com/face/123", id.DetailURL)
}

func TestResolveIdentity_FromImageURL(t *testing.T) {
	base := newTestBase()

	id := base.ResolveIdentity("Ocean", "https://assets.watchfacely.com/watchfaces/ocean-blue/987/snapshot.png", "")

	assert.Equal(t, "987", id.FaceID)
	assert.Equal(t, "face_987", id.OriginalID)
	assert.Equal(t, "https://www.watchfacely.com/face/987", id.DetailURL)
}

func TestResolveIdentity_Fallback(t *testing.T) {
	base := newTestBase()

	id := base.ResolveIdentity("Ocean", "https://cdn/a.png", "https://www.watchfacely.com/collections/blue")
	again := base.ResolveIdentity("Ocean", "https://cdn/a.png", "")
	other := base.ResolveIdentity("Ocean", "https://cdn/b.png", "")

	assert.Empty(t, id.FaceID)
	assert.Equal(t, "https://www.watchfacely.com/collections/blue", id.DetailURL)
	assert.Regexp(t, `^watchface_[0-9a-f]{16}$`, id.OriginalID)
	assert.Equal(t, id.OriginalID, again.OriginalID)
	assert.NotEqual(t, id.OriginalID, other.OriginalID)
}
