package adapters

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestPaginationDiscoverer_Discover(t *testing.T) {
	doc := newTestDoc(t, testListingURL, `<body>
		<a href="/latest?page=2">2</a>
		<a href="/latest?page=3">3</a>
		<a href="/latest?page=2">2 again</a>
		<div class="pagination"><a href="/latest?page=4">4</a><a href="#">...</a></div>
		<a href="javascript:void(0)">Next</a>
		<a href="/latest/older">Load more</a>
		<a href="https://other.example.com/page/9">elsewhere</a>
		<a href="/latest#page">self</a>
		<a href="/about">About</a>
	</body>`)
	discoverer := NewPaginationDiscoverer(testSiteURL, logrus.New())

	links := discoverer.Discover(doc)

	assert.Equal(t, []string{
		"https://www.watchfacely.com/latest?page=2",
		"https://www.watchfacely.com/latest?page=3",
		"https://www.watchfacely.com/latest?page=4",
		"https://www.watchfacely.com/latest/older",
	}, links)
}

func TestPaginationDiscoverer_CapsResults(t *testing.T) {
	var b strings.Builder
	b.WriteString("<body>")
	for i := 2; i <= 10; i++ {
		fmt.Fprintf(&b, `<a href="/latest?page=%d">%d</a>`, i, i)
	}
	b.WriteString("</body>")
	discoverer := NewPaginationDiscoverer(testSiteURL, logrus.New())

	links := discoverer.Discover(newTestDoc(t, testListingURL, b.String()))

	assert.Len(t, links, MaxPaginationLinks)
	assert.Equal(t, "https://www.watchfacely.com/latest?page=2", links[0])
}

func TestPaginationDiscoverer_NextLinkCaseInsensitive(t *testing.T) {
	doc := newTestDoc(t, testListingURL, `<body><a class="btn" href="/latest/2">NEXT &raquo;</a></body>`)
	discoverer := NewPaginationDiscoverer(testSiteURL, logrus.New())

	links := discoverer.Discover(doc)

	assert.Equal(t, []string{"https://www.watchfacely.com/latest/2"}, links)
}

func TestPaginationDiscoverer_NoLinks(t *testing.T) {
	discoverer := NewPaginationDiscoverer(testSiteURL, logrus.New())

	links := discoverer.Discover(newTestDoc(t, testListingURL, `<body><a href="/about">About</a></body>`))

	assert.NotNil(t, links)
	assert.Empty(t, links)
}
