package handlers

import (
	"github.com/ciphera-net/website/internal/catalog"
	"github.com/ciphera-net/website/internal/cms"
)

// HomeData is the payload rendered below the hero.
type HomeData struct {
	Products        []catalog.Product
	Differentiators []catalog.Highlight
	LatestPosts     []cms.Post
}

// BuildHomeData picks the home page sections. At most three posts are shown.
func BuildHomeData(posts []cms.Post) HomeData {
	if len(posts) > 3 {
		posts = posts[:3]
	}
	return HomeData{
		Products:        catalog.Products(),
		Differentiators: catalog.Differentiators(),
		LatestPosts:     posts,
	}
}
