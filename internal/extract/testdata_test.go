package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/recipe-harvester/internal/htmldoc"
	"github.com/JakeFAU/recipe-harvester/internal/jsonld"
)

const heroPage = `<html><head>
<meta property="og:image" content="https://files.mob-cdn.co.uk/og.jpg">
<script type="application/ld+json">{"@type":"Recipe","name":"LD Title","description":"LD description","image":"https://files.mob-cdn.co.uk/ld.jpg","recipeCategory":["Dinner","Pescatarian"],"keywords":"quick, Dinner ,salmon","totalTime":"PT45M"}</script>
<script type="application/ld+json">{"@type":"Person","name":"Someone Else","image":"https://files.mob-cdn.co.uk/other.jpg"}</script>
<script type="application/ld+json">{"@type":"Person","name":"Ben Lebus","image":{"url":"https://files.mob-cdn.co.uk/ben-ld.jpg"}}</script>
</head><body>
<div class="RecipeHero relative">
  <h1 class="RecipeHero__heading text-4xl">Salmon Pasta Salad</h1>
  <div class="body-text-sm mt-2"><div class="line-clamp-2 md:line-clamp-5">A bright, punchy salad.</div></div>
  <div class="RecipeHero_meta flex">
    <div>Serves 4</div>
    <div>1 hr 15 mins</div>
  </div>
  <a href="/chefs/ben-lebus"><img src="//files.mob-cdn.co.uk/ben.jpg"><h3>Ben Lebus</h3></a>
  <div class="RecipeHero__mediaContainer"><img src="//files.mob-cdn.co.uk/hero.jpg"></div>
</div>
<div class="RecipeDescription">Secondary text.</div>
</body></html>`

const bareLDPage = `<html><head>
<meta property="og:image" content="https://files.mob-cdn.co.uk/og.jpg">
<script type="application/ld+json">{"@type":"Recipe","name":"LD Title","about":"About text","image":["https://files.mob-cdn.co.uk/ld-1.jpg","https://files.mob-cdn.co.uk/ld-2.jpg"],"suitableForDiet":["https://schema.org/VeganDiet"],"totalTime":"PT1H30M"}</script>
<script type="application/ld+json">{"@type":"Person","name":"Ben Lebus","image":"https://files.mob-cdn.co.uk/ben-ld.jpg"}</script>
</head><body><div class="RecipeHero"><div class="RecipeHero_meta"><div>Easy</div></div></div></body></html>`

const chefPage = `<html><head>
<meta property="og:image" content="https://files.mob-cdn.co.uk/chef-og.jpg">
<script type="application/ld+json">{"@type":"Person","name":"Ben Lebus","image":"https://files.mob-cdn.co.uk/chef-ld.jpg"}</script>
</head><body></body></html>`

func mustPage(t *testing.T, url, html string) Page {
	t.Helper()
	doc, err := htmldoc.ParseString(html)
	require.NoError(t, err)
	return Page{
		URL:     url,
		Doc:     doc,
		Objects: jsonld.Extract(htmldoc.ScriptBlocks(doc), nil),
	}
}
