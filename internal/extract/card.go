package extract

import (
	"net/url"
	"strings"

	"github.com/JakeFAU/recipe-harvester/internal/htmldoc"
)

// Card is the condensed summary of one recipe on a listing page.
type Card struct {
	URL      string
	Title    string
	Time     string
	ChefName string
	ChefPath string
	Image    string
}

// ParseCards enumerates the recipe cards of a listing page. When the strict card selector
// finds nothing the relaxed one is tried. Cards without a recipe link are counted in
// skipped and left out.
func ParseCards(doc htmldoc.Node, sel Selectors, baseOrigin string) (cards []Card, skipped int) {
	if doc == nil {
		return nil, 0
	}
	sel = sel.WithDefaults()
	nodes := doc.FindAll(sel.Card)
	if len(nodes) == 0 {
		nodes = doc.FindAll(sel.CardRelaxed)
	}
	for _, n := range nodes {
		href := n.Find(sel.CardLink).Attr("href")
		if href == "" {
			skipped++
			continue
		}
		chef := n.Find(sel.ChefLink)
		img := n.Find("img")
		image := img.Attr("src")
		if image == "" {
			image = img.Attr("data-src")
		}
		cards = append(cards, Card{
			URL:      ResolveURL(baseOrigin, href),
			Title:    n.Find(sel.CardTitle).Text(),
			Time:     CleanTime(n.Find(sel.CardTime).Text()),
			ChefName: chef.Find(sel.CardChefName).Text(),
			ChefPath: chef.Attr("href"),
			Image:    image,
		})
	}
	return cards, skipped
}

// FillFromCard fills the fields still empty in fs from a listing card.
func FillFromCard(fs *FieldSet, card Card) {
	fs.Fill(FieldTitle, card.Title, "card-title")
	fs.Fill(FieldTime, card.Time, "card-time")
	fs.Fill(FieldChefName, card.ChefName, "card-chef")
	fs.Fill(FieldImage, card.Image, "card-image")
	if fs.ChefPath == "" {
		fs.ChefPath = card.ChefPath
	}
}

// ResolveURL joins a site-relative href against base. Absolute hrefs are returned as is
// and scheme-relative ones get https.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
