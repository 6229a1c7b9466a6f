package extract

// Selectors holds the CSS selectors for the recipe page template family.
type Selectors struct {
	Hero                 string `mapstructure:"hero"`
	HeroHeading          string `mapstructure:"hero_heading"`
	HeroDescription      string `mapstructure:"hero_description"`
	HeroDescriptionInner string `mapstructure:"hero_description_inner"`
	HeroMeta             string `mapstructure:"hero_meta"`
	HeroMedia            string `mapstructure:"hero_media"`
	ChefLink             string `mapstructure:"chef_link"`
	ChefLinkName         string `mapstructure:"chef_link_name"`
	SecondaryDescription string `mapstructure:"secondary_description"`
	OGImage              string `mapstructure:"og_image"`
	Card                 string `mapstructure:"card"`
	CardRelaxed          string `mapstructure:"card_relaxed"`
	CardLink             string `mapstructure:"card_link"`
	CardTitle            string `mapstructure:"card_title"`
	CardTime             string `mapstructure:"card_time"`
	CardChefName         string `mapstructure:"card_chef_name"`
}

// DefaultSelectors matches the current recipe, chef and collection templates.
func DefaultSelectors() Selectors {
	return Selectors{
		Hero:                 "div.RecipeHero",
		HeroHeading:          `h1[class*="RecipeHero__heading"]`,
		HeroDescription:      `div[class*="body-text-sm"]`,
		HeroDescriptionInner: `div[class*="line-clamp-2"], div[class*="md:line-clamp-5"]`,
		HeroMeta:             `div[class*="RecipeHero_meta"]`,
		HeroMedia:            `div[class*="RecipeHero__mediaContainer"]`,
		ChefLink:             `a[href^="/chefs/"]`,
		ChefLinkName:         "h3",
		SecondaryDescription: `div[class*="RecipeDescription"]`,
		OGImage:              `meta[property="og:image"]`,
		Card:                 `div[class*="overflow-hidden"][class*="rounded-2xl"][class*="bg-white"]`,
		CardRelaxed:          `div[class*="overflow-hidden"][class*="rounded-2xl"]`,
		CardLink:             `a[href^="/recipes/"]`,
		CardTitle:            `h3[class*="font-body"]`,
		CardTime:             `div[class*="text-zinc-500"]`,
		CardChefName:         `div[class*="whitespace-nowrap"]`,
	}
}

// WithDefaults fills every empty selector from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&s.Hero, d.Hero)
	fill(&s.HeroHeading, d.HeroHeading)
	fill(&s.HeroDescription, d.HeroDescription)
	fill(&s.HeroDescriptionInner, d.HeroDescriptionInner)
	fill(&s.HeroMeta, d.HeroMeta)
	fill(&s.HeroMedia, d.HeroMedia)
	fill(&s.ChefLink, d.ChefLink)
	fill(&s.ChefLinkName, d.ChefLinkName)
	fill(&s.SecondaryDescription, d.SecondaryDescription)
	fill(&s.OGImage, d.OGImage)
	fill(&s.Card, d.Card)
	fill(&s.CardRelaxed, d.CardRelaxed)
	fill(&s.CardLink, d.CardLink)
	fill(&s.CardTitle, d.CardTitle)
	fill(&s.CardTime, d.CardTime)
	fill(&s.CardChefName, d.CardChefName)
	return s
}
