// Command harvester scrapes mob.co.uk recipes into a CSV store.
//
// Subcommands:
//   - scrape: upsert individual recipe pages by title.
//   - collect: append every recipe card of a listing page in one batch.
//   - reimage: refresh proxied image URLs already in the store.
//   - tag: set a dietary label on rows whose description mentions a keyword.
//
// Configuration comes from --config and RECIPES_* environment variables; see
// internal/config for the available keys.
package main

import "github.com/JakeFAU/recipe-harvester/cmd"

func main() {
	cmd.Execute()
}
