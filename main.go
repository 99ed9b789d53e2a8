// Command product-crawler crawls a shop's sitemap and stores its product pages.
package main

import "github.com/JakeFAU/product-sitemap-crawler/cmd"

func main() {
	cmd.Execute()
}
