// Package extract pulls product attributes out of product detail pages.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

// Description row labels, matched exactly after trimming.
const (
	LabelDescription = "Description"
	LabelFeatures    = "Product Features"
	LabelDimensions  = "Product Dimensions"
)

// Selectors holds the CSS queries used to locate product fields.
type Selectors struct {
	Title         string `mapstructure:"title_selector"`
	CurrentPrice  string `mapstructure:"current_price_selector"`
	OriginalPrice string `mapstructure:"original_price_selector"`
	Detail        string `mapstructure:"detail_selector"`
	Value         string `mapstructure:"value_selector"`
}

// DefaultSelectors matches the storefront's Magento-style product markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:         "h1.page-title span.base",
		CurrentPrice:  ".special-price .price",
		OriginalPrice: ".old-price .price",
		Detail:        ".custom_product_attr_detail",
		Value:         ".custom_product_attr_value",
	}
}

// Extractor implements crawler.Extractor with goquery.
type Extractor struct {
	sel Selectors
}

// New builds an Extractor; empty selectors fall back to DefaultSelectors.
func New(sel Selectors) *Extractor {
	def := DefaultSelectors()
	if sel.Title == "" {
		sel.Title = def.Title
	}
	if sel.CurrentPrice == "" {
		sel.CurrentPrice = def.CurrentPrice
	}
	if sel.OriginalPrice == "" {
		sel.OriginalPrice = def.OriginalPrice
	}
	if sel.Detail == "" {
		sel.Detail = def.Detail
	}
	if sel.Value == "" {
		sel.Value = def.Value
	}
	return &Extractor{sel: sel}
}

// Extract parses body and returns the product found on pageURL. Pages without a
// title or current price return an error matching crawler.ErrNotProduct.
func (e *Extractor) Extract(pageURL string, body []byte) (crawler.Product, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.Product{}, fmt.Errorf("parse html: %w", err)
	}

	details := e.descriptionRows(doc)
	product := crawler.Product{
		URL:           pageURL,
		Title:         text(doc.Find(e.sel.Title)),
		CurrentPrice:  text(doc.Find(e.sel.CurrentPrice).First()),
		OriginalPrice: text(doc.Find(e.sel.OriginalPrice).First()),
		Description: crawler.Description{
			Main:       details[LabelDescription],
			Features:   details[LabelFeatures],
			Dimensions: details[LabelDimensions],
		},
	}
	if err := product.Validate(); err != nil {
		return crawler.Product{}, err
	}
	return product, nil
}

// descriptionRows maps each row label to its value text. A row's label is the
// row text without its value element. The first row wins for repeated labels.
func (e *Extractor) descriptionRows(doc *goquery.Document) map[string]string {
	rows := make(map[string]string, 3)
	doc.Find(e.sel.Detail).Each(func(_ int, row *goquery.Selection) {
		labelNode := row.Clone()
		labelNode.Find(e.sel.Value).Remove()
		label := text(labelNode)
		if label == "" {
			return
		}
		if _, seen := rows[label]; seen {
			return
		}
		rows[label] = text(row.Find(e.sel.Value))
	})
	return rows
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
