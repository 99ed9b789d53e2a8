package crawler

import (
	"errors"
	"net/http"
	"time"
)

var (
	// ErrNotProduct marks a page that lacks the fields a product record requires.
	ErrNotProduct = errors.New("not a valid product page")
	// ErrUnexpectedStatus is returned by fetchers for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected http status")
)

// Description groups the optional descriptive sections of a product page.
type Description struct {
	Main       string `json:"main" bson:"main"`
	Features   string `json:"features" bson:"features"`
	Dimensions string `json:"dimensions" bson:"dimensions"`
}

// Product is the unit persisted by the storage sinks, keyed by URL.
type Product struct {
	URL           string      `json:"url" bson:"url"`
	Title         string      `json:"title" bson:"title"`
	CurrentPrice  string      `json:"currentPrice" bson:"currentPrice"`
	OriginalPrice string      `json:"originalPrice" bson:"originalPrice"`
	Description   Description `json:"description" bson:"description"`
}

// Validate reports ErrNotProduct when a required field is empty.
func (p Product) Validate() error {
	switch {
	case p.Title == "":
		return &NotProductError{URL: p.URL, Reason: "missing title"}
	case p.CurrentPrice == "":
		return &NotProductError{URL: p.URL, Reason: "missing current price"}
	default:
		return nil
	}
}

// NotProductError carries the reason a page was rejected. It matches ErrNotProduct.
type NotProductError struct {
	URL    string
	Reason string
}

func (e *NotProductError) Error() string {
	return "skipping " + e.URL + ": " + e.Reason
}

// Is lets errors.Is(err, ErrNotProduct) match.
func (e *NotProductError) Is(target error) bool {
	return target == ErrNotProduct
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
	// Promotable allows a promoting fetcher to re-fetch the page headlessly.
	// Only product page fetches set it.
	Promotable bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// OutcomeKind classifies what happened to a single candidate URL.
type OutcomeKind string

// Outcome kinds recorded per candidate.
const (
	OutcomeStored  OutcomeKind = "stored"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// Outcome is the per-item result of driving one candidate through the pipeline.
type Outcome struct {
	URL     string
	Kind    OutcomeKind
	Product Product
	Reason  string
	Err     error
}

// Stored builds a success outcome.
func Stored(product Product) Outcome {
	return Outcome{URL: product.URL, Kind: OutcomeStored, Product: product}
}

// Skipped builds an outcome for a page judged not to be a product.
func Skipped(url, reason string) Outcome {
	return Outcome{URL: url, Kind: OutcomeSkipped, Reason: reason}
}

// Failed builds an outcome for a fetch, extract or store error.
func Failed(url string, err error) Outcome {
	return Outcome{URL: url, Kind: OutcomeFailed, Err: err}
}

// UpsertEvent is published after a product is written.
type UpsertEvent struct {
	RunID     string    `json:"run_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Price     string    `json:"current_price"`
	Snapshot  string    `json:"snapshot_uri,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
