package models

// Identity is the verified caller extracted from an auth token by the
// middleware. This service never parses credentials beyond that.
type Identity struct {
	ID       string
	Name     string
	ImageURL string
	IsAdmin  bool
}
