package models

import "time"

// Property is a single listing card as returned by the marketplace API.
type Property struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	DealType     string    `json:"dealType"`
	PropertyType string    `json:"propertyType"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	Area         *float64  `json:"area,omitempty"`
	Bedrooms     *int      `json:"bedrooms,omitempty"`
	Bathrooms    *int      `json:"bathrooms,omitempty"`
	City         string    `json:"city"`
	Address      string    `json:"address"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Pagination is the server-reported paging metadata of a search.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// SearchResult is the body of GET /properties.
type SearchResult struct {
	Properties []Property `json:"properties"`
	Pagination Pagination `json:"pagination"`
}
