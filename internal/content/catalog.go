// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package content holds the concept catalogue served to signed-in users.
package content

// Concept is one entry of the catalogue.
type Concept struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl"`
}

// Catalog is a fixed, read-only list of concepts.
type Catalog struct {
	concepts []Concept
}

// NewCatalog returns a catalogue over a copy of concepts.
func NewCatalog(concepts []Concept) *Catalog {
	return &Catalog{concepts: append([]Concept(nil), concepts...)}
}

// DefaultCatalog returns the built-in concepts.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Concept{
		{ID: 1, Title: "Recursion", Description: "Basics of recursion", VideoURL: "#"},
		{ID: 2, Title: "Graph Theory", Description: "DFS, BFS", VideoURL: "#"},
		{ID: 3, Title: "Dynamic Programming", Description: "Memoization and Tabulation", VideoURL: "#"},
	})
}

// List returns a copy of the concepts in catalogue order.
func (c *Catalog) List() []Concept {
	return append([]Concept(nil), c.concepts...)
}
