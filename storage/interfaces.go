package storage

import "listing-harvester/models"

// ItemWriter receives the harvested collection once, in discovery order.
type ItemWriter interface {
	WriteItems(items []models.ListingItem) error
	Close() error
}

// ListingWriter is the interface any cleaned-listing backend must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}
