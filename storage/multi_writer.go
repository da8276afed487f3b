package storage

import (
	"errors"
	"sync"

	"listing-harvester/models"
	"listing-harvester/utils"
)

// MultiWriter fans one collection out to several writers concurrently.
type MultiWriter struct {
	writers []ItemWriter
}

// NewMultiWriter returns a writer over ws. Nil writers are ignored.
func NewMultiWriter(ws ...ItemWriter) *MultiWriter {
	m := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
	return m
}

// WriteItems writes items to every writer and joins their errors.
func (m *MultiWriter) WriteItems(items []models.ListingItem) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	pool := utils.NewWorkerPool(len(m.writers))
	for _, w := range m.writers {
		w := w
		pool.Submit(func() {
			if err := w.WriteItems(items); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	pool.Wait()

	return errors.Join(errs...)
}

// Close closes every writer and joins their errors.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
