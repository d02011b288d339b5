package quote

import "github.com/google/uuid"

// Store is QuoteService's persistence collaborator. It is deliberately
// ignorant of filters/sort — List returns everything and the service
// layer narrows and orders it — since the quote set a back-office
// holds is small enough that in-process filtering is simpler than a
// query builder per store implementation.
type Store interface {
	Save(q Quote) error
	Get(id uuid.UUID) (Quote, error)
	List() ([]Quote, error)
	Update(q Quote) error
	Close() error
}
