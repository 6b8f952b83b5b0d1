package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/port"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrFlavorNotFound  = errors.New("flavor not found")
)

// CatalogService owns the product and flavor collections. Every mutation
// rewrites the whole collection before returning.
type CatalogService struct {
	products *repository.Repository[[]domain.Product]
	flavors  *repository.Repository[[]domain.Flavor]
	log      logrus.FieldLogger
}

func NewCatalogService(store port.KeyValueStore, keys repository.Keys, log logrus.FieldLogger) *CatalogService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CatalogService{
		products: repository.NewCollection(store, keys, repository.Products, domain.DefaultProducts, log).Global(),
		flavors:  repository.NewCollection(store, keys, repository.Flavors, domain.DefaultFlavors, log).Global(),
		log:      log,
	}
}

func (s *CatalogService) Products(ctx context.Context) ([]domain.Product, error) {
	return s.products.Load(ctx)
}

func (s *CatalogService) Flavors(ctx context.Context) ([]domain.Flavor, error) {
	return s.flavors.Load(ctx)
}

func (s *CatalogService) ProductByID(ctx context.Context, id string) (domain.Product, error) {
	products, err := s.products.Load(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, ErrProductNotFound
}

func (s *CatalogService) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	p.ID = uuid.Must(uuid.NewV7()).String()
	p.Slug = slug.Make(p.Name)

	_, err := s.products.Update(ctx, func(list *[]domain.Product) error {
		*list = append(*list, p)
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.log.WithFields(logrus.Fields{"product_id": p.ID, "name": p.Name}).Info("product added")
	return p, nil
}

// UpdateProduct replaces the product with id, keeping its id. An unknown id
// is a silent no-op reported through the boolean.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, p domain.Product) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	p.ID = id
	p.Slug = slug.Make(p.Name)

	found := false
	_, err := s.products.Update(ctx, func(list *[]domain.Product) error {
		found = false
		for i := range *list {
			if (*list)[i].ID == id {
				(*list)[i] = p
				found = true
				return nil
			}
		}
		return repository.ErrNoChange
	})
	return found, err
}

// DeleteProduct removes the product and every flavor linked to it.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) (bool, error) {
	found, err := removeByID(ctx, s.products, id, func(p domain.Product) string { return p.ID })
	if err != nil || !found {
		return found, err
	}

	_, err = s.flavors.Update(ctx, func(list *[]domain.Flavor) error {
		kept := (*list)[:0]
		for _, f := range *list {
			if f.ProductID != id {
				kept = append(kept, f)
			}
		}
		if len(kept) == len(*list) {
			return repository.ErrNoChange
		}
		*list = kept
		return nil
	})
	if err != nil {
		return true, err
	}

	s.log.WithField("product_id", id).Info("product deleted")
	return true, nil
}

func (s *CatalogService) AddFlavor(ctx context.Context, f domain.Flavor) (domain.Flavor, error) {
	if err := f.Validate(); err != nil {
		return domain.Flavor{}, err
	}
	f.ID = uuid.Must(uuid.NewV7()).String()

	_, err := s.flavors.Update(ctx, func(list *[]domain.Flavor) error {
		*list = append(*list, f)
		return nil
	})
	if err != nil {
		return domain.Flavor{}, err
	}
	return f, nil
}

func (s *CatalogService) UpdateFlavor(ctx context.Context, id string, f domain.Flavor) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}
	f.ID = id

	found := false
	_, err := s.flavors.Update(ctx, func(list *[]domain.Flavor) error {
		found = false
		for i := range *list {
			if (*list)[i].ID == id {
				(*list)[i] = f
				found = true
				return nil
			}
		}
		return repository.ErrNoChange
	})
	return found, err
}

// DeleteFlavor never touches products.
func (s *CatalogService) DeleteFlavor(ctx context.Context, id string) (bool, error) {
	return removeByID(ctx, s.flavors, id, func(f domain.Flavor) string { return f.ID })
}

func removeByID[T any](ctx context.Context, repo *repository.Repository[[]T], id string, idOf func(T) string) (bool, error) {
	// The store may rerun fn after a conflicting write, so found only
	// reflects the attempt that was committed.
	found := false
	_, err := repo.Update(ctx, func(list *[]T) error {
		found = false
		for i, item := range *list {
			if idOf(item) == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				found = true
				return nil
			}
		}
		return repository.ErrNoChange
	})
	return found, err
}
