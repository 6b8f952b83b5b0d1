package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
)

func newProduct(name string) domain.Product {
	return domain.Product{
		Name:     name,
		Price:    dec("3.49"),
		Energy:   domain.EnergyUltra,
		Rating:   4.2,
		Reviews:  10,
		Category: "berry",
	}
}

func TestCatalog_Defaults(t *testing.T) {
	svc := NewCatalogService(newMockStore(), testKeys, nullLogger())

	products, err := svc.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, domain.DefaultProductID, products[0].ID)

	flavors, err := svc.Flavors(context.Background())
	require.NoError(t, err)
	require.Len(t, flavors, 1)
	assert.True(t, flavors[0].Featured)
}

func TestCatalog_MalformedStoreFallsBackToDefaults(t *testing.T) {
	store := newMockStore()
	store.data["catrink_products"] = []byte("[{broken")
	svc := NewCatalogService(store, testKeys, nullLogger())

	products, err := svc.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProducts(), products)
}

func TestAddProduct_AssignsIDAndSlug(t *testing.T) {
	store := newMockStore()
	svc := NewCatalogService(store, testKeys, nullLogger())
	ctx := context.Background()

	p, err := svc.AddProduct(ctx, newProduct("Berry Blast Ultra"))
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "berry-blast-ultra", p.Slug)

	again, err := svc.AddProduct(ctx, newProduct("Berry Blast Ultra"))
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, again.ID)

	products, _ := svc.Products(ctx)
	assert.Len(t, products, 3)

	_, persisted := store.raw("catrink_products")
	assert.True(t, persisted)
}

func TestAddProduct_Invalid(t *testing.T) {
	svc := NewCatalogService(newMockStore(), testKeys, nullLogger())

	p := newProduct("Bad")
	p.Energy = "Extreme"
	_, err := svc.AddProduct(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateProduct(t *testing.T) {
	svc := NewCatalogService(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()

	updated, err := svc.UpdateProduct(ctx, domain.DefaultProductID, newProduct("Mango Bluster Max"))
	require.NoError(t, err)
	assert.True(t, updated)

	p, err := svc.ProductByID(ctx, domain.DefaultProductID)
	require.NoError(t, err)
	assert.Equal(t, "Mango Bluster Max", p.Name)

	updated, err = svc.UpdateProduct(ctx, "missing", newProduct("Ghost"))
	require.NoError(t, err)
	assert.False(t, updated)

	products, _ := svc.Products(ctx)
	assert.Len(t, products, 1)
}

func TestDeleteProduct_CascadesLinkedFlavors(t *testing.T) {
	svc := NewCatalogService(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()

	p, err := svc.AddProduct(ctx, newProduct("Berry"))
	require.NoError(t, err)
	_, err = svc.AddFlavor(ctx, domain.Flavor{Name: "Berry", ProductID: p.ID, Price: dec("3.49")})
	require.NoError(t, err)
	_, err = svc.AddFlavor(ctx, domain.Flavor{Name: "Standalone", Price: dec("1")})
	require.NoError(t, err)

	deleted, err := svc.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	flavors, _ := svc.Flavors(ctx)
	names := make([]string, 0, len(flavors))
	for _, f := range flavors {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"Mango Bluster", "Standalone"}, names)

	deleted, err = svc.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteFlavor_KeepsProduct(t *testing.T) {
	svc := NewCatalogService(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()

	deleted, err := svc.DeleteFlavor(ctx, domain.DefaultProductID)
	require.NoError(t, err)
	assert.True(t, deleted)

	flavors, _ := svc.Flavors(ctx)
	assert.Empty(t, flavors)
	products, _ := svc.Products(ctx)
	assert.Len(t, products, 1)
}

func TestUpdateFlavor_UnknownIsNoop(t *testing.T) {
	svc := NewCatalogService(newMockStore(), testKeys, nullLogger())

	updated, err := svc.UpdateFlavor(context.Background(), "missing", domain.Flavor{Name: "Ghost"})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestDeleteProduct_RetryAfterConcurrentDelete(t *testing.T) {
	store := &racingStore{mockStore: newMockStore(), race: func(m *mockStore) {
		m.data[testKeys.Global(repository.Products)] = []byte("[]")
	}}
	svc := NewCatalogService(store, testKeys, nullLogger())

	deleted, err := svc.DeleteProduct(context.Background(), domain.DefaultProductID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateFlavor_RetryAfterConcurrentDelete(t *testing.T) {
	store := &racingStore{mockStore: newMockStore(), race: func(m *mockStore) {
		m.data[testKeys.Global(repository.Flavors)] = []byte("[]")
	}}
	svc := NewCatalogService(store, testKeys, nullLogger())

	updated, err := svc.UpdateFlavor(context.Background(), domain.DefaultProductID, domain.Flavor{Name: "Ghost"})
	require.NoError(t, err)
	assert.False(t, updated)

	flavors, err := svc.Flavors(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flavors)
}
