package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promisingcoder/google-maps-scraper/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "places.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func samplePlace() model.Place {
	open := true
	return model.Place{
		Name:         "Abu Ashraf",
		Rating:       ptr(4.6),
		ReviewsCount: ptr(1250),
		Address:      "28 Safar Pasha, Bahary, Alexandria",
		Phones:       []string{"+20 3 480 0000", "+20348011111"},
		Website:      "https://example.com",
		PriceRange:   "$$",
		Cuisine:      "Seafood restaurant",
		Category:     "Seafood restaurant",
		OpeningHours: &model.OpeningHours{Open: &open, Closes: "2 AM"},
		Services:     model.ServiceFlags{DineIn: true, Takeaway: true},
		Coordinates:  model.Coordinates{Lat: ptr(31.2083), Lng: ptr(29.8824)},
		ReviewHighlights: []string{
			"Freshest fish in Bahary",
			"Grilled sea bass is a must",
		},
		Images: []string{"https://lh5.googleusercontent.com/p/abc"},
	}
}

func TestStoreInsertAndCount(t *testing.T) {
	store := newTestStore(t)

	n, err := store.InsertBatch([]model.Place{samplePlace()}, "seafood alexandria")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStoreSkipsDuplicates(t *testing.T) {
	store := newTestStore(t)
	p := samplePlace()

	n, err := store.InsertBatch([]model.Place{p, p}, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "same name and address inserts once")

	// A second run with the same place inserts nothing
	n, err = store.InsertBatch([]model.Place{p}, "q")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Same name at a different address is a distinct place
	p2 := samplePlace()
	p2.Address = "Corniche Rd, Alexandria"
	n, err = store.InsertBatch([]model.Place{p2}, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreLoadAllRoundtrip(t *testing.T) {
	store := newTestStore(t)
	want := samplePlace()

	_, err := store.InsertBatch([]model.Place{want}, "seafood alexandria")
	require.NoError(t, err)

	rows, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0].Place
	assert.Equal(t, "seafood alexandria", rows[0].Query)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Address, got.Address)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.6, *got.Rating)
	require.NotNil(t, got.ReviewsCount)
	assert.Equal(t, 1250, *got.ReviewsCount)
	assert.Equal(t, want.Phones, got.Phones)
	assert.Equal(t, want.Website, got.Website)
	assert.Equal(t, want.PriceRange, got.PriceRange)
	assert.Equal(t, want.Cuisine, got.Cuisine)
	require.NotNil(t, got.OpeningHours)
	require.NotNil(t, got.OpeningHours.Open)
	assert.True(t, *got.OpeningHours.Open)
	assert.Equal(t, "2 AM", got.OpeningHours.Closes)
	assert.True(t, got.Services.DineIn)
	assert.True(t, got.Services.Takeaway)
	assert.False(t, got.Services.Delivery)
	require.NotNil(t, got.Coordinates.Lat)
	assert.Equal(t, 31.2083, *got.Coordinates.Lat)
	assert.Equal(t, want.ReviewHighlights, got.ReviewHighlights)
	assert.Equal(t, want.Images, got.Images)
}

func TestStoreSparsePlace(t *testing.T) {
	store := newTestStore(t)

	n, err := store.InsertBatch([]model.Place{{Name: "Nameplate Only"}}, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0].Place
	assert.Equal(t, "Nameplate Only", got.Name)
	assert.Nil(t, got.Rating)
	assert.Nil(t, got.ReviewsCount)
	assert.Empty(t, got.Phones)
	assert.Nil(t, got.OpeningHours)
	assert.Nil(t, got.Coordinates.Lat)
	assert.Nil(t, got.Coordinates.Lng)
	assert.Empty(t, got.ReviewHighlights)
	assert.Empty(t, got.Images)
}

func TestStoreLoadAllOrdersByName(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertBatch([]model.Place{
		{Name: "Zahran Grill", Address: "a"},
		{Name: "Balbaa Village", Address: "b"},
	}, "q")
	require.NoError(t, err)

	rows, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Balbaa Village", rows[0].Place.Name)
	assert.Equal(t, "Zahran Grill", rows[1].Place.Name)
}
