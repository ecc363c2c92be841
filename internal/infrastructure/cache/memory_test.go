package cache

import (
	"context"
	"testing"
	"time"

	"github.com/precosal/backend/internal/domain"
)

func testObservations() []domain.PriceObservation {
	return []domain.PriceObservation{
		{
			MarketCNPJ:  "11111111000111",
			MarketName:  "Mercado A",
			Barcode:     "7891234567890",
			ProductName: "ARROZ BRANCO 1KG",
			Price:       5.49,
			UnitType:    "UN",
		},
		{
			MarketCNPJ:  "22222222000122",
			MarketName:  "Mercado B",
			Barcode:     "7891234567890",
			ProductName: "ARROZ BRANCO 1KG",
			Price:       4.99,
			UnitType:    "UN",
		},
	}
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	observations := testObservations()
	if err := cache.Set(ctx, "search:arroz", observations, 1*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := cache.Get(ctx, "search:arroz")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Get() returned %d observations, want 2", len(got))
	}
	if got[0].MarketCNPJ != "11111111000111" || got[0].Price != 5.49 {
		t.Errorf("Get()[0] = %+v, want first stored observation", got[0])
	}
	if got[1].MarketName != "Mercado B" {
		t.Errorf("Get()[1].MarketName = %s, want Mercado B", got[1].MarketName)
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, err := cache.Get(ctx, "non-existent-key")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Get_Expired(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "short-lived", testObservations(), 1*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	_, err := cache.Get(ctx, "short-lived")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() after expiration error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	key := "delete-test"
	if err := cache.Set(ctx, key, testObservations(), 1*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := cache.Get(ctx, key)
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() after Delete error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_CopiesOnReadAndWrite(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	original := testObservations()
	if err := cache.Set(ctx, "copy-test", original, 1*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Mutating the slice we stored must not change cached data
	original[0].Price = 99.99

	got, err := cache.Get(ctx, "copy-test")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got[0].Price != 5.49 {
		t.Errorf("cached price = %v after caller mutation, want 5.49", got[0].Price)
	}

	// Mutating a returned slice must not change cached data either
	got[0].Price = 0.01

	again, err := cache.Get(ctx, "copy-test")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again[0].Price != 5.49 {
		t.Errorf("cached price = %v after reader mutation, want 5.49", again[0].Price)
	}
}

func TestMemoryCache_SizeAndClear(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if cache.Size() != 0 {
		t.Errorf("Size() = %d on new cache, want 0", cache.Size())
	}

	cache.Set(ctx, "a", testObservations(), 1*time.Minute)
	cache.Set(ctx, "b", testObservations(), 1*time.Minute)

	if cache.Size() != 2 {
		t.Errorf("Size() = %d, want 2", cache.Size())
	}

	cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Size() = %d after Clear, want 0", cache.Size())
	}
}
