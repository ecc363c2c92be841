package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/precosal/backend/internal/domain"
)

// BasketActor is whoever is operating on a basket. Admins may touch any
// basket; everyone else only their own.
type BasketActor struct {
	UserID string
	Admin  bool
}

// BasketService owns basket lifecycle and item rules: the item cap, name
// cleanup and barcode normalization on the way in, and duplicate rejection.
type BasketService struct {
	repo domain.BasketRepository
}

func NewBasketService(repo domain.BasketRepository) *BasketService {
	return &BasketService{repo: repo}
}

func (s *BasketService) ListBaskets(ctx context.Context, userID string) ([]*domain.Basket, error) {
	if userID == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.repo.GetByUser(ctx, userID)
}

func (s *BasketService) GetBasket(ctx context.Context, actor BasketActor, id int64) (*domain.Basket, error) {
	basket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && basket.UserID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	return basket, nil
}

func (s *BasketService) CreateBasket(ctx context.Context, actor BasketActor, name string, items []domain.BasketItem) (*domain.Basket, error) {
	name = strings.TrimSpace(name)
	if name == "" || actor.UserID == "" {
		return nil, domain.ErrInvalidRequest
	}

	cleaned, err := cleanItems(items)
	if err != nil {
		return nil, err
	}

	basket := &domain.Basket{
		UserID: actor.UserID,
		Name:   name,
		Items:  cleaned,
	}
	if err := s.repo.Create(ctx, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// UpdateBasket renames a basket and replaces its items wholesale. Callers
// that only want to rename pass the existing items back.
func (s *BasketService) UpdateBasket(ctx context.Context, actor BasketActor, id int64, name string, items []domain.BasketItem) (*domain.Basket, error) {
	basket, err := s.GetBasket(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}
	cleaned, err := cleanItems(items)
	if err != nil {
		return nil, err
	}

	basket.Name = name
	basket.Items = cleaned
	basket.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

func (s *BasketService) DeleteBasket(ctx context.Context, actor BasketActor, id int64) error {
	if _, err := s.GetBasket(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *BasketService) AddItem(ctx context.Context, actor BasketActor, basketID int64, item domain.BasketItem) (*domain.Basket, error) {
	basket, err := s.GetBasket(ctx, actor, basketID)
	if err != nil {
		return nil, err
	}
	if len(basket.Items) >= domain.MaxBasketItems {
		return nil, domain.ErrBasketFull
	}

	item, err = cleanItem(item)
	if err != nil {
		return nil, err
	}
	for _, existing := range basket.Items {
		if item.HasBarcode() && existing.Barcode == item.Barcode {
			return nil, domain.ErrDuplicateItem
		}
		if strings.EqualFold(existing.Name, item.Name) {
			return nil, domain.ErrDuplicateItem
		}
	}

	basket.Items = append(basket.Items, item)
	basket.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// UpdateItem replaces the item addressed by barcode (or, for uncoded
// items, by name) with the given one.
func (s *BasketService) UpdateItem(ctx context.Context, actor BasketActor, basketID int64, key string, item domain.BasketItem) (*domain.Basket, error) {
	basket, err := s.GetBasket(ctx, actor, basketID)
	if err != nil {
		return nil, err
	}

	index := findItem(basket.Items, key)
	if index < 0 {
		return nil, domain.ErrItemNotFound
	}

	item, err = cleanItem(item)
	if err != nil {
		return nil, err
	}
	for i, existing := range basket.Items {
		if i == index {
			continue
		}
		if item.HasBarcode() && existing.Barcode == item.Barcode {
			return nil, domain.ErrDuplicateItem
		}
		if strings.EqualFold(existing.Name, item.Name) {
			return nil, domain.ErrDuplicateItem
		}
	}

	basket.Items[index] = item
	basket.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// RemoveItem drops the item addressed by barcode (or, for uncoded items,
// by name).
func (s *BasketService) RemoveItem(ctx context.Context, actor BasketActor, basketID int64, key string) (*domain.Basket, error) {
	basket, err := s.GetBasket(ctx, actor, basketID)
	if err != nil {
		return nil, err
	}

	index := findItem(basket.Items, key)
	if index < 0 {
		return nil, domain.ErrItemNotFound
	}

	basket.Items = append(basket.Items[:index], basket.Items[index+1:]...)
	basket.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// ClearItems empties the basket without deleting it.
func (s *BasketService) ClearItems(ctx context.Context, actor BasketActor, basketID int64) (*domain.Basket, error) {
	basket, err := s.GetBasket(ctx, actor, basketID)
	if err != nil {
		return nil, err
	}

	basket.Items = []domain.BasketItem{}
	basket.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// findItem locates an item by normalized barcode, falling back to a
// case-insensitive name match for items without one.
func findItem(items []domain.BasketItem, key string) int {
	code := domain.NormalizeBarcode(key)
	for i, item := range items {
		if code != "" && item.Barcode == code {
			return i
		}
		if strings.EqualFold(item.Name, strings.TrimSpace(key)) {
			return i
		}
	}
	return -1
}

// cleanItems normalizes every item and enforces the cap and uniqueness
// rules before anything is persisted.
func cleanItems(items []domain.BasketItem) ([]domain.BasketItem, error) {
	if len(items) > domain.MaxBasketItems {
		return nil, domain.ErrBasketFull
	}

	cleaned := make([]domain.BasketItem, 0, len(items))
	seenCodes := make(map[string]bool)
	seenNames := make(map[string]bool)
	for _, item := range items {
		item, err := cleanItem(item)
		if err != nil {
			return nil, err
		}
		nameKey := strings.ToLower(item.Name)
		if seenNames[nameKey] {
			return nil, domain.ErrDuplicateItem
		}
		seenNames[nameKey] = true
		if item.HasBarcode() {
			if seenCodes[item.Barcode] {
				return nil, domain.ErrDuplicateItem
			}
			seenCodes[item.Barcode] = true
		}
		cleaned = append(cleaned, item)
	}
	return cleaned, nil
}

func cleanItem(item domain.BasketItem) (domain.BasketItem, error) {
	item.Name = strings.Join(strings.Fields(item.Name), " ")
	if item.Name == "" {
		return item, domain.ErrInvalidRequest
	}
	item.Barcode = domain.NormalizeBarcode(item.Barcode)
	return item, nil
}
