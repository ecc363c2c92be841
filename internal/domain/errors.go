package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrEmptyBasket is returned when a comparison is requested for a basket
	// with no items carrying a barcode
	ErrEmptyBasket = errors.New("basket has no items with a barcode")

	// ErrNoMarketsSelected is returned when a search or comparison is
	// requested without any market selected
	ErrNoMarketsSelected = errors.New("no markets selected")

	// ErrBasketNotFound is returned when the requested basket does not exist
	ErrBasketNotFound = errors.New("basket not found")

	// ErrBasketFull is returned when adding an item would exceed the basket limit
	ErrBasketFull = errors.New("basket item limit reached")

	// ErrDuplicateItem is returned when adding a barcode already in the basket
	ErrDuplicateItem = errors.New("item already in basket")

	// ErrItemNotFound is returned when a basket item cannot be found
	ErrItemNotFound = errors.New("item not found in basket")

	// ErrMarketNotFound is returned when the requested market does not exist
	ErrMarketNotFound = errors.New("market not found")

	// ErrDuplicateMarket is returned when registering a CNPJ that already exists
	ErrDuplicateMarket = errors.New("market with this CNPJ already exists")

	// ErrForbidden is returned when a user acts on a resource they do not own
	ErrForbidden = errors.New("access to this resource is not allowed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrPriceAPIFailure is returned when the price search API request fails
	ErrPriceAPIFailure = errors.New("price API request failed")

	// ErrCollectionRunning is returned when a collection start is requested
	// while another run is active
	ErrCollectionRunning = errors.New("a collection is already running")
)
