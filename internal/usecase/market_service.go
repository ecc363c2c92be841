package usecase

import (
	"context"
	"strings"

	"github.com/precosal/backend/internal/domain"
)

// MarketService manages the registered supermarkets. The CNPJ is the
// natural key against the public price API, so it is normalized to digits
// and length-checked before anything touches the database.
type MarketService struct {
	repo domain.MarketRepository
}

func NewMarketService(repo domain.MarketRepository) *MarketService {
	return &MarketService{repo: repo}
}

func (s *MarketService) List(ctx context.Context) ([]domain.Market, error) {
	return s.repo.List(ctx)
}

func (s *MarketService) Get(ctx context.Context, id int64) (*domain.Market, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MarketService) Create(ctx context.Context, market domain.Market) (*domain.Market, error) {
	cleaned, err := cleanMarket(market)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, cleaned); err != nil {
		return nil, err
	}
	return cleaned, nil
}

func (s *MarketService) Update(ctx context.Context, id int64, market domain.Market) (*domain.Market, error) {
	cleaned, err := cleanMarket(market)
	if err != nil {
		return nil, err
	}
	cleaned.ID = id
	if err := s.repo.Update(ctx, cleaned); err != nil {
		return nil, err
	}
	return cleaned, nil
}

func (s *MarketService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Resolve maps client-supplied CNPJs to registered markets, dropping
// duplicates and unknown codes. Search and comparison only ever query
// markets an admin registered, whatever the client sends.
func (s *MarketService) Resolve(ctx context.Context, cnpjs []string) ([]domain.Market, error) {
	if len(cnpjs) == 0 {
		return nil, domain.ErrNoMarketsSelected
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	byCNPJ := make(map[string]domain.Market, len(all))
	for _, m := range all {
		byCNPJ[m.CNPJ] = m
	}

	var markets []domain.Market
	seen := make(map[string]bool)
	for _, raw := range cnpjs {
		cnpj := domain.NormalizeCNPJ(raw)
		if cnpj == "" || seen[cnpj] {
			continue
		}
		seen[cnpj] = true
		if m, ok := byCNPJ[cnpj]; ok {
			markets = append(markets, m)
		}
	}
	if len(markets) == 0 {
		return nil, domain.ErrNoMarketsSelected
	}
	return markets, nil
}

func cleanMarket(market domain.Market) (*domain.Market, error) {
	market.Name = strings.TrimSpace(market.Name)
	market.Address = strings.TrimSpace(market.Address)
	market.CNPJ = domain.NormalizeCNPJ(market.CNPJ)
	if market.Name == "" || len(market.CNPJ) != 14 {
		return nil, domain.ErrInvalidRequest
	}
	return &market, nil
}
