package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/precosal/backend/internal/auth"
	"github.com/precosal/backend/internal/domain"
	"github.com/precosal/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search    *usecase.SearchService
	compare   *usecase.ComparisonService
	baskets   *usecase.BasketService
	markets   *usecase.MarketService
	dashboard *usecase.DashboardService
	collector *usecase.CollectorService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	search *usecase.SearchService,
	compare *usecase.ComparisonService,
	baskets *usecase.BasketService,
	markets *usecase.MarketService,
	dashboard *usecase.DashboardService,
	collector *usecase.CollectorService,
) *Handler {
	return &Handler{
		search:    search,
		compare:   compare,
		baskets:   baskets,
		markets:   markets,
		dashboard: dashboard,
		collector: collector,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "precosal-backend",
		"version": "1.0.0",
	})
}

// --- Realtime search ---

type realtimeSearchRequest struct {
	Produto string   `json:"produto" binding:"required"`
	CNPJs   []string `json:"cnpjs" binding:"required"`
}

// RealtimeSearch looks a product up at the selected markets, straight
// against the public price API. A value that is (mostly) a bare number is
// treated as a barcode and matched exactly; anything else is a free-text
// description search.
func (h *Handler) RealtimeSearch(c *gin.Context) {
	var req realtimeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida: informe produto e cnpjs"})
		return
	}

	markets, err := h.markets.Resolve(c.Request.Context(), req.CNPJs)
	if err != nil {
		respondError(c, err)
		return
	}

	user := searchUserFrom(c)
	var results []domain.PriceObservation
	if code := domain.NormalizeBarcode(req.Produto); len(code) >= 8 && len(code) == len(req.Produto) {
		results, err = h.search.SearchBarcode(c.Request.Context(), user, code, markets)
	} else {
		results, err = h.search.Search(c.Request.Context(), user, req.Produto, markets)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if results == nil {
		results = []domain.PriceObservation{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// --- Markets ---

func (h *Handler) ListMarkets(c *gin.Context) {
	markets, err := h.markets.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}
	c.JSON(http.StatusOK, markets)
}

type marketRequest struct {
	Name    string `json:"nome" binding:"required"`
	CNPJ    string `json:"cnpj" binding:"required"`
	Address string `json:"endereco"`
}

func (h *Handler) CreateMarket(c *gin.Context) {
	var req marketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida: informe nome e cnpj"})
		return
	}

	market, err := h.markets.Create(c.Request.Context(), domain.Market{
		Name:    req.Name,
		CNPJ:    req.CNPJ,
		Address: req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, market)
}

func (h *Handler) UpdateMarket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req marketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida: informe nome e cnpj"})
		return
	}

	market, err := h.markets.Update(c.Request.Context(), id, domain.Market{
		Name:    req.Name,
		CNPJ:    req.CNPJ,
		Address: req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

func (h *Handler) DeleteMarket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.markets.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Baskets ---

func (h *Handler) ListBaskets(c *gin.Context) {
	claims := claimsFrom(c)
	baskets, err := h.baskets.ListBaskets(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if baskets == nil {
		baskets = []*domain.Basket{}
	}
	c.JSON(http.StatusOK, baskets)
}

type basketRequest struct {
	Name  string              `json:"nome" binding:"required"`
	Items []domain.BasketItem `json:"produtos"`
}

func (h *Handler) CreateBasket(c *gin.Context) {
	var req basketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida: informe o nome da cesta"})
		return
	}

	basket, err := h.baskets.CreateBasket(c.Request.Context(), actorFrom(c), req.Name, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, basket)
}

func (h *Handler) UpdateBasket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req basketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida: informe o nome da cesta"})
		return
	}

	basket, err := h.baskets.UpdateBasket(c.Request.Context(), actorFrom(c), id, req.Name, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basket)
}

func (h *Handler) DeleteBasket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.baskets.DeleteBasket(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddBasketItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var item domain.BasketItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida: informe o produto"})
		return
	}

	basket, err := h.baskets.AddItem(c.Request.Context(), actorFrom(c), id, item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basket)
}

func (h *Handler) UpdateBasketItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var item domain.BasketItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida: informe o produto"})
		return
	}

	basket, err := h.baskets.UpdateItem(c.Request.Context(), actorFrom(c), id, c.Param("barcode"), item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basket)
}

func (h *Handler) RemoveBasketItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	basket, err := h.baskets.RemoveItem(c.Request.Context(), actorFrom(c), id, c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basket)
}

func (h *Handler) ClearBasketItems(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	basket, err := h.baskets.ClearItems(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basket)
}

type compareRequest struct {
	CNPJs []string `json:"cnpjs" binding:"required"`
}

// CompareBasket prices one basket at the selected markets and returns the
// ranked results.
func (h *Handler) CompareBasket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida: informe os cnpjs"})
		return
	}

	basket, err := h.baskets.GetBasket(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	markets, err := h.markets.Resolve(c.Request.Context(), req.CNPJs)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.compare.Compare(c.Request.Context(), basket.Items, markets)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Dashboard ---

func (h *Handler) DashboardSummary(c *gin.Context) {
	start, end, ok := periodFrom(c)
	if !ok {
		return
	}
	summary, err := h.dashboard.Summary(c.Request.Context(), start, end, c.QueryArray("cnpjs"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) DashboardTopProducts(c *gin.Context) {
	start, end, ok := periodFrom(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	products, err := h.dashboard.TopProducts(c.Request.Context(), start, end, c.QueryArray("cnpjs"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if products == nil {
		products = []domain.TopProduct{}
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) DashboardPriceTrends(c *gin.Context) {
	start, end, ok := periodFrom(c)
	if !ok {
		return
	}
	trends, err := h.dashboard.PriceTrends(c.Request.Context(), start, end, c.QueryArray("cnpjs"))
	if err != nil {
		respondError(c, err)
		return
	}
	if trends == nil {
		trends = []domain.PriceTrend{}
	}
	c.JSON(http.StatusOK, trends)
}

func (h *Handler) DashboardCategories(c *gin.Context) {
	start, end, ok := periodFrom(c)
	if !ok {
		return
	}
	stats, err := h.dashboard.Categories(c.Request.Context(), start, end, c.QueryArray("cnpjs"))
	if err != nil {
		respondError(c, err)
		return
	}
	if stats == nil {
		stats = []domain.CategoryStats{}
	}
	c.JSON(http.StatusOK, stats)
}

// --- Collections ---

type startCollectionRequest struct {
	CNPJs []string `json:"cnpjs"`
	Days  int      `json:"dias"`
}

// StartCollection launches a background price collection over the selected
// markets, or all registered markets when none are given.
func (h *Handler) StartCollection(c *gin.Context) {
	var req startCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Requisição inválida"})
		return
	}

	var markets []domain.Market
	var err error
	if len(req.CNPJs) > 0 {
		markets, err = h.markets.Resolve(c.Request.Context(), req.CNPJs)
	} else {
		markets, err = h.markets.List(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}

	run, err := h.collector.Start(c.Request.Context(), markets, req.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

func (h *Handler) CollectionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.collector.Status())
}

// --- Helpers ---

// pathID parses the numeric :id parameter, answering the 400 itself on
// malformed input.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Identificador inválido"})
		return 0, false
	}
	return id, true
}

// periodFrom parses the start_date/end_date query parameters shared by the
// dashboard endpoints.
func periodFrom(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := time.Parse("2006-01-02", c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Parâmetro start_date inválido (use YYYY-MM-DD)"})
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse("2006-01-02", c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Parâmetro end_date inválido (use YYYY-MM-DD)"})
		return time.Time{}, time.Time{}, false
	}
	// Make the end date inclusive.
	return start, end.Add(24*time.Hour - time.Nanosecond), true
}

func actorFrom(c *gin.Context) usecase.BasketActor {
	claims := claimsFrom(c)
	if claims == nil {
		return usecase.BasketActor{}
	}
	return usecase.BasketActor{
		UserID: claims.UserID,
		Admin:  claims.Role == auth.RoleAdmin,
	}
}

func searchUserFrom(c *gin.Context) *domain.SearchUser {
	claims := claimsFrom(c)
	if claims == nil {
		return nil
	}
	return &domain.SearchUser{ID: claims.UserID, Email: claims.Email}
}

// respondError maps domain errors to the HTTP contract: the body is always
// {"detail": ...} and the status follows the error class.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrEmptyBasket),
		errors.Is(err, domain.ErrNoMarketsSelected),
		errors.Is(err, domain.ErrBasketFull),
		errors.Is(err, domain.ErrDuplicateItem):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": "Acesso não autorizado"})
	case errors.Is(err, domain.ErrBasketNotFound),
		errors.Is(err, domain.ErrMarketNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrDuplicateMarket),
		errors.Is(err, domain.ErrCollectionRunning):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrPriceAPIFailure):
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Falha ao consultar a API de preços"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Erro interno do servidor"})
	}
}
