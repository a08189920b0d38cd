package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

// Client talks to one chain's indexer API over HTTP JSON. It implements
// ItemService, OwnershipService, OrderService and CollectionService for
// that chain.
type Client struct {
	blockchain domain.Blockchain
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(blockchain domain.Blockchain, baseURL string, log *logger.Logger) *Client {
	return &Client{
		blockchain: blockchain,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With("client", "ChainClient", "blockchain", blockchain),
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%s request: %w", c.blockchain, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s call %s: %w", c.blockchain, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", c.blockchain, path, apperr.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s %s: unexpected status %d", c.blockchain, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", c.blockchain, path, err)
	}
	return nil
}

func pagingQuery(cont *string, size int) url.Values {
	q := url.Values{}
	if cont != nil && *cont != "" {
		q.Set("continuation", *cont)
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return q
}

// --- ItemService ---

func (c *Client) GetItemByID(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	var dto itemDto
	path := fmt.Sprintf("/v1/items/%s/%s", url.PathEscape(id.Contract), url.PathEscape(id.TokenID))
	if err := c.getJSON(ctx, path, nil, &dto); err != nil {
		return nil, err
	}
	item := dto.toDomain(c.blockchain)
	return &item, nil
}

func (c *Client) GetAllItems(ctx context.Context, cont *string, size int) (domain.Slice[domain.Item], error) {
	var dto sliceDto[itemDto]
	if err := c.getJSON(ctx, "/v1/items", pagingQuery(cont, size), &dto); err != nil {
		return domain.Slice[domain.Item]{}, err
	}
	return c.itemSlice(dto), nil
}

func (c *Client) GetItemsByOwner(ctx context.Context, owner string, cont *string, size int) (domain.Slice[domain.Item], error) {
	q := pagingQuery(cont, size)
	q.Set("owner", owner)
	var dto sliceDto[itemDto]
	if err := c.getJSON(ctx, "/v1/items/byOwner", q, &dto); err != nil {
		return domain.Slice[domain.Item]{}, err
	}
	return c.itemSlice(dto), nil
}

func (c *Client) GetItemsByCollection(ctx context.Context, collection domain.CollectionID, cont *string, size int) (domain.Slice[domain.Item], error) {
	q := pagingQuery(cont, size)
	q.Set("collection", collection.Address)
	var dto sliceDto[itemDto]
	if err := c.getJSON(ctx, "/v1/items/byCollection", q, &dto); err != nil {
		return domain.Slice[domain.Item]{}, err
	}
	return c.itemSlice(dto), nil
}

func (c *Client) itemSlice(dto sliceDto[itemDto]) domain.Slice[domain.Item] {
	entities := make([]domain.Item, 0, len(dto.Entities))
	for _, e := range dto.Entities {
		entities = append(entities, e.toDomain(c.blockchain))
	}
	return domain.Slice[domain.Item]{Entities: entities, Continuation: dto.Continuation}
}

// --- OwnershipService ---

func (c *Client) GetOwnershipByID(ctx context.Context, id domain.OwnershipID) (*domain.Ownership, error) {
	var dto ownershipDto
	path := fmt.Sprintf("/v1/ownerships/%s/%s/%s",
		url.PathEscape(id.Contract), url.PathEscape(id.TokenID), url.PathEscape(id.Owner))
	if err := c.getJSON(ctx, path, nil, &dto); err != nil {
		return nil, err
	}
	ownership := dto.toDomain(c.blockchain)
	return &ownership, nil
}

func (c *Client) GetOwnershipsByItem(ctx context.Context, item domain.ItemID, cont *string, size int) (domain.Slice[domain.Ownership], error) {
	q := pagingQuery(cont, size)
	q.Set("contract", item.Contract)
	q.Set("token_id", item.TokenID)
	var dto sliceDto[ownershipDto]
	if err := c.getJSON(ctx, "/v1/ownerships/byItem", q, &dto); err != nil {
		return domain.Slice[domain.Ownership]{}, err
	}
	entities := make([]domain.Ownership, 0, len(dto.Entities))
	for _, e := range dto.Entities {
		entities = append(entities, e.toDomain(c.blockchain))
	}
	return domain.Slice[domain.Ownership]{Entities: entities, Continuation: dto.Continuation}, nil
}

func (c *Client) GetItemSellStats(ctx context.Context, item domain.ItemID) (SellStats, error) {
	q := url.Values{}
	q.Set("contract", item.Contract)
	q.Set("token_id", item.TokenID)
	var stats SellStats
	if err := c.getJSON(ctx, "/v1/ownerships/sellStats", q, &stats); err != nil {
		return SellStats{}, err
	}
	return stats, nil
}

// --- OrderService ---

func (c *Client) GetOrderByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	var dto orderDto
	path := fmt.Sprintf("/v1/orders/%s", url.PathEscape(id.Value))
	if err := c.getJSON(ctx, path, nil, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(c.blockchain)
}

func (c *Client) GetSellOrdersByItem(ctx context.Context, item domain.ItemID, maker, currencyID, origin string, cont *string, size int) (domain.Slice[domain.Order], error) {
	return c.ordersByItem(ctx, "/v1/orders/sell/byItem", item, maker, currencyID, origin, cont, size)
}

func (c *Client) GetBidOrdersByItem(ctx context.Context, item domain.ItemID, currencyID, origin string, cont *string, size int) (domain.Slice[domain.Order], error) {
	return c.ordersByItem(ctx, "/v1/orders/bid/byItem", item, "", currencyID, origin, cont, size)
}

func (c *Client) ordersByItem(ctx context.Context, path string, item domain.ItemID, maker, currencyID, origin string, cont *string, size int) (domain.Slice[domain.Order], error) {
	q := pagingQuery(cont, size)
	q.Set("contract", item.Contract)
	q.Set("token_id", item.TokenID)
	if maker != "" {
		q.Set("maker", maker)
	}
	if currencyID != "" {
		q.Set("currency", currencyID)
	}
	if origin != "" {
		q.Set("origin", origin)
	}
	return c.orderSlice(ctx, path, q)
}

func (c *Client) GetSellOrdersByCollection(ctx context.Context, collection domain.CollectionID, currencyID string, cont *string, size int) (domain.Slice[domain.Order], error) {
	return c.ordersByCollection(ctx, "/v1/orders/sell/byCollection", collection, currencyID, cont, size)
}

func (c *Client) GetBidOrdersByCollection(ctx context.Context, collection domain.CollectionID, currencyID string, cont *string, size int) (domain.Slice[domain.Order], error) {
	return c.ordersByCollection(ctx, "/v1/orders/bid/byCollection", collection, currencyID, cont, size)
}

func (c *Client) ordersByCollection(ctx context.Context, path string, collection domain.CollectionID, currencyID string, cont *string, size int) (domain.Slice[domain.Order], error) {
	q := pagingQuery(cont, size)
	q.Set("collection", collection.Address)
	if currencyID != "" {
		q.Set("currency", currencyID)
	}
	return c.orderSlice(ctx, path, q)
}

func (c *Client) orderSlice(ctx context.Context, path string, q url.Values) (domain.Slice[domain.Order], error) {
	var dto sliceDto[orderDto]
	if err := c.getJSON(ctx, path, q, &dto); err != nil {
		return domain.Slice[domain.Order]{}, err
	}
	entities := make([]domain.Order, 0, len(dto.Entities))
	for _, e := range dto.Entities {
		order, err := e.toDomain(c.blockchain)
		if err != nil {
			return domain.Slice[domain.Order]{}, err
		}
		entities = append(entities, *order)
	}
	return domain.Slice[domain.Order]{Entities: entities, Continuation: dto.Continuation}, nil
}

func (c *Client) GetSellCurrencies(ctx context.Context, item domain.ItemID) ([]string, error) {
	return c.currencies(ctx, "/v1/orders/sell/currencies", item)
}

func (c *Client) GetBidCurrencies(ctx context.Context, item domain.ItemID) ([]string, error) {
	return c.currencies(ctx, "/v1/orders/bid/currencies", item)
}

func (c *Client) currencies(ctx context.Context, path string, item domain.ItemID) ([]string, error) {
	q := url.Values{}
	q.Set("contract", item.Contract)
	q.Set("token_id", item.TokenID)
	var out struct {
		Currencies []string `json:"currencies"`
	}
	if err := c.getJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out.Currencies, nil
}

// --- CollectionService ---

func (c *Client) GetCollectionByID(ctx context.Context, id domain.CollectionID) (*domain.Collection, error) {
	var dto collectionDto
	path := fmt.Sprintf("/v1/collections/%s", url.PathEscape(id.Address))
	if err := c.getJSON(ctx, path, nil, &dto); err != nil {
		return nil, err
	}
	collection := dto.toDomain(c.blockchain)
	return &collection, nil
}

func (c *Client) GetCollectionsByOwner(ctx context.Context, owner string, cont *string, size int) (domain.Slice[domain.Collection], error) {
	q := pagingQuery(cont, size)
	q.Set("owner", owner)
	var dto sliceDto[collectionDto]
	if err := c.getJSON(ctx, "/v1/collections/byOwner", q, &dto); err != nil {
		return domain.Slice[domain.Collection]{}, err
	}
	entities := make([]domain.Collection, 0, len(dto.Entities))
	for _, e := range dto.Entities {
		entities = append(entities, e.toDomain(c.blockchain))
	}
	return domain.Slice[domain.Collection]{Entities: entities, Continuation: dto.Continuation}, nil
}
