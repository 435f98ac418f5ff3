package storefront

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ceyewan/storekit/xerrors"
)

// 管理端商品维护操作。与购物端共用 products 熔断器；
// 全部是变更操作，失败一律上抛，写成功后失效商品读缓存。

// CreateProduct 新建商品（管理端）
func (c *Client) CreateProduct(ctx context.Context, product Product) (*Product, error) {
	if c.cfg.UseMockData {
		return nil, xerrors.New("storefront: admin operations unavailable in mock mode")
	}

	op := func(ctx context.Context) (any, error) {
		var out Product
		if err := c.http.Do(ctx, http.MethodPost, "/api/admin/products", product, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	result, err := c.mutate(ctx, EndpointProducts, op, "/products")
	if err != nil {
		return nil, err
	}
	return result.(*Product), nil
}

// UpdateProduct 更新商品（管理端）
func (c *Client) UpdateProduct(ctx context.Context, product Product) (*Product, error) {
	if c.cfg.UseMockData {
		return nil, xerrors.New("storefront: admin operations unavailable in mock mode")
	}
	if product.ID == "" {
		return nil, xerrors.New("storefront: product id empty")
	}

	path := "/api/admin/products/" + url.PathEscape(product.ID)
	op := func(ctx context.Context) (any, error) {
		var out Product
		if err := c.http.Do(ctx, http.MethodPut, path, product, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	result, err := c.mutate(ctx, EndpointProducts, op, "/products")
	if err != nil {
		return nil, err
	}
	return result.(*Product), nil
}

// DeleteProduct 删除商品（管理端）
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if c.cfg.UseMockData {
		return xerrors.New("storefront: admin operations unavailable in mock mode")
	}
	if id == "" {
		return xerrors.New("storefront: product id empty")
	}

	path := "/api/admin/products/" + url.PathEscape(id)
	op := func(ctx context.Context) (any, error) {
		return nil, c.http.Do(ctx, http.MethodDelete, path, nil, nil)
	}

	_, err := c.mutate(ctx, EndpointProducts, op, "/products")
	return err
}
