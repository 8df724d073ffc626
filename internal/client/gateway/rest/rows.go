package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
)

func (c *Client) Select(ctx context.Context, table string, q gateway.Query, dst any) error {
	if err := q.Validate(table); err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}

	params := url.Values{"select": {"*"}}
	for _, f := range q.Filters {
		params.Add(f.Column, "eq."+f.Value)
	}
	if q.Order != nil {
		dir := "desc"
		if q.Order.Ascending {
			dir = "asc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	return c.rows(ctx, request{method: http.MethodGet, path: "/rest/v1/" + table, query: params}, dst)
}

func (c *Client) Insert(ctx context.Context, table string, values any, dst any) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	cols, err := gateway.Columns(values)
	if err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}

	var out []map[string]any
	err = c.rows(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/" + table,
		body:   cols,
		header: http.Header{"Prefer": {"return=representation"}},
	}, &out)
	if err != nil {
		return err
	}
	return single(out, dst)
}

func (c *Client) Update(ctx context.Context, table, id string, patch map[string]any, dst any) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	cols, err := gateway.Columns(patch)
	if err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}

	var out []map[string]any
	err = c.rows(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/" + table,
		query:  url.Values{"id": {"eq." + id}},
		body:   cols,
		header: http.Header{"Prefer": {"return=representation"}},
	}, &out)
	if err != nil {
		return err
	}
	return single(out, dst)
}

func (c *Client) Delete(ctx context.Context, table, id string) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	return c.rows(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/" + table,
		query:  url.Values{"id": {"eq." + id}},
	}, nil)
}

// rows performs a table call exactly once. When the backend rejects the
// access token the session is renewed for later calls, but this call still
// fails with the 401.
func (c *Client) rows(ctx context.Context, r request, out any) error {
	tok := c.AccessToken()
	err := c.do(ctx, r, out)
	if err == nil {
		return nil
	}
	if isUnauthorized(err) && tok != "" {
		if rerr := c.forceRefresh(ctx, tok); rerr != nil {
			c.log.Debug(ctx, "session renewal after 401 failed", "error", rerr)
		}
	}
	return gateway.NewQueryError("", err)
}

func single(rows []map[string]any, dst any) error {
	if len(rows) == 0 {
		return gateway.NewQueryError("row not found", nil)
	}
	if err := gateway.Decode(rows[0], dst); err != nil {
		return gateway.NewQueryError("could not decode row", err)
	}
	return nil
}
