// Package shopify is a thin Admin GraphQL client covering the two
// surfaces this app needs: automatic app discount lifecycle plus the
// config metafield, and collection membership reads.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/masumbillah21/conditional-discount/pkg/config"
	"github.com/masumbillah21/conditional-discount/pkg/db/models"
	"github.com/masumbillah21/conditional-discount/pkg/logger"
)

const (
	accessTokenHeader = "X-Shopify-Access-Token"
	collectionGIDBase = "gid://shopify/Collection/"
)

// Client talks to the Shopify Admin GraphQL API for one app install.
type Client struct {
	httpClient *http.Client
	cfg        config.ShopifyConfig
	logg       *logger.Logger

	// BaseURL overrides the shop-derived endpoint. Used by tests.
	BaseURL string

	pageLimit int
}

// New builds an Admin API client from the app configuration.
func New(cfg config.ShopifyConfig, collections config.CollectionsConfig, logg *logger.Logger) (*Client, error) {
	if cfg.AdminToken == "" {
		return nil, fmt.Errorf("shopify admin token required")
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("shopify api version required")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageLimit := collections.PageLimit
	if pageLimit <= 0 || pageLimit > 250 {
		pageLimit = 250
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logg:       logg,
		pageLimit:  pageLimit,
	}, nil
}

func (c *Client) endpoint(shopDomain string) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, c.cfg.APIVersion)
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func (c *Client) do(ctx context.Context, shopDomain, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shopDomain), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, c.cfg.AdminToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("admin api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin api responded %d", resp.StatusCode)
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode graphql data: %w", err)
		}
	}
	return nil
}

func firstUserError(errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	if len(first.Field) > 0 {
		return fmt.Errorf("%s: %s", strings.Join(first.Field, "."), first.Message)
	}
	return fmt.Errorf("%s", first.Message)
}

const createDiscountMutation = `
mutation discountCreate($discount: DiscountAutomaticAppInput!) {
  discountAutomaticAppCreate(automaticAppDiscount: $discount) {
    automaticAppDiscount { discountId }
    userErrors { field message }
  }
}`

// CreateDiscount creates the automatic app discount carrying the config
// blob as a JSON metafield and returns the platform discount id.
func (c *Client) CreateDiscount(ctx context.Context, shopDomain string, rule *models.DiscountRule, configBlob string) (string, error) {
	variables := map[string]any{
		"discount": map[string]any{
			"title":      rule.Title,
			"functionId": c.cfg.FunctionID,
			"startsAt":   time.Now().UTC().Format(time.RFC3339),
			"metafields": []map[string]any{
				{
					"namespace": c.cfg.MetafieldNamespace,
					"key":       c.cfg.MetafieldKey,
					"type":      "json",
					"value":     configBlob,
				},
			},
		},
	}

	var payload struct {
		DiscountAutomaticAppCreate struct {
			AutomaticAppDiscount struct {
				DiscountID string `json:"discountId"`
			} `json:"automaticAppDiscount"`
			UserErrors []userError `json:"userErrors"`
		} `json:"discountAutomaticAppCreate"`
	}
	if err := c.do(ctx, shopDomain, createDiscountMutation, variables, &payload); err != nil {
		return "", err
	}
	if err := firstUserError(payload.DiscountAutomaticAppCreate.UserErrors); err != nil {
		return "", fmt.Errorf("discount create rejected: %w", err)
	}
	if payload.DiscountAutomaticAppCreate.AutomaticAppDiscount.DiscountID == "" {
		return "", fmt.Errorf("discount create returned no id")
	}
	return payload.DiscountAutomaticAppCreate.AutomaticAppDiscount.DiscountID, nil
}

const updateDiscountMutation = `
mutation discountUpdate($id: ID!, $discount: DiscountAutomaticAppInput!) {
  discountAutomaticAppUpdate(id: $id, automaticAppDiscount: $discount) {
    userErrors { field message }
  }
}`

const metafieldsSetMutation = `
mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    userErrors { field message }
  }
}`

// UpdateDiscount renames the platform discount and rewrites its config
// metafield to the current blob.
func (c *Client) UpdateDiscount(ctx context.Context, shopDomain, platformID string, rule *models.DiscountRule, configBlob string) error {
	variables := map[string]any{
		"id": platformID,
		"discount": map[string]any{
			"title": rule.Title,
		},
	}

	var updatePayload struct {
		DiscountAutomaticAppUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"discountAutomaticAppUpdate"`
	}
	if err := c.do(ctx, shopDomain, updateDiscountMutation, variables, &updatePayload); err != nil {
		return err
	}
	if err := firstUserError(updatePayload.DiscountAutomaticAppUpdate.UserErrors); err != nil {
		return fmt.Errorf("discount update rejected: %w", err)
	}

	metafieldVars := map[string]any{
		"metafields": []map[string]any{
			{
				"ownerId":   platformID,
				"namespace": c.cfg.MetafieldNamespace,
				"key":       c.cfg.MetafieldKey,
				"type":      "json",
				"value":     configBlob,
			},
		},
	}
	var metafieldPayload struct {
		MetafieldsSet struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := c.do(ctx, shopDomain, metafieldsSetMutation, metafieldVars, &metafieldPayload); err != nil {
		return err
	}
	if err := firstUserError(metafieldPayload.MetafieldsSet.UserErrors); err != nil {
		return fmt.Errorf("metafield write rejected: %w", err)
	}
	return nil
}

const activateDiscountMutation = `
mutation discountActivate($id: ID!) {
  discountAutomaticActivate(id: $id) {
    userErrors { field message }
  }
}`

// ActivateDiscount re-enables a previously deactivated platform discount.
func (c *Client) ActivateDiscount(ctx context.Context, shopDomain, platformID string) error {
	var payload struct {
		DiscountAutomaticActivate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"discountAutomaticActivate"`
	}
	if err := c.do(ctx, shopDomain, activateDiscountMutation, map[string]any{"id": platformID}, &payload); err != nil {
		return err
	}
	if err := firstUserError(payload.DiscountAutomaticActivate.UserErrors); err != nil {
		return fmt.Errorf("discount activate rejected: %w", err)
	}
	return nil
}

const deactivateDiscountMutation = `
mutation discountDeactivate($id: ID!) {
  discountAutomaticDeactivate(id: $id) {
    userErrors { field message }
  }
}`

// DeactivateDiscount pauses the platform discount without deleting it.
func (c *Client) DeactivateDiscount(ctx context.Context, shopDomain, platformID string) error {
	var payload struct {
		DiscountAutomaticDeactivate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"discountAutomaticDeactivate"`
	}
	if err := c.do(ctx, shopDomain, deactivateDiscountMutation, map[string]any{"id": platformID}, &payload); err != nil {
		return err
	}
	if err := firstUserError(payload.DiscountAutomaticDeactivate.UserErrors); err != nil {
		return fmt.Errorf("discount deactivate rejected: %w", err)
	}
	return nil
}

const deleteDiscountMutation = `
mutation discountDelete($id: ID!) {
  discountAutomaticDelete(id: $id) {
    userErrors { field message }
  }
}`

// DeleteDiscount removes the platform discount object.
func (c *Client) DeleteDiscount(ctx context.Context, shopDomain, platformID string) error {
	var payload struct {
		DiscountAutomaticDelete struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"discountAutomaticDelete"`
	}
	if err := c.do(ctx, shopDomain, deleteDiscountMutation, map[string]any{"id": platformID}, &payload); err != nil {
		return err
	}
	if err := firstUserError(payload.DiscountAutomaticDelete.UserErrors); err != nil {
		return fmt.Errorf("discount delete rejected: %w", err)
	}
	return nil
}

const collectionProductsQuery = `
query collectionProducts($id: ID!, $first: Int!, $after: String) {
  collection(id: $id) {
    products(first: $first, after: $after) {
      nodes { id }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

// CollectionProductIDs pages through the collection's products and
// returns their ids. An unknown collection yields empty membership.
func (c *Client) CollectionProductIDs(ctx context.Context, shopDomain, collectionID string) ([]string, error) {
	var productIDs []string
	var after *string

	for {
		variables := map[string]any{
			"id":    collectionGID(collectionID),
			"first": c.pageLimit,
		}
		if after != nil {
			variables["after"] = *after
		}

		var payload struct {
			Collection *struct {
				Products struct {
					Nodes []struct {
						ID string `json:"id"`
					} `json:"nodes"`
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
				} `json:"products"`
			} `json:"collection"`
		}
		if err := c.do(ctx, shopDomain, collectionProductsQuery, variables, &payload); err != nil {
			return nil, err
		}
		if payload.Collection == nil {
			if c.logg != nil {
				lctx := c.logg.WithField(ctx, "collection_id", collectionID)
				c.logg.Warn(lctx, "collection not found, treating membership as empty")
			}
			return nil, nil
		}

		for _, node := range payload.Collection.Products.Nodes {
			productIDs = append(productIDs, node.ID)
		}
		if !payload.Collection.Products.PageInfo.HasNextPage {
			return productIDs, nil
		}
		cursor := payload.Collection.Products.PageInfo.EndCursor
		after = &cursor
	}
}

func collectionGID(collectionID string) string {
	if strings.HasPrefix(collectionID, "gid://") {
		return collectionID
	}
	return collectionGIDBase + collectionID
}
