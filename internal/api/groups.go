package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/costbuddy/costbuddy/internal/models"
)

// ListGroups returns the caller's groups. Member lists are not populated;
// use GetGroup for details.
func (c *Client) ListGroups(ctx context.Context) ([]models.Group, error) {
	var out []models.Group
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/groups/",
		route:  "/groups/",
		auth:   true,
		out:    &out,
	})
	return out, err
}

// GetGroup returns one group with its member list.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var out models.Group
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/groups/" + groupID,
		route:  "/groups/{id}",
		auth:   true,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateGroup creates a group with the given name, ISO currency code and
// icon tag.
func (c *Client) CreateGroup(ctx context.Context, name, currency, icon string) (*models.Group, error) {
	var out models.Group
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/groups/",
		route:  "/groups/",
		body:   map[string]string{"name": name, "currency": currency, "icon": icon},
		auth:   true,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGroup deletes a group.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/groups/" + groupID,
		route:  "/groups/{id}",
		auth:   true,
	})
}

// emailRe matches entries that look like an email address; everything else
// is treated as a plain member name (a ghost member).
var emailRe = regexp.MustCompile(`.+@.+\..+`)

// AddMember adds one member to a group. The entry is classified as an
// email (invites a registered account) or a name (creates a ghost member).
func (c *Client) AddMember(ctx context.Context, groupID, entry string) error {
	body := map[string]string{"name": entry}
	if emailRe.MatchString(entry) {
		body = map[string]string{"email": entry}
	}
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   fmt.Sprintf("/groups/%s/members", groupID),
		route:  "/groups/{id}/members",
		body:   body,
		auth:   true,
	})
}

// AddMembers adds each entry independently, best-effort. Individual
// failures are logged and counted, never aborting the batch. It returns
// the number of entries that were added.
func (c *Client) AddMembers(ctx context.Context, groupID string, entries []string) int {
	added := 0
	for _, entry := range entries {
		if err := c.AddMember(ctx, groupID, entry); err != nil {
			slog.Warn("add member failed", "group_id", groupID, "entry", entry, "error", err)
			continue
		}
		added++
	}
	return added
}

// RemoveMember removes a member from a group.
func (c *Client) RemoveMember(ctx context.Context, groupID string, memberID int) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/groups/%s/members/%d", groupID, memberID),
		route:  "/groups/{id}/members/{memberId}",
		auth:   true,
	})
}

// GetBalances returns the group's balance map keyed by parsed BalanceKey.
// Keys that fail to parse are dropped with a warning; the backend owns the
// key format and a malformed key carries no usable identity.
func (c *Client) GetBalances(ctx context.Context, groupID string) (map[models.BalanceKey]float64, error) {
	var out struct {
		Balances map[string]float64 `json:"balances"`
	}
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   fmt.Sprintf("/groups/%s/balances", groupID),
		route:  "/groups/{id}/balances",
		auth:   true,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}

	balances := make(map[models.BalanceKey]float64, len(out.Balances))
	for raw, amount := range out.Balances {
		key, err := models.ParseBalanceKey(raw)
		if err != nil {
			slog.Warn("skipping malformed balance key", "group_id", groupID, "key", raw, "error", err)
			continue
		}
		balances[key] = amount
	}
	return balances, nil
}
