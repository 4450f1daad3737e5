package evapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// GetProfile loads a stored EV profile. A 404 maps to domain.ErrNotFound.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := startSpan(ctx, "get_profile")
	defer span.End()

	var p domain.Profile
	if err := c.do(ctx, "get_profile", http.MethodGet, "/ev-profile/"+url.PathEscape(userID), nil, &p); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, transport("get profile", err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return &p, nil
}

// SaveProfile updates the profile, creating it when the backend has none.
func (c *Client) SaveProfile(ctx context.Context, p *domain.Profile) error {
	ctx, span := startSpan(ctx, "save_profile")
	defer span.End()

	err := c.do(ctx, "save_profile", http.MethodPut, "/ev-profile/"+url.PathEscape(p.UserID), p, nil)
	if isStatus(err, http.StatusNotFound) {
		err = c.do(ctx, "create_profile", http.MethodPost, "/ev-profile", p, nil)
	}
	if err != nil {
		return transport("save profile", err)
	}
	return nil
}
