package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// LocationUpdate assigns a permitted clock-in point to a user
type LocationUpdate struct {
	Lat   float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng   float64 `json:"lng" validate:"gte=-180,lte=180"`
	Label string  `json:"label,omitempty"`
}

type messageResponse struct {
	Msg string `json:"msg"`
}

// SetLocation assigns a location to a user (admin only) and returns the service message
func (c *Client) SetLocation(ctx context.Context, userID string, loc LocationUpdate) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID is required")
	}
	if err := c.validate.Struct(loc); err != nil {
		return "", fmt.Errorf("invalid location: %w", err)
	}

	req, err := c.jsonRequest("set_location", http.MethodPut, "/location/set-location/"+url.PathEscape(userID), loc)
	if err != nil {
		return "", err
	}

	var resp messageResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.Msg, nil
}
