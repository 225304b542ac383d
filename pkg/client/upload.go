package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

type uploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Msg      string `json:"msg"`
}

// UploadImage uploads an image as the multipart field "image" and returns its hosted URL
func (c *Client) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image is empty")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	req := &request{
		endpoint:    "upload_image",
		method:      http.MethodPost,
		path:        "/upload/image",
		body:        &buf,
		contentType: w.FormDataContentType(),
	}

	var resp uploadResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	if !resp.Success || resp.ImageURL == "" {
		msg := resp.Msg
		if msg == "" {
			msg = "no image URL returned"
		}
		return "", fmt.Errorf("image upload failed: %s", msg)
	}
	return resp.ImageURL, nil
}
