package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedImage is returned before upload when the file is not an allowed image type.
var ErrUnsupportedImage = errors.New("only JPEG, JPG, PNG and HEIC images are allowed")

var allowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/heic"}

// Multipart is a pre-encoded multipart/form-data body.
type Multipart struct {
	data        []byte
	contentType string
}

// CheckImage sniffs data and returns its MIME type, or ErrUnsupportedImage.
func CheckImage(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return mt.String(), nil
		}
	}
	return "", fmt.Errorf("%w (got %s)", ErrUnsupportedImage, mt.String())
}

// UploadImage replaces the profile image and returns the new avatar URL.
func (c *Client) UploadImage(ctx context.Context, token, filename string, data []byte) (string, error) {
	if _, err := CheckImage(data); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var out struct {
		Image    string `json:"image"`
		ImageURL string `json:"imageUrl"`
	}
	err = c.Do(ctx, token, Request{
		Method: http.MethodPatch,
		Path:   PathUploadImage,
		Body:   &Multipart{data: buf.Bytes(), contentType: w.FormDataContentType()},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ImageURL != "" {
		return out.ImageURL, nil
	}
	return out.Image, nil
}

// DeleteImage removes the profile image.
func (c *Client) DeleteImage(ctx context.Context, token string) error {
	return c.Do(ctx, token, Request{Method: http.MethodDelete, Path: PathDeleteImage}, nil)
}
