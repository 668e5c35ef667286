package ingest

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// Dimensions decodes only the image header to report its size.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
