package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode fixture jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestDownscaleLeavesSmallImageUnchangedInSize(t *testing.T) {
	raw := encodeTestJPEG(t, 200, 150)

	out, err := Downscale(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode downscaled output: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("expected dimensions unchanged at 200x150, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestDownscaleShrinksLargeImageToMaxLongEdge(t *testing.T) {
	raw := encodeTestJPEG(t, 2048, 1024)

	out, err := Downscale(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode downscaled output: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != maxLongEdge {
		t.Errorf("expected long edge scaled to %d, got %d", maxLongEdge, b.Dx())
	}
	if b.Dy() != maxLongEdge/2 {
		t.Errorf("expected proportional short edge %d, got %d", maxLongEdge/2, b.Dy())
	}
}

func TestDownscaleRejectsUndecodableBytes(t *testing.T) {
	if _, err := Downscale([]byte("not an image")); err == nil {
		t.Error("expected an error decoding garbage bytes")
	}
}

func TestParseVisionJSONValidPayload(t *testing.T) {
	body := `{"success": true, "menu_items": [{"original_name": "牛肉麵", "translated_name": "Beef Noodle Soup", "price": 120}]}`

	resp, err := ParseVisionJSON(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if len(resp.MenuItems) != 1 || resp.MenuItems[0].OriginalName != "牛肉麵" {
		t.Errorf("unexpected menu items: %+v", resp.MenuItems)
	}
}

func TestParseVisionJSONInvalidPayload(t *testing.T) {
	if _, err := ParseVisionJSON(strings.NewReader("not json")); err == nil {
		t.Error("expected an error parsing invalid JSON")
	}
}
