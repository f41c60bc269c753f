package assets_test

import (
	"testing"

	"encodeflow/internal/assets"
)

func TestDerivedFilenames(t *testing.T) {
	cases := []struct {
		root, suffix, video, image string
	}{
		{"clip.mov", "mobile", "clip_mobile.mp4", "clip_mobile.jpg"},
		{"holiday.final.avi", "hd", "holiday.final_hd.mp4", "holiday.final_hd.jpg"},
		{"noext", "small", "noext_small.mp4", "noext_small.jpg"},
	}
	for _, tc := range cases {
		if got := assets.RenditionFilename(tc.root, tc.suffix); got != tc.video {
			t.Fatalf("RenditionFilename(%q,%q) = %q want %q", tc.root, tc.suffix, got, tc.video)
		}
		if got := assets.ThumbnailFilename(tc.root, tc.suffix); got != tc.image {
			t.Fatalf("ThumbnailFilename(%q,%q) = %q want %q", tc.root, tc.suffix, got, tc.image)
		}
	}
}

func TestIsVideoContentType(t *testing.T) {
	for _, ct := range []string{"video/quicktime", "VIDEO/MP4", "video/MJ2", "application/vnd.ms-asf", "video/mp4; codecs=avc1"} {
		if !assets.IsVideoContentType(ct) {
			t.Fatalf("expected %q to be video", ct)
		}
	}
	for _, ct := range []string{"", "image/jpeg", "application/pdf", "video/webm"} {
		if assets.IsVideoContentType(ct) {
			t.Fatalf("expected %q not to be video", ct)
		}
	}
}

func TestParseStatus(t *testing.T) {
	status, err := assets.ParseStatus(" Started ")
	if err != nil || status != assets.StatusStarted {
		t.Fatalf("ParseStatus: %v %v", status, err)
	}
	if _, err := assets.ParseStatus("encoding_started"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	parent := int64(5)
	width := 120
	original := &assets.Asset{ID: 9, ParentID: &parent, Width: &width}
	clone := original.Clone()
	*clone.ParentID = 6
	*clone.Width = 640
	if *original.ParentID != 5 || *original.Width != 120 {
		t.Fatal("clone aliases pointer fields")
	}
}
