package utils

import (
	"testing"

	"github.com/auroramedia/gramflow/entity"
)

func TestMediaTypeFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/x.jpg", entity.MediaTypeImage},
		{"https://cdn.example.com/x.PNG", entity.MediaTypeImage},
		{"https://cdn.example.com/clip.mp4", entity.MediaTypeVideo},
		{"https://cdn.example.com/clip.MOV", entity.MediaTypeVideo},
		{"https://cdn.example.com/clip.m4v?sig=abc", entity.MediaTypeVideo},
		{"https://cdn.example.com/clip.webm", entity.MediaTypeVideo},
		{"https://cdn.example.com/noext", entity.MediaTypeImage},
	}
	for _, c := range cases {
		if got := MediaTypeFromURL(c.url); got != c.want {
			t.Errorf("MediaTypeFromURL(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestValidMediaURL(t *testing.T) {
	valid := []string{
		"https://cdn.example.com/x.jpg",
		"http://cdn.example.com/x.jpg",
	}
	for _, u := range valid {
		if !ValidMediaURL(u) {
			t.Errorf("expected %q to be valid", u)
		}
	}

	invalid := []string{
		"",
		"/uploads/x.jpg",
		"file:///tmp/x.jpg",
		"cdn.example.com/x.jpg",
	}
	for _, u := range invalid {
		if ValidMediaURL(u) {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

func TestAllowedUploadName(t *testing.T) {
	if !AllowedUploadName("photo.JPG") {
		t.Error("expected photo.JPG to be allowed")
	}
	if AllowedUploadName("script.exe") {
		t.Error("expected script.exe to be rejected")
	}
	if AllowedUploadName("noext") {
		t.Error("expected extensionless name to be rejected")
	}
}
