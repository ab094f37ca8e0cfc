package main

import "testing"

func TestHumanizeLabel(t *testing.T) {
	cases := map[string]string{
		"pothole-1":      "Pothole 1",
		"street_light":   "Street Light",
		"  ":             "-",
		"garbage":        "Garbage",
		"water-leak-two": "Water Leak Two",
	}
	for input, want := range cases {
		if got := humanizeLabel(input); got != want {
			t.Errorf("humanizeLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatPhotoSize(t *testing.T) {
	if got := formatPhotoSize(512); got != "512 B" {
		t.Errorf("unexpected size rendering %q", got)
	}
	if got := formatPhotoSize(2048); got != "2.0 KiB" {
		t.Errorf("unexpected size rendering %q", got)
	}
	if got := formatPhotoSize(3 << 20); got != "3.0 MiB" {
		t.Errorf("unexpected size rendering %q", got)
	}
}
