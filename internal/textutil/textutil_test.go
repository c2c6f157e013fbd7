package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"My Video (final).MP4": "my_video_final_mp4",
		"   ":                  "unknown",
		"__--__":               "unknown",
		"clip-01":              "clip-01",
		"日本語 clip":             "clip",
	}
	for input, want := range cases {
		if got := SanitizeToken(input); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWorkDirName(t *testing.T) {
	got := WorkDirName("20260101T120000", "/tmp/in box/Trip Day 1.mov")
	if got != "20260101T120000-trip_day_1" {
		t.Fatalf("unexpected work dir name %q", got)
	}
}

func TestTitleFromFilename(t *testing.T) {
	if got := TitleFromFilename("/videos/my_first-skate.day.mp4"); got != "My First Skate Day" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := TitleFromFilename("/videos/.mp4"); got != "" {
		t.Fatalf("expected empty title, got %q", got)
	}
}

func TestOverlayText(t *testing.T) {
	if got := OverlayText("I tried the craziest kickflip ever", 4); got != "I TRIED THE CRAZIEST" {
		t.Fatalf("unexpected overlay %q", got)
	}
	if got := OverlayText("short", 4); got != "SHORT" {
		t.Fatalf("unexpected overlay %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
