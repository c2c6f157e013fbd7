package notifications_test

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"onemin/internal/config"
	"onemin/internal/notifications"
)

func approvalPayload(thumb string) notifications.Payload {
	return notifications.Payload{
		"requestID":   "ab12cd34",
		"title":       "I Tried The CRAZIEST Kickflip",
		"description": strings.Repeat("d", 600),
		"tags":        []string{"a", "b", "c", "d", "e", "f", "g"},
		"video":       "/videos/skate_day.mp4",
		"thumbnail":   thumb,
		"duration":    90.0,
		"resolution":  "1920x1080",
	}
}

func TestNewServiceReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if !notifications.IsNoop(svc) {
		t.Fatalf("expected noop service, got %s", svc.Name())
	}
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if delivered := notifications.NewNotifier(svc, nil).Notify(context.Background(), notifications.EventTest, nil); delivered {
		t.Fatal("noop notifier must not report delivery")
	}
}

func TestTelegramSendsPromptAndPhoto(t *testing.T) {
	thumb := filepath.Join(t.TempDir(), "thumbnail.jpg")
	if err := os.WriteFile(thumb, []byte("jpegdata"), 0o644); err != nil {
		t.Fatalf("write thumb: %v", err)
	}

	var (
		mu      sync.Mutex
		paths   []string
		message map[string]any
		photo   []byte
		caption string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := json.NewDecoder(r.Body).Decode(&message); err != nil {
				t.Errorf("decode message: %v", err)
			}
		case strings.HasSuffix(r.URL.Path, "/sendPhoto"):
			_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				t.Errorf("parse content type: %v", err)
				break
			}
			reader := multipart.NewReader(r.Body, params["boundary"])
			for {
				part, err := reader.NextPart()
				if err != nil {
					break
				}
				data, _ := io.ReadAll(part)
				switch part.FormName() {
				case "photo":
					photo = data
				case "caption":
					caption = string(data)
				}
			}
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.TelegramBotToken = "TOKEN"
	cfg.Notifications.TelegramChatID = "42"
	cfg.Notifications.TelegramBaseURL = server.URL

	notifier := notifications.NewNotifier(notifications.NewService(&cfg), nil)
	if !notifier.Notify(context.Background(), notifications.EventApprovalRequested, approvalPayload(thumb)) {
		t.Fatal("expected delivery")
	}
	if notifier.Transport() != "telegram" {
		t.Fatalf("unexpected transport %q", notifier.Transport())
	}

	if len(paths) != 2 || paths[0] != "/botTOKEN/sendMessage" || paths[1] != "/botTOKEN/sendPhoto" {
		t.Fatalf("unexpected call sequence %v", paths)
	}
	if message["chat_id"] != "42" || message["parse_mode"] != "Markdown" {
		t.Fatalf("unexpected message envelope %v", message)
	}
	text, _ := message["text"].(string)
	for _, want := range []string{"I Tried The CRAZIEST Kickflip", strings.Repeat("d", 500) + "...", "a, b, c, d, e...", "`skate_day.mp4`", "approve ab12cd34", "reject ab12cd34", "edit ab12cd34 title", "1.5 minutes"} {
		if !strings.Contains(text, want) {
			t.Fatalf("message missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, strings.Repeat("d", 501)) {
		t.Fatal("description was not truncated")
	}
	if string(photo) != "jpegdata" || !strings.Contains(caption, "ab12cd34") {
		t.Fatalf("unexpected photo upload %q caption %q", photo, caption)
	}
}

func TestTelegramFailureIsNotDelivered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.TelegramBotToken = "bad"
	cfg.Notifications.TelegramChatID = "1"
	cfg.Notifications.TelegramBaseURL = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if notifications.NewNotifier(svc, nil).Notify(context.Background(), notifications.EventTest, nil) {
		t.Fatal("expected delivery to be reported false")
	}
}

// telegramMessages records every sendMessage body.
func telegramMessages(t *testing.T, got *[]map[string]any) *config.Config {
	t.Helper()
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var message map[string]any
		if err := json.NewDecoder(r.Body).Decode(&message); err != nil {
			t.Errorf("decode message: %v", err)
		}
		mu.Lock()
		*got = append(*got, message)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)
	cfg := config.Default()
	cfg.Notifications.TelegramBotToken = "t"
	cfg.Notifications.TelegramChatID = "1"
	cfg.Notifications.TelegramBaseURL = server.URL
	return &cfg
}

func TestTelegramEscapesMarkdownInValues(t *testing.T) {
	var got []map[string]any
	svc := notifications.NewService(telegramMessages(t, &got))

	payload := approvalPayload("")
	payload["title"] = "my_first *kick* [flip]"
	payload["description"] = "see `notes`"
	payload["tags"] = []string{"snake_case"}
	payload["video"] = "/videos/odd`name.mp4"
	if err := svc.Publish(context.Background(), notifications.EventApprovalRequested, payload); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(got) != 1 || got[0]["parse_mode"] != "Markdown" {
		t.Fatalf("unexpected messages %v", got)
	}
	text, _ := got[0]["text"].(string)
	for _, want := range []string{`my\_first \*kick\* \[flip]`, "see \\`notes\\`", `snake\_case`, "`odd'name.mp4`"} {
		if !strings.Contains(text, want) {
			t.Fatalf("message missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramSendsErrorsAsPlainText(t *testing.T) {
	var got []map[string]any
	svc := notifications.NewService(telegramMessages(t, &got))

	payload := notifications.Payload{"context": "my_video.mp4", "error": "ffmpeg: [mp4 @ 0x1] *bad* atom"}
	if err := svc.Publish(context.Background(), notifications.EventError, payload); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one message, got %d", len(got))
	}
	if _, ok := got[0]["parse_mode"]; ok {
		t.Fatalf("error event must not set parse_mode: %v", got[0])
	}
	if text, _ := got[0]["text"].(string); !strings.Contains(text, "my_video.mp4: ffmpeg: [mp4 @ 0x1] *bad* atom") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestPhotoFailureStillCountsAsDelivered(t *testing.T) {
	thumb := filepath.Join(t.TempDir(), "thumbnail.jpg")
	if err := os.WriteFile(thumb, []byte("x"), 0o644); err != nil {
		t.Fatalf("write thumb: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendPhoto") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"photo too small"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.TelegramBotToken = "t"
	cfg.Notifications.TelegramChatID = "1"
	cfg.Notifications.TelegramBaseURL = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventApprovalRequested, approvalPayload(thumb))
	if !notifications.IsPartialDelivery(err) {
		t.Fatalf("expected partial delivery, got %v", err)
	}
	if !notifications.NewNotifier(svc, nil).Notify(context.Background(), notifications.EventApprovalRequested, approvalPayload(thumb)) {
		t.Fatal("expected partial delivery to count as delivered")
	}
}

type ntfyCapture struct {
	headers http.Header
	body    string
}

func ntfyServer(t *testing.T, got *ntfyCapture) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("ntfy expects POST, got %s", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		got.headers, got.body = r.Header.Clone(), string(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNtfyEventFormatting(t *testing.T) {
	cases := map[string]struct {
		event   notifications.Event
		payload notifications.Payload
		body    string
		headers map[string]string
	}{
		"upload completed": {
			event:   notifications.EventUploadCompleted,
			payload: notifications.Payload{"title": "Kickflip", "url": "https://youtube.com/watch?v=abc", "privacy": "unlisted"},
			body:    "✅ Uploaded: Kickflip\nhttps://youtube.com/watch?v=abc\nPrivacy: unlisted",
			headers: map[string]string{"Title": "onemin - Uploaded", "Tags": "onemin,upload,completed", "Priority": ""},
		},
		"error": {
			event:   notifications.EventError,
			payload: notifications.Payload{"context": "upload", "error": "quota exceeded"},
			body:    "❌ Error with upload: quota exceeded",
			headers: map[string]string{"Title": "onemin - Error", "Tags": "onemin,error,alert", "Priority": "high"},
		},
		"test": {
			event:   notifications.EventTest,
			body:    "🧪 Notification system test",
			headers: map[string]string{"Title": "onemin - Test", "Tags": "onemin,test", "Priority": "low"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var got ntfyCapture
			server := ntfyServer(t, &got)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := notifications.NewService(&cfg).Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish returned error: %v", err)
			}
			if got.body != tc.body {
				t.Fatalf("body = %q, want %q", got.body, tc.body)
			}
			for header, want := range tc.headers {
				if value := got.headers.Get(header); value != want {
					t.Fatalf("%s header = %q, want %q", header, value, want)
				}
			}
		})
	}
}

func TestNtfyAttachesThumbnail(t *testing.T) {
	thumb := filepath.Join(t.TempDir(), "thumbnail.jpg")
	if err := os.WriteFile(thumb, []byte("img"), 0o644); err != nil {
		t.Fatalf("write thumb: %v", err)
	}
	var methods []string
	var filename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPut {
			filename = r.Header.Get("Filename")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventApprovalRequested, approvalPayload(thumb)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if strings.Join(methods, ",") != "POST,PUT" || filename != "thumbnail.jpg" {
		t.Fatalf("unexpected ntfy calls %v filename %q", methods, filename)
	}
}

func TestFanoutSucceedsWhenOneTransportWorks(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	cfg := config.Default()
	cfg.Notifications.TelegramBotToken = "t"
	cfg.Notifications.TelegramChatID = "1"
	cfg.Notifications.TelegramBaseURL = broken.URL
	cfg.Notifications.NtfyTopic = ok.URL

	svc := notifications.NewService(&cfg)
	if svc.Name() != "telegram+ntfy" {
		t.Fatalf("unexpected transport name %q", svc.Name())
	}
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected fanout success, got %v", err)
	}
}
