package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/youtube/v3"
)

// statusResumeIncomplete is the 308 a resumable session returns for every
// non-final chunk.
const statusResumeIncomplete = 308

// Progress reports bytes acknowledged by the server.
type Progress struct {
	Sent  int64
	Total int64
}

// Fraction returns Sent/Total in [0,1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Sent) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

type session struct {
	client    *http.Client
	uri       string
	file      *os.File
	size      int64
	chunkSize int64
}

// startSession posts the video resource and returns the session URI from the
// Location header.
func startSession(ctx context.Context, client *http.Client, endpoint string, video *youtube.Video, size int64) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}
	q := u.Query()
	q.Set("uploadType", "resumable")
	q.Set("part", "snippet,status")
	q.Set("notifySubscribers", "false")
	u.RawQuery = q.Encode()

	body, err := json.Marshal(video)
	if err != nil {
		return "", fmt.Errorf("encode video resource: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/*")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("start upload session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", responseError("start upload session", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("start upload session: response has no Location header")
	}
	return location, nil
}

// nextChunk sends the chunk starting at offset. It returns the server's new
// offset, or the finished video resource on the terminal response. Once every
// byte is acknowledged without a final response, it asks for the session
// status with an empty "bytes */size" request instead.
func (s *session) nextChunk(ctx context.Context, offset int64) (int64, *youtube.Video, error) {
	length := min(s.chunkSize, s.size-offset)
	var (
		req *http.Request
		err error
	)
	if length <= 0 {
		req, err = http.NewRequestWithContext(ctx, http.MethodPut, s.uri, http.NoBody)
		if err != nil {
			return offset, nil, fmt.Errorf("build status request: %w", err)
		}
		req.ContentLength = 0
		req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", s.size))
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPut, s.uri, io.NewSectionReader(s.file, offset, length))
		if err != nil {
			return offset, nil, fmt.Errorf("build chunk request: %w", err)
		}
		req.ContentLength = length
		req.Header.Set("Content-Type", "video/*")
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, s.size))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return offset, nil, fmt.Errorf("send chunk at %d: %w", offset, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var video youtube.Video
		if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
			return offset, nil, fmt.Errorf("decode upload response: %w", err)
		}
		if video.Id == "" {
			return offset, nil, errors.New("upload response has no video id")
		}
		return s.size, &video, nil
	case statusResumeIncomplete:
		_, _ = io.Copy(io.Discard, resp.Body)
		next, err := parseRange(resp.Header.Get("Range"))
		if err != nil {
			return offset, nil, err
		}
		return next, nil, nil
	default:
		return offset, nil, responseError("send chunk", resp)
	}
}

// parseRange converts "bytes=0-1048575" into the next offset to send. A
// missing header means the server holds nothing yet.
func parseRange(header string) (int64, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, fmt.Errorf("unexpected Range header %q", header)
	}
	_, last, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, fmt.Errorf("unexpected Range header %q", header)
	}
	end, err := strconv.ParseInt(strings.TrimSpace(last), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected Range header %q: %w", header, err)
	}
	return end + 1, nil
}

func responseError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	detail := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
		detail = apiErr.Error.Message
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, detail)
}
