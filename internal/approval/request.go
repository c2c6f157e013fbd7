package approval

import "errors"

// Status is the lifecycle state of an approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	// ErrAlreadyResolved is returned when transitioning a request that is no
	// longer pending.
	ErrAlreadyResolved = errors.New("approval request already resolved")
	// ErrInvalidStatus is returned for a transition target other than
	// approved or rejected.
	ErrInvalidStatus = errors.New("invalid approval status")
)

// Snapshot is the metadata copied into a request when it is created.
type Snapshot struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
}

// Fields holds a partial metadata edit. Empty values are left unchanged.
type Fields struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	ThumbnailPath string
}

// IsZero reports whether the edit would change nothing.
func (f Fields) IsZero() bool {
	return f.Title == "" && f.Description == "" && len(f.Tags) == 0 && f.CategoryID == "" && f.ThumbnailPath == ""
}

// Request is one persisted approval record. The JSON shape is the on-disk
// format of pending_requests.json.
type Request struct {
	ID            string   `json:"request_id"`
	VideoPath     string   `json:"video_path"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	CategoryID    string   `json:"category_id"`
	ThumbnailPath string   `json:"thumbnail_path"`
	CreatedAt     string   `json:"created_at"`
	Status        Status   `json:"status"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
	ResolvedAt    string   `json:"resolved_at,omitempty"`
}

// Snapshot returns the request's persisted metadata.
func (r *Request) Snapshot() Snapshot {
	return Snapshot{
		Title:       r.Title,
		Description: r.Description,
		Tags:        append([]string(nil), r.Tags...),
		CategoryID:  r.CategoryID,
	}
}

// IsPending reports whether the request still awaits a decision.
func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

func (r *Request) clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Tags = append([]string(nil), r.Tags...)
	return &out
}
