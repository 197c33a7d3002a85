package submission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"video-dedup/internal/fingerprint"
	"video-dedup/internal/platform/metrics"
	"video-dedup/internal/sender"
)

const (
	// DefaultMaxVideoBytes caps an uploaded video body.
	DefaultMaxVideoBytes = 50 << 20
	// DefaultDecodeTimeout bounds a single submission's decode.
	DefaultDecodeTimeout = 2 * time.Minute

	headerSenderName   = "X-Sender-Name"
	headerSenderHandle = "X-Sender-Handle"
)

// Handler exposes the dedup service over HTTP using go-chi.
type Handler struct {
	svc           *Service
	log           *slog.Logger
	metrics       *metrics.Metrics
	maxBytes      int64
	decodeTimeout time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxVideoBytes sets the upload limit. Non-positive values are ignored.
func WithMaxVideoBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithDecodeTimeout sets the per-submission timeout. Non-positive values are ignored.
func WithDecodeTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.decodeTimeout = d
		}
	}
}

// NewHandler returns a Handler for svc. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:           svc,
		log:           log,
		metrics:       m,
		maxBytes:      DefaultMaxVideoBytes,
		decodeTimeout: DefaultDecodeTimeout,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/start", h.Start)
	r.Route("/senders", func(r chi.Router) {
		r.Get("/unsafe", h.ListUnsafe)
		r.Post("/{sender_id}/messages", h.PostMessage)
		r.Post("/{sender_id}/videos", h.PostVideo)
	})
	r.Get("/links/count", h.LinkCount)
	r.Get("/digests/{digest}", h.GetDigest)
	r.Post("/reset", h.Reset)
}

type messageRequest struct {
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	Text        string `json:"text"`
}

type messageResponse struct {
	Kind  TextKind `json:"kind"`
	Reply string   `json:"reply,omitempty"`
}

type videoResponse struct {
	SubmissionID   string           `json:"submission_id"`
	Verdict        VerdictKind      `json:"verdict"`
	Digest         string           `json:"digest,omitempty"`
	FirstSubmitter *sender.Identity `json:"first_submitter,omitempty"`
	Reply          string           `json:"reply"`
}

type unsafeResponse struct {
	Senders []string `json:"senders"`
	Reply   string   `json:"reply"`
}

type linksResponse struct {
	TotalLinks int    `json:"total_links"`
	Reply      string `json:"reply"`
}

type digestResponse struct {
	Digest         string          `json:"digest"`
	FirstSubmitter sender.Identity `json:"first_submitter"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// Start handles GET /start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, replyResponse{Reply: ReplyWelcome})
}

// PostMessage handles POST /senders/{sender_id}/messages.
// Body: { "display_name": "Alice", "handle": "alice", "text": "done" }.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "sender_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid message body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	who := identity(id, req.DisplayName, req.Handle)
	out := h.svc.HandleText(who, req.Text)
	if h.metrics != nil {
		switch out.Kind {
		case TextLink:
			h.metrics.IncLinks()
		case TextConfirmation:
			h.metrics.IncConfirmations()
		}
	}
	writeJSON(w, http.StatusOK, messageResponse{Kind: out.Kind, Reply: out.Reply})
}

// PostVideo handles POST /senders/{sender_id}/videos. The body is the raw
// video file; the sender's display name and handle come from the
// X-Sender-Name and X-Sender-Handle headers.
func (h *Handler) PostVideo(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "sender_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	who := identity(id, r.Header.Get(headerSenderName), r.Header.Get(headerSenderHandle))

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.log.Info("video rejected, too large",
				slog.String("sender_id", id),
				slog.Int64("limit", tooBig.Limit))
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		h.log.Debug("read video body failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.decodeTimeout)
	defer cancel()

	start := time.Now()
	v, err := h.svc.ResolveSubmission(ctx, who, data)
	subID := uuid.NewString()
	if err != nil {
		h.log.Error("resolve submission failed",
			slog.String("submission_id", subID),
			slog.String("sender_id", id),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, replyResponse{Reply: ReplyStoreFailed})
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveVerdict(string(v.Kind), time.Since(start))
	}

	resp := videoResponse{
		SubmissionID: subID,
		Verdict:      v.Kind,
		Digest:       v.Digest.String(),
		Reply:        VerdictReply(v),
	}
	if v.Kind == DuplicateOfOther || v.Kind == DuplicateOfSelf {
		first := v.FirstSubmitter
		resp.FirstSubmitter = &first
	}

	status := http.StatusOK
	switch v.Kind {
	case Accepted:
		status = http.StatusCreated
	case Failed:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// ListUnsafe handles GET /senders/unsafe.
func (h *Handler) ListUnsafe(w http.ResponseWriter, r *http.Request) {
	labels := slices.Collect(h.svc.ListUnsafeSenders())
	if labels == nil {
		labels = []string{}
	}
	writeJSON(w, http.StatusOK, unsafeResponse{Senders: labels, Reply: UnsafeListReply(labels)})
}

// LinkCount handles GET /links/count.
func (h *Handler) LinkCount(w http.ResponseWriter, r *http.Request) {
	n := h.svc.TotalLinksReceived()
	writeJSON(w, http.StatusOK, linksResponse{TotalLinks: n, Reply: TotalLinksReply(n)})
}

// GetDigest handles GET /digests/{digest}, where digest is the CID text form.
func (h *Handler) GetDigest(w http.ResponseWriter, r *http.Request) {
	d, err := fingerprint.ParseDigest(chi.URLParam(r, "digest"))
	if err != nil {
		h.log.Debug("invalid digest", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	e, ok := h.svc.Lookup(d)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, digestResponse{Digest: e.Digest.String(), FirstSubmitter: e.FirstSubmitter})
}

// Reset handles POST /reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetAll(r.Context()); err != nil {
		h.log.Error("reset failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, replyResponse{Reply: ReplyStoreFailed})
		return
	}
	if h.metrics != nil {
		h.metrics.IncResets()
	}
	writeJSON(w, http.StatusOK, replyResponse{Reply: ReplyReset})
}

// identity builds the sender identity for a request. Handles are stored
// without a leading "@".
func identity(id, displayName, handle string) sender.Identity {
	return sender.Identity{
		ID:          id,
		DisplayName: strings.TrimSpace(displayName),
		Handle:      strings.TrimPrefix(strings.TrimSpace(handle), "@"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
