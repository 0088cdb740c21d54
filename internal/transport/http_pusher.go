package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dreamware/torua/internal/membership"
)

// wireEntryDoc and wireMessageDoc are the JSON encoding of a membership
// wire message, adapted from the teacher's PostJSON/GetJSON helpers for a
// membership-specific payload shape rather than a generic any.
type wireEntryDoc struct {
	Services               uint32 `json:"services"`
	ServerID               uint64 `json:"server_id"`
	ServiceLocator         string `json:"service_locator"`
	Status                 int    `json:"status"`
	ExpectedReadMBytesPerSec uint32 `json:"expected_read_mbytes_per_sec"`
}

type wireMessageDoc struct {
	Entries       []wireEntryDoc `json:"entries"`
	VersionNumber uint64         `json:"version_number"`
	Type          int            `json:"type"`
}

func toDoc(msg membership.WireMessage) wireMessageDoc {
	doc := wireMessageDoc{
		Entries:       make([]wireEntryDoc, len(msg.Entries)),
		VersionNumber: msg.VersionNumber,
		Type:          int(msg.Type),
	}
	for i, e := range msg.Entries {
		doc.Entries[i] = wireEntryDoc{
			Services:                 uint32(e.Services),
			ServerID:                 e.ServerID,
			ServiceLocator:           e.ServiceLocator,
			Status:                   int(e.Status),
			ExpectedReadMBytesPerSec: e.ExpectedReadMBytesPerSec,
		}
	}
	return doc
}

// Resolver maps a subscriber's ServerId to the address the dispatcher
// should push to. Typically backed by Registry.At(id).Locator.
type Resolver func(id membership.ServerId) (addr string, err error)

// HTTPPusher implements membership.Pusher over plain HTTP/JSON, in the same
// style as the teacher's cluster.PostJSON helper: POST the wire message to
// "<addr>/membership/update" and interpret the response status code.
//
// Status conventions:
//   - 200 OK: the subscriber accepted the update (PushOK).
//   - 410 Gone: the subscriber reports it is no longer UP (PushNotUp).
//   - anything else: treated as an RPC error; the dispatcher absorbs it and
//     retries on the next scan.
type HTTPPusher struct {
	Client   *http.Client
	Resolve  Resolver
}

// NewHTTPPusher returns an HTTPPusher with a sane default client timeout,
// matching the teacher's package-level httpClient convention.
func NewHTTPPusher(resolve Resolver) *HTTPPusher {
	return &HTTPPusher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		Resolve: resolve,
	}
}

// Push implements membership.Pusher.
func (p *HTTPPusher) Push(ctx context.Context, id membership.ServerId, msg membership.WireMessage) (membership.PushResult, error) {
	addr, err := p.Resolve(id)
	if err != nil {
		return membership.PushOK, fmt.Errorf("resolve subscriber %s: %w", id, err)
	}

	body, err := json.Marshal(toDoc(msg))
	if err != nil {
		return membership.PushOK, fmt.Errorf("marshal wire message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/membership/update", bytes.NewReader(body))
	if err != nil {
		return membership.PushOK, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return membership.PushOK, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return membership.PushOK, nil
	case http.StatusGone:
		return membership.PushNotUp, nil
	default:
		return membership.PushOK, fmt.Errorf("push to %s: unexpected status %d", addr, resp.StatusCode)
	}
}
