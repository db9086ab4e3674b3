// Package outlineapi implements model.RemoteGateway against an
// Outline-shaped JSON/REST API over net/http. It is the one ambient
// concern the corpus itself leaves on the standard library: no
// third-party HTTP client appears anywhere in the example pack.
package outlineapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eykd/outlinesync/internal/model"
)

// pageSize is the page size requested from documents.list; the contract
// only requires following pagination until a short page comes back, so
// any reasonably large size satisfies it.
const pageSize = 100

// Gateway talks to a single Outline-compatible server as one bearer-token
// identity.
type Gateway struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// New returns a Gateway with a sane default client timeout. Callers that
// need a different timeout or transport can set Client directly.
func New(baseURL, token string) *Gateway {
	return &Gateway{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *Gateway) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return http.DefaultClient
}

// post issues a single bearer-authenticated JSON POST and decodes the
// response body into out. Any transport failure or non-2xx response is
// returned as a *model.TransportError so callers can apply the
// per-operation-failure policy uniformly.
func (g *Gateway) post(ctx context.Context, op string, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.Token)

	resp, err := g.client().Do(req)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.TransportError{Op: op, Err: fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	return nil
}

type collectionsListResponse struct {
	Data []wireCollection `json:"data"`
}

type wireCollection struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URLID string `json:"urlId"`
}

// ListCollections calls POST /api/collections.list.
func (g *Gateway) ListCollections(ctx context.Context) ([]model.Collection, error) {
	var resp collectionsListResponse
	if err := g.post(ctx, "listCollections", "/api/collections.list", map[string]any{}, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Collection, 0, len(resp.Data))
	for _, c := range resp.Data {
		out = append(out, model.Collection{ID: c.ID, Name: c.Name, URLID: c.URLID})
	}
	return out, nil
}

type documentsListResponse struct {
	Data []wireDocument `json:"data"`
}

type wireDocument struct {
	ID        string    `json:"id"`
	URLID     string    `json:"urlId"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	ParentID  string    `json:"parentDocumentId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d wireDocument) toModel() model.RemoteDoc {
	return model.RemoteDoc{
		ID:        d.ID,
		ShortID:   d.URLID,
		Title:     d.Title,
		Text:      d.Text,
		ParentID:  d.ParentID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ListDocuments calls POST /api/documents.list repeatedly, advancing
// offset by pageSize, until a page shorter than pageSize comes back.
func (g *Gateway) ListDocuments(ctx context.Context, collectionID string) ([]model.RemoteDoc, error) {
	var out []model.RemoteDoc
	offset := 0
	for {
		var resp documentsListResponse
		reqBody := map[string]any{
			"collectionId": collectionID,
			"limit":        pageSize,
			"offset":       offset,
		}
		if err := g.post(ctx, "listDocuments", "/api/documents.list", reqBody, &resp); err != nil {
			return nil, err
		}
		for _, d := range resp.Data {
			out = append(out, d.toModel())
		}
		if len(resp.Data) < pageSize {
			break
		}
		offset += pageSize
	}
	return out, nil
}

type documentResponse struct {
	Data wireDocument `json:"data"`
}

// CreateDocument calls POST /api/documents.create.
func (g *Gateway) CreateDocument(ctx context.Context, collectionID, title, text, parentID string) (model.RemoteDoc, error) {
	body := map[string]any{
		"collectionId": collectionID,
		"title":        title,
		"text":         text,
		"publish":      true,
	}
	if parentID != "" {
		body["parentDocumentId"] = parentID
	}
	var resp documentResponse
	if err := g.post(ctx, "createDocument", "/api/documents.create", body, &resp); err != nil {
		return model.RemoteDoc{}, err
	}
	return resp.Data.toModel(), nil
}

// UpdateDocument calls POST /api/documents.update. Only the non-nil
// fields among title/text/parentID are sent, matching the partial-update
// contract the push engine relies on (moves send title+parentID, body
// edits send title+text).
func (g *Gateway) UpdateDocument(ctx context.Context, id string, title, text *string, parentID *string) (model.RemoteDoc, error) {
	body := map[string]any{"id": id}
	if title != nil {
		body["title"] = *title
	}
	if text != nil {
		body["text"] = *text
	}
	if parentID != nil {
		body["parentDocumentId"] = *parentID
	}
	var resp documentResponse
	if err := g.post(ctx, "updateDocument", "/api/documents.update", body, &resp); err != nil {
		return model.RemoteDoc{}, err
	}
	return resp.Data.toModel(), nil
}

// DeleteDocument calls POST /api/documents.delete.
func (g *Gateway) DeleteDocument(ctx context.Context, id string) error {
	return g.post(ctx, "deleteDocument", "/api/documents.delete", map[string]any{"id": id}, nil)
}
