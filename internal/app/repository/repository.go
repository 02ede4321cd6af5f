package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"croissants/internal/app/ds"
)

// Сколько байт тела ошибки читаем для сообщения
const maxErrorBody = 4 << 10

var ErrMalformedResponse = errors.New("malformed response")

// APIError — ответ сервера со статусом вне 2xx.
// Сервер является источником истины по зданиям и этажам, поэтому его отказ
// возвращается вызывающему как обычная ошибка.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server responded %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: server responded %d: %s", e.Op, e.StatusCode, e.Message)
}

// Repository — клиент удалённого API круассанов
type Repository struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) (*Repository, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}

	return &Repository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Получить каталог зданий
func (r *Repository) GetBuildings(ctx context.Context) ([]ds.Building, error) {
	var resp ds.BuildingsResponse
	if err := r.do(ctx, opListBuildings, http.MethodGet, "/buildings", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Buildings == nil {
		return nil, fmt.Errorf("%s: %w: missing buildings", opListBuildings, ErrMalformedResponse)
	}
	return resp.Buildings, nil
}

// Получить текущие заявки
func (r *Repository) GetRequests(ctx context.Context) ([]ds.CroissantRequest, error) {
	var resp ds.RequestsResponse
	if err := r.do(ctx, opListRequests, http.MethodGet, "/croissants", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Requests == nil {
		return nil, fmt.Errorf("%s: %w: missing requests", opListRequests, ErrMalformedResponse)
	}
	return resp.Requests, nil
}

// Создать заявку, возвращает созданную запись
func (r *Repository) CreateRequest(ctx context.Context, req ds.NewCroissantRequest) (*ds.CroissantRequest, error) {
	var created ds.CroissantRequest
	if err := r.do(ctx, opCreateRequest, http.MethodPost, "/croissants", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Удалить заявку. Тело ответа не используется
func (r *Repository) DeleteRequest(ctx context.Context, id int64) error {
	return r.do(ctx, opDeleteRequest, http.MethodDelete, fmt.Sprintf("/croissants/%d", id), nil, nil)
}

func (r *Repository) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	start := time.Now()
	err := r.roundTrip(ctx, op, method, path, in, out)
	observe(op, err, time.Since(start))
	return err
}

func (r *Repository) roundTrip(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(bodyBytes)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}

// errorMessage достаёт текст ошибки из JSON-тела ({"message"}, {"error"}, {"detail"}),
// иначе возвращает тело как есть
func errorMessage(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}
