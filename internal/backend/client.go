package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/moodkit/moodbot/internal/domain"
	"github.com/moodkit/moodbot/internal/ports"
)

// Имена операций, используемые в ошибках, логах и метриках.
const (
	OpFetchAllUsers    = "fetchAllUsers"
	OpFetchUserBySlug  = "fetchUserBySlug"
	OpCreateUser       = "createUser"
	OpCreateMood       = "createMood"
	OpCreateSnippet    = "createSnippet"
	OpFetchMoods       = "fetchMoods"
	OpFetchAverages    = "fetchAverages"
	OpFetchSnippets    = "fetchSnippets"
	defaultHTTPTimeout = 30 * time.Second
)

// Client — клиент для взаимодействия с REST API дневника настроения.
// Клиент не хранит состояние и безопасен для одновременного использования.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

var _ ports.Backend = (*Client)(nil)

// Option — функциональная опция для настройки Client.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (например, в тестах).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout устанавливает общий таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger устанавливает логгер клиента.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient создает новый экземпляр Client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAllUsers возвращает всех пользователей бэкенда.
func (c *Client) FetchAllUsers(ctx context.Context) ([]domain.BackendUser, error) {
	var dtos []userDTO
	if err := c.get(ctx, OpFetchAllUsers, "/users", nil, &dtos); err != nil {
		return nil, err
	}
	return usersToDomain(dtos), nil
}

// FetchUsersBySlug возвращает пользователей, у которых slug совпадает с идентификатором платформы.
func (c *Client) FetchUsersBySlug(ctx context.Context, slug string) ([]domain.BackendUser, error) {
	var dtos []userDTO
	q := url.Values{"slug": {slug}}
	if err := c.get(ctx, OpFetchUserBySlug, "/users", q, &dtos); err != nil {
		return nil, err
	}
	return usersToDomain(dtos), nil
}

// CreateUser создает пользователя. Тело ответа не используется.
func (c *Client) CreateUser(ctx context.Context, slug, name, email string) error {
	form := url.Values{
		"slug":  {slug},
		"name":  {name},
		"email": {email},
	}
	_, err := c.do(ctx, OpCreateUser, http.MethodPost, "/users", nil, form, nil)
	return err
}

// CreateMood записывает настроение за день, к которому относится timestamp.
func (c *Client) CreateMood(ctx context.Context, userID, timestamp int64, label string, value int) (domain.Ack, error) {
	form := url.Values{
		"timestamp": {strconv.FormatInt(domain.DayAlign(timestamp), 10)},
		"label":     {label},
		"value":     {strconv.Itoa(value)},
		"user_id":   {strconv.FormatInt(userID, 10)},
	}
	return c.create(ctx, OpCreateMood, "/moods", form)
}

// CreateSnippet записывает заметку за день, к которому относится timestamp.
func (c *Client) CreateSnippet(ctx context.Context, userID, timestamp int64, content string) (domain.Ack, error) {
	form := url.Values{
		"timestamp": {strconv.FormatInt(domain.DayAlign(timestamp), 10)},
		"content":   {content},
		"user_id":   {strconv.FormatInt(userID, 10)},
	}
	return c.create(ctx, OpCreateSnippet, "/snippets", form)
}

// FetchMoods возвращает записи настроения за период [start, end].
func (c *Client) FetchMoods(ctx context.Context, userID, start, end int64) ([]domain.MoodEntry, error) {
	var dtos []moodDTO
	if err := c.get(ctx, OpFetchMoods, "/moods", rangeQuery(userID, start, end), &dtos); err != nil {
		return nil, err
	}
	moods := make([]domain.MoodEntry, 0, len(dtos))
	for _, d := range dtos {
		moods = append(moods, d.toDomain())
	}
	return moods, nil
}

// FetchAverages возвращает разнородный список агрегатов за период [start, end].
func (c *Client) FetchAverages(ctx context.Context, userID, start, end int64) ([]domain.Average, error) {
	var raw []json.RawMessage
	if err := c.get(ctx, OpFetchAverages, "/average", rangeQuery(userID, start, end), &raw); err != nil {
		return nil, err
	}
	averages, err := decodeAverages(raw)
	if err != nil {
		return nil, &Error{Op: OpFetchAverages, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}
	return averages, nil
}

// FetchSnippets возвращает заметки за период [start, end].
func (c *Client) FetchSnippets(ctx context.Context, userID, start, end int64) ([]domain.Snippet, error) {
	var dtos []snippetDTO
	if err := c.get(ctx, OpFetchSnippets, "/snippets", rangeQuery(userID, start, end), &dtos); err != nil {
		return nil, err
	}
	snippets := make([]domain.Snippet, 0, len(dtos))
	for _, d := range dtos {
		snippets = append(snippets, d.toDomain())
	}
	return snippets, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	_, err := c.do(ctx, op, http.MethodGet, path, query, nil, out)
	return err
}

// create отправляет форму и разбирает подтверждение.
// Ответ 409 Conflict трактуется как "запись уже существует", а не как ошибка.
func (c *Client) create(ctx context.Context, op, path string, form url.Values) (domain.Ack, error) {
	var ack ackDTO
	status, err := c.do(ctx, op, http.MethodPost, path, nil, form, &ack)
	if err != nil {
		if status == http.StatusConflict {
			return domain.Ack{StatusCode: strconv.Itoa(status)}, nil
		}
		return domain.Ack{}, err
	}
	return domain.Ack{StatusCode: string(ack.StatusCode), Message: ack.Message}, nil
}

// do выполняет один запрос и, если out != nil, декодирует JSON-ответ.
// Возвращает код ответа (0, если ответ не получен).
func (c *Client) do(ctx context.Context, op, method, path string, query, form url.Values, out any) (int, error) {
	started := time.Now()
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, &Error{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observe(op, 0, started)
		return 0, &Error{Op: op, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()
	observe(op, resp.StatusCode, started)

	c.log.DebugContext(ctx, "backend request completed",
		slog.String("operation", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Тело читаем ограниченно, только для диагностики.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, strings.TrimSpace(string(snippet))),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %v", ErrMalformedPayload, err),
		}
	}
	return resp.StatusCode, nil
}

func rangeQuery(userID, start, end int64) url.Values {
	return url.Values{
		"start_date": {strconv.FormatInt(start, 10)},
		"end_date":   {strconv.FormatInt(end, 10)},
		"user_id":    {strconv.FormatInt(userID, 10)},
	}
}

func usersToDomain(dtos []userDTO) []domain.BackendUser {
	users := make([]domain.BackendUser, 0, len(dtos))
	for _, d := range dtos {
		users = append(users, d.toDomain())
	}
	return users
}
