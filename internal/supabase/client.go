// Package supabase implements the log store over Supabase's PostgREST API.
//
// It talks to two tables:
//
//	users     (user_id, user_name, target_weight, current_weight)
//	food_logs (user_id, food_name, calorie, created_at default now())
//
// Requests carry the project key both as the apikey header and as a bearer
// token, which is what PostgREST expects for anon and service-role keys.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

const (
	restPrefix     = "/rest/v1"
	tableUsers     = "users"
	tableFoodLogs  = "food_logs"
	defaultTimeout = 10 * time.Second
)

// Client is a thin PostgREST client bound to one Supabase project.
type Client struct {
	http *resty.Client
}

// Option customizes the underlying resty client.
type Option func(*resty.Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

// New returns a client for the project at baseURL (e.g.
// https://xyz.supabase.co) authenticated with apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL+restPrefix).
		SetTimeout(defaultTimeout).
		SetHeader("apikey", apiKey).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	for _, o := range opts {
		o(rc)
	}
	return &Client{http: rc}
}

// Error is returned for non-2xx PostgREST responses.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
}

func asError(resp *resty.Response) error {
	e := &Error{Status: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), e); err != nil || e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode())
	}
	return e
}

type userRow struct {
	UserID        string  `json:"user_id"`
	UserName      string  `json:"user_name"`
	TargetWeight  float64 `json:"target_weight"`
	CurrentWeight float64 `json:"current_weight"`
}

// FindUser selects the user row by id, returning (nil, nil) when absent.
func (c *Client) FindUser(ctx context.Context, userID string) (*domain.User, error) {
	var rows []userRow
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":  "user_id,user_name,target_weight,current_weight",
			"user_id": "eq." + userID,
			"limit":   "1",
		}).
		SetResult(&rows).
		Get("/" + tableUsers)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, asError(resp)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &domain.User{
		UserID:        r.UserID,
		UserName:      r.UserName,
		TargetWeight:  r.TargetWeight,
		CurrentWeight: r.CurrentWeight,
	}, nil
}

// InsertUserIfAbsent upserts with ignore-duplicates on user_id. PostgREST
// returns the inserted rows only, so an empty body means the user existed.
func (c *Client) InsertUserIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	var rows []userRow
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", "user_id").
		SetHeader("Prefer", "resolution=ignore-duplicates,return=representation").
		SetBody([]userRow{{
			UserID:        u.UserID,
			UserName:      u.UserName,
			TargetWeight:  u.TargetWeight,
			CurrentWeight: u.CurrentWeight,
		}}).
		SetResult(&rows).
		Post("/" + tableUsers)
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, asError(resp)
	}
	return len(rows) > 0, nil
}

type foodLogRow struct {
	UserID   string `json:"user_id"`
	FoodName string `json:"food_name"`
	Calorie  int    `json:"calorie"`
}

// InsertFoodLog inserts one row; created_at is filled by the column default.
func (c *Client) InsertFoodLog(ctx context.Context, userID, foodName string, calorie int) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(foodLogRow{UserID: userID, FoodName: foodName, Calorie: calorie}).
		Post("/" + tableFoodLogs)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return asError(resp)
	}
	return nil
}

type calorieRow struct {
	Calorie *int `json:"calorie"`
}

// sumPageSize stays at or below PostgREST's max-rows (1000 on Supabase), so
// a short page reliably marks the end of the result.
var sumPageSize = 1000

// SumCaloriesSince selects the user's calorie values with
// created_at >= since and sums them, counting nulls as zero. Rows are read
// in id order, one page at a time, so the server's row cap never truncates
// the total.
func (c *Client) SumCaloriesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	total := 0
	for offset := 0; ; offset += sumPageSize {
		var rows []calorieRow
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"select":     "calorie",
				"user_id":    "eq." + userID,
				"created_at": "gte." + since.UTC().Format(time.RFC3339),
				"order":      "id.asc",
				"limit":      strconv.Itoa(sumPageSize),
				"offset":     strconv.Itoa(offset),
			}).
			SetResult(&rows).
			Get("/" + tableFoodLogs)
		if err != nil {
			return 0, err
		}
		if resp.IsError() {
			return 0, asError(resp)
		}
		for _, r := range rows {
			if r.Calorie != nil {
				total += *r.Calorie
			}
		}
		if len(rows) < sumPageSize {
			return total, nil
		}
	}
}

// String identifies the backend in startup logs.
func (c *Client) String() string {
	return "supabase(" + c.http.BaseURL + ")"
}

// Ping checks that the project answers and the key can read users.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"select": "user_id", "limit": "1"}).
		Get("/" + tableUsers)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return asError(resp)
	}
	return nil
}
