// Package remote is the HTTP client for the booking store's CRUD APIs
// (tasks, bookings, projects). Every call carries the bearer credential
// and classifies failures as unreachable vs rejected; callers decide
// what to do with either.
package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kitchenhire/booking-engine/internal/task"
)

// Patch is a partial record update, merged into the stored record by
// the remote store.
type Patch map[string]any

type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Debug enables resty's request tracing. Off outside development.
	Debug bool
}

func NewClient(opts ClientOptions) *Client {
	httpc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetAuthToken(opts.Token).
		SetHeader("Accept", "application/json").
		SetDebug(opts.Debug)
	if opts.Timeout > 0 {
		httpc.SetTimeout(opts.Timeout)
	}
	return &Client{http: httpc}
}

// errorBody is the error envelope the store uses for non-2xx responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

// check converts a resty outcome into the error taxonomy.
func check(op string, res *resty.Response, err error) error {
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}
	if res.IsError() {
		var body errorBody
		_ = json.Unmarshal(res.Body(), &body)
		return &RejectedError{Op: op, Status: res.StatusCode(), Message: body.text()}
	}
	return nil
}

func (c *Client) list(ctx context.Context, op, path string, out any) error {
	res, err := c.http.R().SetContext(ctx).SetResult(out).Get(path)
	return check(op, res, err)
}

func (c *Client) create(ctx context.Context, op, path string, body any) error {
	res, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	return check(op, res, err)
}

func (c *Client) patch(ctx context.Context, op, path string, body any) error {
	res, err := c.http.R().SetContext(ctx).SetBody(body).Put(path)
	return check(op, res, err)
}

func (c *Client) remove(ctx context.Context, op, path string) error {
	res, err := c.http.R().SetContext(ctx).Delete(path)
	return check(op, res, err)
}

func (c *Client) ListTasks(ctx context.Context) ([]task.Record, error) {
	var out []task.Record
	if err := c.list(ctx, "list tasks", "/tasks", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, t task.Record) error {
	return c.create(ctx, "create task", "/tasks", t)
}

func (c *Client) UpdateTask(ctx context.Context, id string, p Patch) error {
	return c.patch(ctx, "update task", "/tasks/"+id, p)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.remove(ctx, "delete task", "/tasks/"+id)
}

func (c *Client) ListBookings(ctx context.Context) ([]task.Booking, error) {
	var out []task.Booking
	if err := c.list(ctx, "list bookings", "/bookings", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBooking(ctx context.Context, b task.Booking) error {
	return c.create(ctx, "create booking", "/bookings", b)
}

func (c *Client) UpdateBooking(ctx context.Context, id string, p Patch) error {
	return c.patch(ctx, "update booking", "/bookings/"+id, p)
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.remove(ctx, "delete booking", "/bookings/"+id)
}

// projectsDoc is the full-replace projects envelope.
type projectsDoc struct {
	Projects []string `json:"projects"`
}

func (c *Client) GetProjects(ctx context.Context) ([]string, error) {
	var out projectsDoc
	if err := c.list(ctx, "get projects", "/projects", &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// PutProjects replaces the whole project list; the API has no
// incremental form.
func (c *Client) PutProjects(ctx context.Context, projects []string) error {
	if projects == nil {
		projects = []string{}
	}
	res, err := c.http.R().SetContext(ctx).SetBody(projectsDoc{Projects: projects}).Post("/projects")
	return check("put projects", res, err)
}

// Tasks and Bookings return per-collection views satisfying the sync
// engine's remote contract.
func (c *Client) Tasks() TasksAPI       { return TasksAPI{c} }
func (c *Client) Bookings() BookingsAPI { return BookingsAPI{c} }

type TasksAPI struct{ c *Client }

func (a TasksAPI) List(ctx context.Context) ([]task.Record, error) { return a.c.ListTasks(ctx) }
func (a TasksAPI) Create(ctx context.Context, t task.Record) error { return a.c.CreateTask(ctx, t) }
func (a TasksAPI) Update(ctx context.Context, id string, p map[string]any) error {
	return a.c.UpdateTask(ctx, id, Patch(p))
}
func (a TasksAPI) Delete(ctx context.Context, id string) error { return a.c.DeleteTask(ctx, id) }

type BookingsAPI struct{ c *Client }

func (a BookingsAPI) List(ctx context.Context) ([]task.Booking, error) { return a.c.ListBookings(ctx) }
func (a BookingsAPI) Create(ctx context.Context, b task.Booking) error {
	return a.c.CreateBooking(ctx, b)
}
func (a BookingsAPI) Update(ctx context.Context, id string, p map[string]any) error {
	return a.c.UpdateBooking(ctx, id, Patch(p))
}
func (a BookingsAPI) Delete(ctx context.Context, id string) error { return a.c.DeleteBooking(ctx, id) }
