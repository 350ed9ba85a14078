// Package narrative asks an external text-generation service for a short
// write-up of the charts. The call is best-effort: on failure or timeout the
// report renders a placeholder instead.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"

	"github.com/mpetrov/music-tracker/internal/charts"
	"github.com/mpetrov/music-tracker/internal/store"
)

// DefaultTimeout bounds one generation call end to end, retries included.
const DefaultTimeout = 120 * time.Second

type Client struct {
	URL     string
	Timeout time.Duration

	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(url string) *Client {
	return &Client{
		URL:        url,
		Timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Every(1*time.Second), 1),
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("narrative service returned %d", e.status)
}

// Generate sends the prompt and returns the narrative text. Server-side
// errors are retried a few times within the overall timeout; anything else
// fails immediately.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var result generateResponse
	err := retry.Do(
		func() error {
			body, err := json.Marshal(generateRequest{Prompt: prompt})
			if err != nil {
				return fmt.Errorf("marshaling request: %w", err)
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("building request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode/100 == 5 {
				return &serverError{status: resp.StatusCode}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("narrative service returned %d", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(&result)
		},
		retry.Attempts(3),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			_, ok := err.(*serverError)
			return ok
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating narrative: %w", err)
	}

	if !result.Success {
		msg := "unknown error"
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("generating narrative: %s", msg)
	}
	return result.Text, nil
}

// BuildPrompt exports the weekly charts and the latest plays as plain-text
// tables for the generation service. Prompt wording beyond the data dump is
// the service's problem, not ours.
func BuildPrompt(chart *charts.PeriodChart, recent []store.PlayEvent) string {
	out := new(bytes.Buffer)

	fmt.Fprintf(out, "Weekly listening charts (%s):\n\n", chart.Dates)
	for _, cat := range store.AllCategories() {
		items := chart.Items[cat]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(out, "## Top %s\n", cat)
		for i, item := range items {
			switch cat {
			case store.Songs:
				fmt.Fprintf(out, "%d. %s - %s (%d plays)\n", i+1, item.Title, item.Artist, item.Plays)
			case store.Artists:
				fmt.Fprintf(out, "%d. %s (%d plays)\n", i+1, item.Artist, item.Plays)
			case store.Albums:
				fmt.Fprintf(out, "%d. %s - %s (%d tracks)\n", i+1, item.Album, item.Artist, item.Tracks)
			case store.Channels:
				fmt.Fprintf(out, "%d. %s (%d plays)\n", i+1, item.Channel, item.Plays)
			}
		}
		fmt.Fprintln(out)
	}

	if len(chart.Popular) > 0 {
		fmt.Fprintln(out, "## Popular artists (by distinct songs)")
		for i, item := range chart.Popular {
			fmt.Fprintf(out, "%d. %s (%d songs)\n", i+1, item.Artist, item.Tracks)
		}
		fmt.Fprintln(out)
	}

	if len(recent) > 0 {
		fmt.Fprintln(out, "## Recent plays")
		for _, p := range recent {
			fmt.Fprintf(out, "- %s - %s (%s)\n", p.Artist, p.Title, p.Timestamp.Format("2006-01-02 15:04"))
		}
	}

	return out.String()
}
