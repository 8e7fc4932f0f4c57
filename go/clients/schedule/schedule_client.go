// Package schedule calls the schedule service that owns season fixtures. The
// draft service pokes it once per league, right after a draft completes.
package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/openleague/draftroom/go/clients"
)

type Client struct {
	*clients.BaseClient
}

// NewClient creates a schedule service client. The token may be empty in
// development setups where the schedule service runs open.
func NewClient(baseURL, token string) *Client {
	client := &Client{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	if token != "" {
		client.SetHeader(AuthHeader, token)
	}
	client.SetHeader("Content-Type", "application/json")
	return client
}

type generateScheduleRequest struct {
	LeagueID int64 `json:"league_id"`
	Season   int   `json:"season"`
}

type generateScheduleResponse struct {
	ScheduleID int64 `json:"schedule_id"`
	Weeks      int   `json:"weeks"`
}

// GenerateSchedule asks the schedule service to build the season for a
// league. Generation is idempotent on the service side, so retrying after a
// failure is safe.
func (c *Client) GenerateSchedule(ctx context.Context, leagueID int64, season int) error {
	body, err := json.Marshal(generateScheduleRequest{
		LeagueID: leagueID,
		Season:   season,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal schedule request: %w", err)
	}

	data, err := c.Post(ctx, GenerateEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to generate schedule for league %d: %w", leagueID, err)
	}

	var resp generateScheduleResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal schedule response: %w", err)
	}
	return nil
}
