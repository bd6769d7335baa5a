package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackerConfig holds measurement-protocol settings.
type TrackerConfig struct {
	Endpoint    string `json:"endpoint"`
	Measurement string `json:"measurement_id"`
	Secret      string `json:"api_secret"`
}

// Tracker sends usage events to a measurement-protocol collector. Each
// user id is hashed into a stable anonymous client id before leaving
// the process.
type Tracker struct {
	cfg    TrackerConfig
	client *http.Client
	logger *zap.Logger
}

// NewTracker builds a tracker with a short timeout so a slow collector
// cannot stall the caller.
func NewTracker(cfg TrackerConfig, logger *zap.Logger) *Tracker {
	return &Tracker{
		cfg:    cfg,
		client: &http.Client{Timeout: 3 * time.Second},
		logger: logger,
	}
}

type trackerEvent struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

type trackerPayload struct {
	ClientID string         `json:"client_id"`
	Events   []trackerEvent `json:"events"`
}

// Track sends one event. Failures are logged and swallowed.
func (t *Tracker) Track(ctx context.Context, userID, event string, params map[string]interface{}) {
	clientID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID)).String()
	payload := trackerPayload{
		ClientID: clientID,
		Events:   []trackerEvent{{Name: event, Params: params}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.logger.Warn("tracker marshal failed", zap.Error(err))
		return
	}

	url := fmt.Sprintf("%s?measurement_id=%s&api_secret=%s",
		t.cfg.Endpoint, t.cfg.Measurement, t.cfg.Secret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.logger.Warn("tracker request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Debug("tracker send failed", zap.String("event", event), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		t.logger.Debug("tracker rejected event",
			zap.String("event", event), zap.Int("status", resp.StatusCode))
	}
}
