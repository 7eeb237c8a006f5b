package syncprovider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"knowledge-agent-backend/model"
	"knowledge-agent-backend/service/ingestion"
)

const (
	requestAttempts = 3

	listPageSize = 1000
)

// Registry 返回所有支持的同步服务商客户端
func Registry() map[model.Source]ingestion.SyncProvider {
	return map[model.Source]ingestion.SyncProvider{
		model.SourceGDrive:  NewGoogleDrive(),
		model.SourceDropbox: NewDropbox(),
	}
}

type providerCredentials struct {
	AccessToken string `json:"access_token"`
}

func accessToken(raw json.RawMessage) (string, error) {
	var c providerCredentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return "", fmt.Errorf("failed to parse credentials: %v", err)
	}
	if c.AccessToken == "" {
		return "", fmt.Errorf("%w: access_token missing", ingestion.ErrMissingCredentials)
	}
	return c.AccessToken, nil
}

func parseRemoteTime(value string) *time.Time {
	if value == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		slog.Warn("Failed to parse remote timestamp", "value", value, "err", err)
		return nil
	}
	return &t
}
