package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docuchat/internal/model"
)

// WidgetCache caches resolved widget configurations. Every chat turn needs
// the widget, so this sits cache-aside in front of MySQL with a plain TTL;
// dashboard edits show up within one TTL window.
type WidgetCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

// cachedWidget carries every field the orchestrator needs, including the
// system prompt that the model's JSON tags hide from API responses.
type cachedWidget struct {
	ID             uint   `json:"id"`
	TenantID       uint   `json:"tenant_id"`
	PublicID       string `json:"public_id"`
	Name           string `json:"name"`
	SystemPrompt   string `json:"system_prompt"`
	WelcomeMessage string `json:"welcome_message"`
	Placeholder    string `json:"placeholder"`
	PrimaryColor   string `json:"primary_color"`
	Active         bool   `json:"active"`
}

func NewWidgetCache(client *redisv9.Client, ttl time.Duration) *WidgetCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &WidgetCache{client: client, ttl: ttl}
}

func (c *WidgetCache) Get(ctx context.Context, tenantID uint, publicID string) (*model.WidgetConfig, bool, error) {
	raw, err := c.client.Get(ctx, c.key(tenantID, publicID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get widget failed: %w", err)
	}

	var cached cachedWidget
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached widget failed: %w", err)
	}
	return &model.WidgetConfig{
		ID:             cached.ID,
		TenantID:       cached.TenantID,
		PublicID:       cached.PublicID,
		Name:           cached.Name,
		SystemPrompt:   cached.SystemPrompt,
		WelcomeMessage: cached.WelcomeMessage,
		Placeholder:    cached.Placeholder,
		PrimaryColor:   cached.PrimaryColor,
		Active:         cached.Active,
	}, true, nil
}

func (c *WidgetCache) Set(ctx context.Context, widget *model.WidgetConfig) error {
	payload, err := json.Marshal(cachedWidget{
		ID:             widget.ID,
		TenantID:       widget.TenantID,
		PublicID:       widget.PublicID,
		Name:           widget.Name,
		SystemPrompt:   widget.SystemPrompt,
		WelcomeMessage: widget.WelcomeMessage,
		Placeholder:    widget.Placeholder,
		PrimaryColor:   widget.PrimaryColor,
		Active:         widget.Active,
	})
	if err != nil {
		return fmt.Errorf("marshal widget cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(widget.TenantID, widget.PublicID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set widget failed: %w", err)
	}
	return nil
}

func (c *WidgetCache) key(tenantID uint, publicID string) string {
	return fmt.Sprintf("widget:cfg:%d:%s", tenantID, publicID)
}
