package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

type discordSender struct {
	client *resty.Client
}

func (d *discordSender) send(ctx context.Context, url, content string) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"content": content}).
		Post(url)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("discord responded with status %d", resp.StatusCode())
	}
	return nil
}
