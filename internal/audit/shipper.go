// shipper.go implements the external audit destinations. Each shipper
// receives every recorded entry; failures are isolated per shipper so a dead
// webhook endpoint never blocks the file trail or the database write.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/service-auth/service-auth/internal/config"
	"github.com/service-auth/service-auth/internal/db/models"
)

// Shipper sends audit entries to an external destination.
type Shipper interface {
	// Ship sends one entry to the destination
	Ship(ctx context.Context, entry *models.AuditLog) error
	// Close cleans up any resources
	Close() error
}

// NewShippers builds the enabled shippers from configuration.
func NewShippers(configs []config.AuditShipperConfig) ([]Shipper, error) {
	var shippers []Shipper
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		switch cfg.Type {
		case "webhook":
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("webhook config is required for webhook shipper")
			}
			shippers = append(shippers, newWebhookShipper(cfg.Webhook))
		case "file":
			if cfg.File == nil {
				return nil, fmt.Errorf("file config is required for file shipper")
			}
			fs, err := newFileShipper(cfg.File)
			if err != nil {
				return nil, err
			}
			shippers = append(shippers, fs)
		default:
			return nil, fmt.Errorf("unknown shipper type: %s", cfg.Type)
		}
	}
	return shippers, nil
}

type webhookShipper struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func newWebhookShipper(cfg *config.AuditWebhookConfig) *webhookShipper {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &webhookShipper{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}
}

func (ws *webhookShipper) Ship(ctx context.Context, entry *models.AuditLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (ws *webhookShipper) Close() error { return nil }

type fileShipper struct {
	file *os.File
	mu   sync.Mutex
}

func newFileShipper(cfg *config.AuditFileConfig) (*fileShipper, error) {
	file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit log file: %w", err)
	}
	return &fileShipper{file: file}, nil
}

// Ship appends one JSON line per entry.
func (fs *fileShipper) Ship(_ context.Context, entry *models.AuditLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

func (fs *fileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
