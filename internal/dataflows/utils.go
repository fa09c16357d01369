package dataflows

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/StockLens/internal/models"
)

// CacheManager handles file-based caching for data
type CacheManager struct {
	cacheDir     string
	ttl          time.Duration
	cacheEnabled bool
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string, ttl time.Duration, cacheEnabled bool) *CacheManager {
	return &CacheManager{
		cacheDir:     cacheDir,
		ttl:          ttl,
		cacheEnabled: cacheEnabled,
	}
}

func (cm *CacheManager) getCacheKey(source, method string, params any) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s_%s_%x.json", source, method, hash)
}

// Get retrieves data from cache if not expired
func (cm *CacheManager) Get(source, method string, params any, result any) bool {
	if !cm.cacheEnabled {
		return false
	}

	filePath := filepath.Join(cm.cacheDir, cm.getCacheKey(source, method, params))

	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}

	if time.Since(info.ModTime()) > cm.ttl {
		os.Remove(filePath)
		return false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return false
	}

	return json.Unmarshal(data, result) == nil
}

// Set stores data in cache. The entry is written to a temp file and renamed so
// that concurrent readers never see a partial document.
func (cm *CacheManager) Set(source, method string, params any, data any) error {
	if !cm.cacheEnabled {
		return nil
	}

	if err := os.MkdirAll(cm.cacheDir, 0o755); err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	filePath := filepath.Join(cm.cacheDir, cm.getCacheKey(source, method, params))
	tmp, err := os.CreateTemp(cm.cacheDir, ".cache-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Retryable decides whether an error is worth another attempt. Nil retries
	// every error.
	Retryable func(error) bool
}

// DefaultRetryConfig allows a single retry of network failures. Missing data
// is never retried.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 1,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Retryable:  IsNetworkError,
	}
}

// IsNetworkError reports whether err is a transient fetch failure.
func IsNetworkError(err error) bool {
	return errors.Is(err, models.ErrNetwork)
}

// WithRetry executes fn with exponential backoff. It stops early when ctx is
// done or the error is not retryable, and returns the last error unwrapped so
// callers can still match its kind.
func WithRetry(ctx context.Context, config *RetryConfig, fn func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(config.BaseDelay) * pow(config.Multiplier, attempt-1))
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if config.Retryable != nil && !config.Retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// ValidateSymbol checks that a ticker is non-empty and plausibly short.
func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if len(symbol) == 0 {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	return nil
}
