// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// Renderer turns a URL into the fully rendered visible text of the page.
// Pattern chains assume final DOM text, so implementations must wait for
// client-side rendering to settle before snapshotting.
type Renderer interface {
	// Render navigates to the URL and returns the page's visible text. It
	// fails with a navigation or timeout error; transient failures are the
	// caller's to retry.
	Render(ctx context.Context, url string) (string, error)

	// Close releases the underlying browser resources.
	Close() error
}

// Config defines renderer behavior.
type Config struct {
	// Headless runs Chrome without a display. Disabled only for local
	// pattern debugging.
	Headless bool `yaml:"headless" json:"headless"`

	// Timeout is the hard per-render deadline covering navigation, paint
	// and text snapshot.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// SettleDelay is the wait after page load for client-rendered content
	// to finish painting before the text snapshot is taken.
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`

	// PoolSize bounds concurrent renders. One browser tab-equivalent is
	// alive per in-flight render.
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// DefaultConfig returns the standard renderer configuration.
func DefaultConfig() *Config {
	return &Config{
		Headless:    true,
		Timeout:     40 * time.Second,
		SettleDelay: 2 * time.Second,
		PoolSize:    3,
	}
}

// Stats tracks renderer activity.
type Stats struct {
	PagesRendered int           `json:"pages_rendered"`
	Errors        int           `json:"errors"`
	TotalTime     time.Duration `json:"total_time"`
}
