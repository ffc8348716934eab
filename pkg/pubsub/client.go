// Package pubsub wraps the Cloud Pub/Sub v2 client with project-scoped
// name resolution and boot-time verification of the subscriptions the
// workers consume from.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/logger"
)

var (
	errMissingProject  = errors.New("gcp project id is required")
	errNoSubscriptions = errors.New("pubsub subscription name is required")
)

// Client is a Pub/Sub v2 connection scoped to a single GCP project.
// Short subscription and topic IDs from config are expanded to full
// resource names before they reach the underlying client.
type Client struct {
	conn    *pubsub.Client
	project string
	cfg     config.PubSubConfig
}

// NewClient connects to Pub/Sub and verifies that every configured
// subscription exists, so a misconfigured worker fails at boot instead
// of idling on a subscription that will never deliver.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errMissingProject
	}

	conn, err := pubsub.NewClient(ctx, project, credentialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{conn: conn, project: project, cfg: cfg}
	if err := c.verifySubscriptions(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// verifySubscriptions resolves each configured subscription through the
// admin API. Pub/Sub v2 surfaces gRPC status codes, so NotFound means
// the subscription has not been provisioned.
func (c *Client) verifySubscriptions(ctx context.Context) error {
	names := c.configuredSubscriptions()
	if len(names) == 0 {
		return errNoSubscriptions
	}
	for _, name := range names {
		req := &pubsubpb.GetSubscriptionRequest{Subscription: c.qualify("subscriptions", name)}
		_, err := c.conn.SubscriptionAdminClient.GetSubscription(ctx, req)
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("subscription %q does not exist", name)
		case err != nil:
			return fmt.Errorf("checking subscription %q: %w", name, err)
		}
	}
	return nil
}

func (c *Client) configuredSubscriptions() []string {
	var names []string
	for _, name := range []string{c.cfg.PaymentsSubscription, c.cfg.NotificationSubscription} {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// Subscription returns a subscriber handle for the given subscription
// ID or full resource name, or nil when the name is empty.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.conn == nil {
		return nil
	}
	full := c.qualify("subscriptions", name)
	if full == "" {
		return nil
	}
	return c.conn.Subscriber(full)
}

// PaymentsSubscription returns the subscriber for provider payment events.
func (c *Client) PaymentsSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.PaymentsSubscription)
}

// NotificationSubscription returns the subscriber for notification jobs.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.NotificationSubscription)
}

// Publisher returns a publisher handle for the given topic ID or full
// resource name, or nil when the name is empty.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.conn == nil {
		return nil
	}
	full := c.qualify("topics", name)
	if full == "" {
		return nil
	}
	return c.conn.Publisher(full)
}

// Ping re-checks the configured subscriptions, which exercises the
// admin API round trip and with it the connection itself.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.verifySubscriptions(ctx)
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// qualify expands a short ID into projects/<project>/<kind>/<id>. Names
// already carrying the projects/ prefix pass through untouched so a
// full resource name in config keeps working.
func (c *Client) qualify(kind, name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "projects/") && strings.Contains(trimmed, "/"+kind+"/") {
		return trimmed
	}
	return fmt.Sprintf("projects/%s/%s/%s", c.project, kind, trimmed)
}
