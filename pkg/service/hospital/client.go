package hospital

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Songmu/retry"
	"github.com/go-resty/resty/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

// Client talks to the hospital information system for capacity snapshots
// and identity lookups.
type Client struct {
	http          *resty.Client
	retryCount    uint
	retryInterval time.Duration
	identities    *ttlcache.Cache[string, *model.Identity]
}

var (
	_ interfaces.CapacityProvider = &Client{}
	_ interfaces.IdentityLookup   = &Client{}
)

type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithRetry sets how many times a failed snapshot fetch is attempted
func WithRetry(count uint, interval time.Duration) Option {
	return func(c *Client) {
		c.retryCount = count
		c.retryInterval = interval
	}
}

// WithIdentityCacheTTL sets how long a resolved identity is reused
func WithIdentityCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.identities = ttlcache.New(ttlcache.WithTTL[string, *model.Identity](ttl))
	}
}

// WithToken sets a bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.http.SetAuthToken(token)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json"),
		retryCount:    3,
		retryInterval: time.Second,
		identities:    ttlcache.New(ttlcache.WithTTL[string, *model.Identity](10 * time.Minute)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type capacityResponse struct {
	Resources []capacityItem `json:"resources"`
}

type capacityItem struct {
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
}

// Snapshot fetches the current capacity. It is called once per activation.
func (c *Client) Snapshot(ctx context.Context) (model.CapacitySnapshot, error) {
	var body capacityResponse
	err := retry.Retry(c.retryCount, c.retryInterval, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&body).
			Get("/capacity")
		if err != nil {
			return goerr.Wrap(err, "failed to request capacity snapshot")
		}
		if resp.IsError() {
			return goerr.New("capacity service returned error", goerr.V("status", resp.StatusCode()))
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch capacity snapshot")
	}

	snapshot := make(model.CapacitySnapshot, len(body.Resources))
	for _, item := range body.Resources {
		category := types.ResourceCategory(item.Category)
		if err := category.Validate(); err != nil {
			logging.From(ctx).Warn("skip unknown capacity category", "category", item.Category)
			continue
		}
		snapshot[category] = model.CapacityEntry{Total: item.Total, Available: item.Available}
	}
	return snapshot, nil
}

type identityResponse struct {
	PatientRef string `json:"patient_ref"`
	FullName   string `json:"full_name"`
	Gender     string `json:"gender"`
	BirthYear  int    `json:"birth_year"`
}

// Lookup resolves a scanned wristband or ID card. Unknown identifiers yield nil, nil.
func (c *Client) Lookup(ctx context.Context, scanID string) (*model.Identity, error) {
	if scanID == "" {
		return nil, nil
	}
	if item := c.identities.Get(scanID); item != nil {
		return item.Value(), nil
	}

	var body identityResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/identities/" + url.PathEscape(scanID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to request identity", goerr.V("scan_id", scanID))
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, goerr.New("identity service returned error",
			goerr.V("scan_id", scanID),
			goerr.V("status", resp.StatusCode()))
	}

	identity := &model.Identity{
		PatientRef: body.PatientRef,
		FullName:   body.FullName,
		Gender:     body.Gender,
		BirthYear:  body.BirthYear,
	}
	c.identities.Set(scanID, identity, ttlcache.DefaultTTL)
	return identity, nil
}
