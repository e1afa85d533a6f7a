package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/worker"
)

const (
	gatewayProvider = "recorder"
	maxResponseSize = 1 << 20
	defaultTimeout  = 30 * time.Second
)

// GatewayLookup reads owner lists from a county recorder gateway.
//
// The gateway answers GET {base}/owners?block=..&lot=..&county=.. with
// {"records":[{"block_number":"..","lot_number":"..","owners":[..]}]}
// and 404 when the parcel is unknown.
type GatewayLookup struct {
	baseURL    string
	county     string
	httpClient *http.Client
	retry      worker.RetryPolicy
}

type gatewayResponse struct {
	Records []model.OwnerRecord `json:"records"`
}

// NewGatewayLookup creates a recorder gateway client
func NewGatewayLookup(baseURL, county string, client *http.Client, retry worker.RetryPolicy) (*GatewayLookup, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("records.base_url is required for the http owner lookup")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &GatewayLookup{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		county:     county,
		httpClient: client,
		retry:      retry,
	}, nil
}

// LookupOwners implements OwnerLookup
func (g *GatewayLookup) LookupOwners(ctx context.Context, parcel model.Parcel) ([]string, error) {
	if !ValidParcel(parcel) {
		return nil, fmt.Errorf("invalid parcel %q: %w", parcel.Key(), model.ErrNotFound)
	}

	records, err := worker.Do(ctx, g.retry, func(ctx context.Context) ([]model.OwnerRecord, error) {
		start := time.Now()
		recs, err := g.fetch(ctx, parcel)
		metrics.ObserveProvider(gatewayProvider, "lookup", start, err)
		return recs, err
	})
	if err != nil {
		return nil, err
	}

	var match *model.OwnerRecord
	for i := range records {
		rec := &records[i]
		if rec.BlockNumber != parcel.Block || rec.LotNumber != parcel.Lot {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%s: %w", parcel, model.ErrAmbiguousParcel)
		}
		match = rec
	}
	if match == nil {
		return nil, fmt.Errorf("%s: %w", parcel, model.ErrNotFound)
	}

	owners := cleanOwners(match.Owners)
	if len(owners) == 0 {
		return nil, fmt.Errorf("%s has no recorded owners: %w", parcel, model.ErrNotFound)
	}
	return owners, nil
}

func (g *GatewayLookup) fetch(ctx context.Context, parcel model.Parcel) ([]model.OwnerRecord, error) {
	q := url.Values{}
	q.Set("block", parcel.Block)
	q.Set("lot", parcel.Lot)
	if g.county != "" {
		q.Set("county", g.county)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/owners?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, model.NewTransportError(gatewayProvider, "lookup", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, model.NewTransportError(gatewayProvider, "lookup", resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, model.NewTransportError(gatewayProvider, "lookup", resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, model.NewSchemaError(gatewayProvider, "lookup", fmt.Errorf("unmarshal response: %w", err))
	}
	return parsed.Records, nil
}
