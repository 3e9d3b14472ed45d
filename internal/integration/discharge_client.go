package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	DefaultDischargeURL        = "https://tiwrm.hii.or.th/DATA/REPORT/php/chart/chaopraya/small/chaopraya.php"
	DefaultDischargeStationKey = "C13"
	defaultUserAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var jsonDataPattern = regexp.MustCompile(`var\s+json_data\s*=\s*(\[.*\])\s*;`)

// DischargeOptions configures the dam discharge client
type DischargeOptions struct {
	URL        string
	Timeout    time.Duration
	StationKey string // Key under itc_water holding the dam, C13 for Chao Phraya dam
	UserAgent  string
}

// DischargeClient reads the dam discharge from the JSON literal embedded in the dam report page
type DischargeClient struct {
	opts       DischargeOptions
	httpClient *http.Client
}

// NewDischargeClient creates a new discharge client
func NewDischargeClient(opts DischargeOptions) *DischargeClient {
	if opts.URL == "" {
		opts.URL = DefaultDischargeURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.StationKey == "" {
		opts.StationKey = DefaultDischargeStationKey
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &DischargeClient{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// FetchDischarge issues a single cache-busted GET and extracts the storage value of the dam.
// There is no retry loop here; a failed run is re-triggered from outside.
func (dc *DischargeClient) FetchDischarge(ctx context.Context) (entities.DischargeReading, error) {
	body, err := dc.fetchBody(ctx)
	if err != nil {
		log.Printf("Error fetching discharge page: %v", err)
		return entities.DischargeReading{}, err
	}

	value, err := ExtractDischarge(body, dc.opts.StationKey)
	if err != nil {
		if entities.KindOf(err) == entities.KindFormatMismatch {
			preview := truncateUTF8(body, 1000)
			log.Printf("Discharge page did not match expected format (%d bytes), first chars: %s", len(body), preview)
		}
		log.Printf("Error extracting discharge: %v", err)
		return entities.DischargeReading{}, err
	}

	log.Printf("Found dam discharge: %.0f m³/s", value)
	return entities.DischargeReading{CubicMetersPerSecond: value}, nil
}

func (dc *DischargeClient) fetchBody(ctx context.Context) (string, error) {
	u, err := url.Parse(dc.opts.URL)
	if err != nil {
		return "", entities.NewError(entities.KindNetwork, "discharge.request", err)
	}
	q := u.Query()
	q.Set("cb", uuid.NewString())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", entities.NewError(entities.KindNetwork, "discharge.request", err)
	}
	req.Header.Set("User-Agent", dc.opts.UserAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	log.Printf("Sending HTTP request to dam report page")
	res, err := dc.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", entities.NewError(entities.KindNetwork, "discharge.get", fmt.Errorf("timeout: %w", err))
		}
		return "", entities.NewError(entities.KindNetwork, "discharge.get", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", entities.Errorf(entities.KindNetwork, "discharge.get", "unexpected status code: %d %s", res.StatusCode, res.Status)
	}
	log.Printf("Successfully received HTTP response with status: %s", res.Status)

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", entities.NewError(entities.KindNetwork, "discharge.read", err)
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a character
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ExtractDischarge locates `var json_data = [...];` in body and returns
// [0].itc_water.<stationKey>.storage as a float.
func ExtractDischarge(body, stationKey string) (float64, error) {
	match := jsonDataPattern.FindStringSubmatch(body)
	if len(match) < 2 {
		return 0, entities.Errorf(entities.KindFormatMismatch, "discharge.extract", "json_data variable not found in page")
	}
	payload := match[1]
	if !gjson.Valid(payload) {
		return 0, entities.Errorf(entities.KindFormatMismatch, "discharge.extract", "json_data is not valid JSON")
	}

	path := "0.itc_water." + stationKey + ".storage"
	storage := gjson.Get(payload, path)
	if !storage.Exists() {
		return 0, entities.Errorf(entities.KindFormatMismatch, "discharge.extract", "path %s missing", path)
	}
	if storage.Type == gjson.Null || (storage.Type == gjson.String && strings.TrimSpace(storage.Str) == "") {
		return 0, entities.Errorf(entities.KindNoData, "discharge.extract", "station %s reports no storage value", stationKey)
	}

	value, err := NormalizeNumber(storage)
	if err != nil {
		return 0, entities.NewError(entities.KindFormatMismatch, "discharge.extract", err)
	}
	return value, nil
}
