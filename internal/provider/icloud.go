package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/hme-generator/internal/domain"
)

const (
	defaultICloudTimeout = 10 * time.Second
	icloudOrigin         = "https://www.icloud.com"
	defaultLangCode      = "en-us"
)

// ICloudOptions configures the iCloud Hide My Email client.
type ICloudOptions struct {
	BaseURL               string
	Cookie                string
	ClientBuildNumber     string
	ClientMasteringNumber string
	ClientID              string
	DSID                  string
	Label                 string
	Note                  string
	Timeout               time.Duration
}

var _ AddressService = (*ICloudProvider)(nil)

// ICloudProvider talks to the iCloud Hide My Email web service with the
// session cookie of a signed-in browser.
type ICloudProvider struct {
	client  *resty.Client
	baseURL string
	label   string
	note    string
}

func NewICloudProvider(opts ICloudOptions) (*ICloudProvider, error) {
	return NewICloudProviderWithClient(opts, resty.New())
}

func NewICloudProviderWithClient(opts ICloudOptions, client *resty.Client) (*ICloudProvider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultICloudTimeout
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(timeout)
	}
	client.SetRetryCount(0)
	client.SetHeaders(map[string]string{
		"Accept":        "*/*",
		"Cache-Control": "no-cache",
		"Pragma":        "no-cache",
		"Content-Type":  "text/plain",
		"Origin":        icloudOrigin,
		"Referer":       icloudOrigin + "/",
	})
	if cookie := strings.TrimSpace(opts.Cookie); cookie != "" {
		client.SetHeader("Cookie", cookie)
	}
	client.SetQueryParams(map[string]string{
		"clientBuildNumber":     opts.ClientBuildNumber,
		"clientMasteringNumber": opts.ClientMasteringNumber,
		"clientId":              opts.ClientID,
		"dsid":                  opts.DSID,
	})

	return &ICloudProvider{
		client:  client,
		baseURL: baseURL,
		label:   opts.Label,
		note:    opts.Note,
	}, nil
}

// envelope is the loosely shaped body every endpoint answers with. "error"
// is either a numeric code (with a sibling "reason") or an object.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
	Reason  string          `json:"reason"`
}

type errorObject struct {
	ErrorCode    json.RawMessage `json:"errorCode"`
	ErrorMessage string          `json:"errorMessage"`
}

type generateResult struct {
	Hme string `json:"hme"`
}

type listResult struct {
	HmeEmails []listedAddress `json:"hmeEmails"`
}

type listedAddress struct {
	Label           string `json:"label"`
	Hme             string `json:"hme"`
	Note            string `json:"note"`
	CreateTimestamp int64  `json:"createTimestamp"`
	IsActive        bool   `json:"isActive"`
}

type reserveRequest struct {
	Hme   string `json:"hme"`
	Label string `json:"label"`
	Note  string `json:"note"`
}

func (p *ICloudProvider) Generate(ctx context.Context) (domain.Result[string], error) {
	env, err := p.call(ctx, "generate", http.MethodPost, "/generate", map[string]string{"langCode": defaultLangCode})
	if err != nil {
		return domain.Result[string]{}, err
	}
	if !env.Success {
		return failure[string](env), nil
	}

	var res generateResult
	if err := json.Unmarshal(env.Result, &res); err != nil || strings.TrimSpace(res.Hme) == "" {
		return domain.Result[string]{}, &ProviderError{Operation: "generate", Message: "malformed result payload", Cause: err}
	}
	return domain.Succeeded(res.Hme), nil
}

func (p *ICloudProvider) Reserve(ctx context.Context, hme string) (domain.Result[string], error) {
	if strings.TrimSpace(hme) == "" {
		return domain.Result[string]{}, fmt.Errorf("%w: address is required", domain.ErrValidation)
	}

	env, err := p.call(ctx, "reserve", http.MethodPost, "/reserve", reserveRequest{
		Hme:   hme,
		Label: p.label,
		Note:  p.note,
	})
	if err != nil {
		return domain.Result[string]{}, err
	}
	if !env.Success {
		return failure[string](env), nil
	}
	return domain.Succeeded(hme), nil
}

func (p *ICloudProvider) List(ctx context.Context) (domain.Result[[]domain.Address], error) {
	env, err := p.call(ctx, "list", http.MethodGet, "/list", nil)
	if err != nil {
		return domain.Result[[]domain.Address]{}, err
	}
	if !env.Success {
		return failure[[]domain.Address](env), nil
	}

	var res listResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return domain.Result[[]domain.Address]{}, &ProviderError{Operation: "list", Message: "malformed result payload", Cause: err}
	}

	addresses := make([]domain.Address, 0, len(res.HmeEmails))
	for _, row := range res.HmeEmails {
		addresses = append(addresses, domain.Address{
			Label:     row.Label,
			Hme:       row.Hme,
			Note:      row.Note,
			CreatedAt: time.UnixMilli(row.CreateTimestamp),
			IsActive:  row.IsActive,
		})
	}
	return domain.Succeeded(addresses), nil
}

func (p *ICloudProvider) call(ctx context.Context, operation, method, path string, body any) (*envelope, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	req := p.client.R().SetContext(ctx)
	if body != nil {
		// The service expects JSON sent as text/plain, so marshal by hand.
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		req.SetBody(payload)
	}

	response, err := req.Execute(method, p.baseURL+path)
	if err != nil {
		return nil, &ProviderError{Operation: operation, Message: "request failed", Cause: err}
	}
	if response == nil {
		return nil, &ProviderError{Operation: operation, Message: "provider returned empty response"}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden || statusCode == http.StatusMisdirectedRequest {
		return nil, &ProviderError{
			Operation:  operation,
			StatusCode: statusCode,
			Message:    "session rejected, refresh the cookie file",
			Cause:      domain.ErrUnauthorized,
		}
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			Operation:  operation,
			StatusCode: statusCode,
			Message:    providerErrorMessage(statusCode, responseBody),
		}
	}

	var env envelope
	if err := json.Unmarshal(response.Body(), &env); err != nil {
		return nil, &ProviderError{Operation: operation, StatusCode: statusCode, Message: "malformed response body", Cause: err}
	}
	return &env, nil
}

// failure normalizes both error shapes into a domain.Result.
func failure[T any](env *envelope) domain.Result[T] {
	raw := strings.TrimSpace(string(env.Error))
	if raw == "" || raw == "null" {
		return domain.Failed[T](nil, env.Reason)
	}

	var code int
	if err := json.Unmarshal(env.Error, &code); err == nil {
		return domain.Failed[T](&code, env.Reason)
	}

	var obj errorObject
	if err := json.Unmarshal(env.Error, &obj); err == nil {
		message := obj.ErrorMessage
		if strings.TrimSpace(message) == "" {
			message = env.Reason
		}
		return domain.Failed[T](parseErrorCode(obj.ErrorCode), message)
	}

	return domain.Failed[T](nil, env.Reason)
}

func parseErrorCode(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}

	var code int
	if err := json.Unmarshal(raw, &code); err == nil {
		return &code
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			return &parsed
		}
	}
	return nil
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// IsUnauthorized reports whether err is a rejected session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
