package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
)

// APIError is a non-2xx answer from the payroll engine.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("payroll engine: http %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("payroll engine: http %d: %s", e.StatusCode, msg)
}

// Retryable is false for client errors, which fail the same way on every attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// Client talks to the payroll engine. It implements payroll.PreviewGenerator,
// payroll.ApprovalSubmitter and payroll.PayslipDelivery.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("upstream: missing payroll engine url")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: invalid payroll engine url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("upstream: payroll engine url must be http or https")
	}
	if u.Host == "" {
		return nil, errors.New("upstream: payroll engine url has no host")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type previewEnvelope struct {
	CompanyID string `json:"company_id"`
	payroll.PreviewRequest
}

func (c *Client) GetPayrollPreview(ctx context.Context, companyID string, req payroll.PreviewRequest) (payroll.PreviewResult, error) {
	var out payroll.PreviewResult
	err := c.post(ctx, "/payroll/preview", previewEnvelope{CompanyID: companyID, PreviewRequest: req}, &out)
	return out, err
}

func (c *Client) SubmitForApproval(ctx context.Context, payload payroll.SubmitPayload) (payroll.BatchApprovalResult, error) {
	var out payroll.BatchApprovalResult
	if err := c.post(ctx, "/payroll/approvals", payload, &out); err != nil {
		return payroll.BatchApprovalResult{}, err
	}
	if out.PayrollID == "" {
		return payroll.BatchApprovalResult{}, errors.New("upstream: approval response has no payroll id")
	}
	return out, nil
}

type resendBody struct {
	CompanyID   string   `json:"company_id"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

func (c *Client) ResendPayslips(ctx context.Context, companyID string, payrollID string, employeeIDs []string) (payroll.ResendOutcome, error) {
	var out payroll.ResendOutcome
	path := "/payroll/" + url.PathEscape(payrollID) + "/payslips/resend"
	err := c.post(ctx, path, resendBody{CompanyID: companyID, EmployeeIDs: employeeIDs}, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("upstream: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream: decode %s response: %w", path, err)
	}
	return nil
}

// readAPIError accepts both {"code","message"} and the {"error":{"code","message"}}
// envelope; anything else becomes the raw body.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var flat struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil {
		if flat.Error != nil {
			apiErr.Code, apiErr.Message = flat.Error.Code, flat.Error.Message
		} else {
			apiErr.Code, apiErr.Message = flat.Code, flat.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
