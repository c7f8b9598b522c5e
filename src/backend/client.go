package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"market-pipeline/src/helpers"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
)

// -----------------------------------------------------------------------------
// Backend client
//
// The pipeline's only two network dependencies live here: the GET for the
// session window and the POST for completed candles. Session fetches retry
// with exponential backoff; candle submissions are fire-once by contract — a
// failed candle is logged and lost.
// -----------------------------------------------------------------------------

type Client struct {
	Config models.MBackendConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewClient(cfg models.MBackendConfig, log *logger.Logger) *Client {
	return &Client{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

type sessionResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// -----------------------------------------------------------------------------

// FetchSessionWindow performs the configuration-endpoint GET.
func (c *Client) FetchSessionWindow() (string, string, error) {
	body, err := c.get(c.Config.BaseURL + c.Config.SessionPath)
	if err != nil {
		return "", "", err
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("bad session response: %w", err)
	}
	if resp.StartTime == "" || resp.EndTime == "" {
		return "", "", fmt.Errorf("session response missing start_time/end_time")
	}
	return resp.StartTime, resp.EndTime, nil
}

// -----------------------------------------------------------------------------

// SubmitCandle posts one completed candle. The timestamp is normalized to the
// top of the completed minute; no retry is attempted on failure.
func (c *Client) SubmitCandle(candle models.MMinuteCandle) error {
	payload := models.MCandleSubmission{
		Symbol:         candle.Symbol,
		InstrumentType: candle.InstrumentType,
		Expiry:         candle.Expiry,
		Date:           candle.Minute.Format("2006-01-02 15:04:00"),
		Open:           candle.Open,
		High:           candle.High,
		Low:            candle.Low,
		Close:          candle.Close,
		Volume:         candle.Volume,
		Change:         0,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := c.Client.Post(c.Config.BaseURL+c.Config.CandlesPath, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("candle submission rejected: status %d", resp.StatusCode)
	}
	return nil
}

// -----------------------------------------------------------------------------

// get performs a GET with retries and exponential backoff.
func (c *Client) get(url string) ([]byte, error) {
	maxRetries := c.Config.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*i) * time.Second)
		}

		resp, err := c.Client.Get(url)
		if err != nil {
			lastErr = err
			c.Logger.Debug("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("bad status: %d", resp.StatusCode)
			c.Logger.Debug("Bad status %d (attempt %d/%d)", resp.StatusCode, i+1, maxRetries+1)
			continue
		}
		if err != nil {
			lastErr = err
			continue
		}

		return body, nil
	}

	return nil, &helpers.NetworkError{PipelineError: helpers.PipelineError{
		Message: "max retries exceeded for " + url,
		Cause:   lastErr,
	}}
}
