package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ClientError struct {
	StatusCode  int
	Error       any
	Description string
}

type ErrorResponse struct {
	Error            any    `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type RequestArgs struct {
	Endpoint    string
	Method      string
	QueryParams map[string]string
	BodyRaw     any
}

var requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gradesync_collaborator_request_total",
	Help: "The total number of requests by endpoint to collaborator services",
}, []string{"service", "endpoint"})

var responseCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gradesync_collaborator_response_total",
	Help: "The total number of responses by status code from collaborator services",
}, []string{"service", "status_code"})

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "gradesync_collaborator_request_duration_seconds",
	Help: "Duration of requests to collaborator services",
}, []string{"service", "endpoint"})

// HttpClient is the shared plumbing for collaborator services. Both the CBT
// subsystem and the gradebook authenticate with a static API key header.
type HttpClient struct {
	BaseURL        *url.URL
	ApiKey         string
	ServiceName    string
	TimeOutSeconds int
	client         *http.Client
}

func NewHttpClient(baseURL string, apiKey string, serviceName string, timeOutSeconds int) (*HttpClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &HttpClient{
		BaseURL:        parsed,
		ApiKey:         apiKey,
		ServiceName:    serviceName,
		TimeOutSeconds: timeOutSeconds,
		client:         &http.Client{},
	}, nil
}

func sendRequest[T any](ctx context.Context, c *HttpClient, args RequestArgs) (*T, *ClientError) {
	timer := prometheus.NewTimer(requestDuration.WithLabelValues(c.ServiceName, args.Endpoint))
	defer timer.ObserveDuration()
	requestCounter.WithLabelValues(c.ServiceName, args.Endpoint).Inc()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.TimeOutSeconds)*time.Second)
	defer cancel()

	var body io.Reader
	if args.BodyRaw != nil {
		bodyString, err := json.Marshal(args.BodyRaw)
		if err != nil {
			return nil, &ClientError{
				StatusCode:  0,
				Error:       "gradesync_client_request_body_error",
				Description: err.Error(),
			}
		}
		body = strings.NewReader(string(bodyString))
	}

	requestURL := c.BaseURL.JoinPath(args.Endpoint)
	if len(args.QueryParams) > 0 {
		query := requestURL.Query()
		for key, value := range args.QueryParams {
			query.Set(key, value)
		}
		requestURL.RawQuery = query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, args.Method, requestURL.String(), body)
	if err != nil {
		return nil, &ClientError{
			StatusCode:  0,
			Error:       "gradesync_client_request_error",
			Description: err.Error(),
		}
	}
	request.Header.Set("Content-Type", "application/json")
	if c.ApiKey != "" {
		request.Header.Set("X-Api-Key", c.ApiKey)
	}

	response, err := c.client.Do(request)
	if err != nil {
		return nil, &ClientError{
			StatusCode:  0,
			Error:       "gradesync_client_request_error",
			Description: err.Error(),
		}
	}
	responseCounter.WithLabelValues(c.ServiceName, fmt.Sprintf("%d", response.StatusCode)).Inc()
	defer response.Body.Close()
	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &ClientError{
			StatusCode:  0,
			Error:       "gradesync_client_response_body_read_error",
			Description: err.Error(),
		}
	}

	if response.StatusCode >= 400 {
		log.Print(string(respBody))
		errorBody := &ErrorResponse{}
		err = json.Unmarshal(respBody, errorBody)
		if err != nil {
			return nil, &ClientError{
				StatusCode:  response.StatusCode,
				Error:       "gradesync_client_response_error_body_parse_error",
				Description: err.Error(),
			}
		}
		return nil, &ClientError{
			StatusCode:  response.StatusCode,
			Error:       errorBody.Error,
			Description: errorBody.ErrorDescription,
		}
	}

	result := new(T)
	err = json.Unmarshal(respBody, result)
	if err != nil {
		return nil, &ClientError{
			StatusCode:  response.StatusCode,
			Error:       "gradesync_client_response_body_parse_error",
			Description: err.Error(),
		}
	}
	return result, nil
}
