package client

import (
	"context"
	"fmt"
	"time"
)

// CbtClient talks to the computer-based-test subsystem's exam catalog.
type CbtClient struct {
	Client *HttpClient
}

func NewCbtClient(baseURL string, apiKey string, timeOutSeconds int) (*CbtClient, error) {
	httpClient, err := NewHttpClient(baseURL, apiKey, "cbt", timeOutSeconds)
	if err != nil {
		return nil, err
	}
	return &CbtClient{Client: httpClient}, nil
}

type CbtExam struct {
	Id        int    `json:"id"`
	Title     string `json:"title"`
	SubjectId *int   `json:"subject_id"`
	ClassId   *int   `json:"class_id"`
}

type CbtAttempt struct {
	StudentId   int       `json:"student_id"`
	AttemptId   string    `json:"attempt_id"`
	RawScore    *float64  `json:"raw_score"`
	RawMax      float64   `json:"raw_max"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type listAttemptsResponse struct {
	Attempts []*CbtAttempt `json:"attempts"`
}

func (c *CbtClient) GetExam(ctx context.Context, examId int) (*CbtExam, error) {
	exam, clientError := sendRequest[CbtExam](ctx, c.Client, RequestArgs{
		Endpoint: fmt.Sprintf("exams/%d", examId),
		Method:   "GET",
	})
	if clientError != nil {
		return nil, fmt.Errorf("cbt exam %d: %s", examId, clientError.Description)
	}
	return exam, nil
}

func (c *CbtClient) ListAttempts(ctx context.Context, examId int, since *time.Time) ([]*CbtAttempt, error) {
	queryParams := map[string]string{}
	if since != nil {
		queryParams["since"] = since.Format(time.RFC3339)
	}
	response, clientError := sendRequest[listAttemptsResponse](ctx, c.Client, RequestArgs{
		Endpoint:    fmt.Sprintf("exams/%d/attempts", examId),
		Method:      "GET",
		QueryParams: queryParams,
	})
	if clientError != nil {
		return nil, fmt.Errorf("cbt attempts for exam %d: %s", examId, clientError.Description)
	}
	return response.Attempts, nil
}
