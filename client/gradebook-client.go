package client

import (
	"context"
	"fmt"
)

// GradebookClient writes approved scores into the gradebook of record. The
// gradebook endpoint is an upsert keyed by (student, component, class, term,
// session), so repeating a write with the same key is safe.
type GradebookClient struct {
	Client *HttpClient
}

func NewGradebookClient(baseURL string, apiKey string, timeOutSeconds int) (*GradebookClient, error) {
	httpClient, err := NewHttpClient(baseURL, apiKey, "gradebook", timeOutSeconds)
	if err != nil {
		return nil, err
	}
	return &GradebookClient{Client: httpClient}, nil
}

type GradebookScoreKey struct {
	StudentId   int  `json:"student_id"`
	ComponentId int  `json:"component_id"`
	ClassId     *int `json:"class_id"`
	TermId      int  `json:"term_id"`
	SessionId   int  `json:"session_id"`
}

type gradebookUpsertRequest struct {
	GradebookScoreKey
	Score float64 `json:"score"`
}

type gradebookUpsertResponse struct {
	Ok bool `json:"ok"`
}

func (c *GradebookClient) UpsertScore(ctx context.Context, key GradebookScoreKey, score float64) error {
	_, clientError := sendRequest[gradebookUpsertResponse](ctx, c.Client, RequestArgs{
		Endpoint: "scores",
		Method:   "PUT",
		BodyRaw:  gradebookUpsertRequest{GradebookScoreKey: key, Score: score},
	})
	if clientError != nil {
		return fmt.Errorf("gradebook upsert for student %d: %s", key.StudentId, clientError.Description)
	}
	return nil
}
