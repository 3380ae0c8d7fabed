package model

import (
	"context"
	"fmt"
	"time"

	domsvc "SepsisWatch/internal/domain/service"
	"SepsisWatch/pkg/config"
	xhttp "SepsisWatch/pkg/http"
)

// RemoteScorer calls an external model service over HTTP. The service receives
// the already-derived feature vector and returns a calibrated probability in
// [0,1]; everything downstream of the raw score stays local.
type RemoteScorer struct {
	baseURL string
	client  *xhttp.Client
}

// NewRemoteScorer builds a scorer for the configured model endpoint.
// Returns nil when no URL is configured, which keeps scoring rule-based.
func NewRemoteScorer(cfg *config.Config) *RemoteScorer {
	if cfg.Model.URL == "" {
		return nil
	}
	timeout := cfg.Model.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RemoteScorer{
		baseURL: cfg.Model.URL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type scoreRequest struct {
	PatientID string             `json:"patient_id"`
	Features  map[string]float64 `json:"features"`
	Flags     map[string]bool    `json:"flags"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

func (s *RemoteScorer) Score(ctx context.Context, patientID string, features map[string]float64, flags map[string]bool) (float64, error) {
	var resp scoreResponse
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    s.baseURL + "/score",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: scoreRequest{PatientID: patientID, Features: features, Flags: flags},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("model score: %w", err)
	}
	if resp.Score < 0 || resp.Score > 1 {
		return 0, fmt.Errorf("model score out of range: %v", resp.Score)
	}
	return resp.Score, nil
}

var _ domsvc.ModelScorer = (*RemoteScorer)(nil)
