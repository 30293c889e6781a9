// Package actions provides the interface-boundary glue between step ids
// and the collaborator services that own the business logic (payment,
// inventory, carriers, notifications). The orchestrator never owns that
// logic: an action here either POSTs the workflow context to a
// configured collaborator endpoint or, with no endpoint configured,
// returns a provisional local output.
package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/pkg/catalog"
	"github.com/maz279/getit-project-v2-sub015/pkg/engine"
	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

// Logger is the narrow logging surface actions need.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

const defaultTimeout = 30 * time.Second

// HTTPAction builds an action that POSTs the workflow context to a
// collaborator endpoint and returns its JSON response as the step
// output. A non-2xx response is a failed attempt, eligible for retry.
func HTTPAction(client *http.Client, stepID, url string) engine.ActionFunc {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return func(ctx context.Context, wfCtx models.Context) (interface{}, error) {
		body, err := json.Marshal(wfCtx)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal context for step '%s'", stepID)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, errors.Wrapf(err, "build request for step '%s'", stepID)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "call collaborator for step '%s'", stepID)
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "read collaborator response for step '%s'", stepID)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errors.Errorf("collaborator for step '%s' returned %d: %s",
				stepID, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		if len(raw) == 0 {
			return map[string]interface{}{"status": "accepted"}, nil
		}
		var output interface{}
		if err := json.Unmarshal(raw, &output); err != nil {
			// Collaborators are not required to speak JSON.
			return string(raw), nil
		}
		return output, nil
	}
}

// LocalAction returns a provisional success output without calling out.
// Used when no collaborator endpoint is configured for a step.
func LocalAction(stepID string) engine.ActionFunc {
	return func(ctx context.Context, wfCtx models.Context) (interface{}, error) {
		return map[string]interface{}{
			"step":   stepID,
			"status": "accepted",
		}, nil
	}
}

// EndpointEnvVar maps a step id to its collaborator URL environment
// variable, e.g. "payment-processing" -> "PAYMENT_PROCESSING_URL".
func EndpointEnvVar(stepID string) string {
	return strings.ToUpper(strings.ReplaceAll(stepID, "-", "_")) + "_URL"
}

// RegisterFromEnv binds an action for every step of every catalog
// variant: an HTTP action when the step's endpoint env var is set, a
// local provisional action otherwise.
func RegisterFromEnv(exec *engine.Executor, cat *catalog.Catalog, logger Logger) error {
	client := &http.Client{Timeout: defaultTimeout}
	registered := make(map[string]struct{})
	for _, variant := range cat.Variants() {
		defs, err := cat.Steps(variant)
		if err != nil {
			return err
		}
		for _, def := range defs {
			if _, done := registered[def.ID]; done {
				continue
			}
			registered[def.ID] = struct{}{}
			url := os.Getenv(EndpointEnvVar(def.ID))
			if url == "" {
				logger.Infof("No %s set, step '%s' uses a local provisional action", EndpointEnvVar(def.ID), def.ID)
				if err := exec.Register(def.ID, LocalAction(def.ID)); err != nil {
					return err
				}
				continue
			}
			if err := exec.Register(def.ID, HTTPAction(client, def.ID, url)); err != nil {
				return err
			}
		}
	}
	return nil
}
