package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/propline/propline/app/dto"
	businessflow "github.com/propline/propline/business_flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRotationFlow struct {
	outcome  *businessflow.TriggerOutcome
	err      error
	triggers int
}

func (s *stubRotationFlow) EnsureSeeded(ctx context.Context) error { return nil }

func (s *stubRotationFlow) Trigger(ctx context.Context, metadata *businessflow.ClientMetadata) (*businessflow.TriggerOutcome, error) {
	s.triggers++
	return s.outcome, s.err
}

func (s *stubRotationFlow) GetState(ctx context.Context) (*dto.RotationStateDTO, error) {
	return nil, nil
}

func (s *stubRotationFlow) GetSchedule(ctx context.Context) ([]dto.RotationConfigDTO, error) {
	return nil, nil
}

func (s *stubRotationFlow) UpdateSchedule(ctx context.Context, req *dto.UpdateScheduleRequest, metadata *businessflow.ClientMetadata) (*dto.RotationConfigDTO, error) {
	return nil, nil
}

func (s *stubRotationFlow) ListRuns(ctx context.Context, page, pageSize int) ([]dto.CycleRunDTO, error) {
	return nil, nil
}

func newTriggerApp(flow businessflow.RotationFlow, secret string) *fiber.App {
	app := fiber.New()
	handler := NewRotationHandler(flow, nil, secret)
	app.Post("/api/v1/rotation/trigger", handler.Trigger)
	return app
}

func postTrigger(t *testing.T, app *fiber.App, headers map[string]string) (int, dto.APIResponse) {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/v1/rotation/trigger", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func skippedOutcome() *businessflow.TriggerOutcome {
	return &businessflow.TriggerOutcome{
		Skipped: &dto.RotationSkippedData{
			CurrentCycle: 2,
			NextRunAt:    time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestRotationTriggerAuthorization(t *testing.T) {
	tests := []struct {
		name           string
		secret         string
		headers        map[string]string
		expectedStatus int
		expectTrigger  bool
	}{
		{
			name:           "secret configured and matching",
			secret:         "s3cret",
			headers:        map[string]string{"X-Rotation-Secret": "s3cret"},
			expectedStatus: fiber.StatusOK,
			expectTrigger:  true,
		},
		{
			name:           "secret configured but wrong",
			secret:         "s3cret",
			headers:        map[string]string{"X-Rotation-Secret": "nope"},
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "secret configured, scheduler identity alone rejected",
			secret:         "s3cret",
			headers:        map[string]string{"X-Internal-Trigger": "scheduler"},
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "no secret, scheduler identity accepted",
			secret:         "",
			headers:        map[string]string{"X-Internal-Trigger": "scheduler"},
			expectedStatus: fiber.StatusOK,
			expectTrigger:  true,
		},
		{
			name:           "no secret, unknown identity rejected",
			secret:         "",
			headers:        map[string]string{"X-Internal-Trigger": "curl"},
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "no secret, no headers rejected",
			secret:         "",
			headers:        nil,
			expectedStatus: fiber.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &stubRotationFlow{outcome: skippedOutcome()}
			app := newTriggerApp(flow, tt.secret)

			status, body := postTrigger(t, app, tt.headers)

			assert.Equal(t, tt.expectedStatus, status)
			if tt.expectTrigger {
				assert.Equal(t, 1, flow.triggers)
				assert.True(t, body.Success)
			} else {
				assert.Equal(t, 0, flow.triggers)
				assert.False(t, body.Success)
			}
		})
	}
}

func TestRotationTriggerMessages(t *testing.T) {
	t.Run("not due", func(t *testing.T) {
		flow := &stubRotationFlow{outcome: skippedOutcome()}
		app := newTriggerApp(flow, "s3cret")

		status, body := postTrigger(t, app, map[string]string{"X-Rotation-Secret": "s3cret"})

		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "Not time yet", body.Message)
	})

	t.Run("sent", func(t *testing.T) {
		flow := &stubRotationFlow{outcome: &businessflow.TriggerOutcome{
			Sent: &dto.RotationSentData{
				CycleNumber:    2,
				RecipientCount: 7,
				SentCount:      7,
				NextCycle:      3,
				NextRunAt:      time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC),
			},
		}}
		app := newTriggerApp(flow, "s3cret")

		status, body := postTrigger(t, app, map[string]string{"X-Rotation-Secret": "s3cret"})

		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "Sent cycle 2 to 7 recipients", body.Message)
	})

	t.Run("precondition failure maps to conflict", func(t *testing.T) {
		flow := &stubRotationFlow{err: businessflow.NewBusinessError(
			"NO_ACTIVE_RECIPIENTS", "No active recipients", businessflow.ErrNoActiveRecipients)}
		app := newTriggerApp(flow, "s3cret")

		status, body := postTrigger(t, app, map[string]string{"X-Rotation-Secret": "s3cret"})

		assert.Equal(t, fiber.StatusConflict, status)
		assert.False(t, body.Success)
	})
}
