package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/animx/internal/shared"
)

func TestAnimationService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Empty BaseURL", func(t *testing.T) {
			svc := NewAnimationService("", nil)
			if svc.baseURL != "http://localhost:8000" {
				t.Errorf("expected default baseURL, got %s", svc.baseURL)
			}
			if svc.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})

		t.Run("Name", func(t *testing.T) {
			svc := NewAnimationService("", nil)
			if svc.Name() != "Animation API" {
				t.Errorf("unexpected service name %s", svc.Name())
			}
		})
	})

	t.Run("Generate", func(t *testing.T) {
		t.Run("Successful Submission", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/generate" {
					t.Errorf("expected path /generate, got %s", r.URL.Path)
				}

				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("failed to read request body: %v", err)
				}

				// The backend only recognizes snake_case field names.
				var raw map[string]any
				if err := json.Unmarshal(body, &raw); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if raw["prompt"] != "bouncing ball" {
					t.Errorf("expected prompt 'bouncing ball', got %v", raw["prompt"])
				}
				if raw["conversation_id"] != "conv-1" {
					t.Errorf("expected conversation_id 'conv-1' in body %s", body)
				}

				json.NewEncoder(w).Encode(GenerateResponse{
					JobID:   "job-1",
					Status:  "pending",
					Message: "Job queued for processing",
				})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			resp, err := svc.Generate(context.Background(), GenerateRequest{Prompt: "bouncing ball", ConversationID: "conv-1"})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if resp.JobID != "job-1" {
				t.Errorf("expected job-1, got %s", resp.JobID)
			}
			if resp.Status != "pending" {
				t.Errorf("expected pending status, got %s", resp.Status)
			}
		})

		t.Run("Credentials Attached", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer session_token" {
					t.Errorf("expected bearer token, got %s", r.Header.Get("Authorization"))
				}
				if r.Header.Get(shared.APIKeyHeader) != "user_key" {
					t.Errorf("expected api key header, got %s", r.Header.Get(shared.APIKeyHeader))
				}
				json.NewEncoder(w).Encode(GenerateResponse{JobID: "job-1"})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			svc.SetToken("session_token")
			svc.SetAPIKey("user_key")

			if _, err := svc.Generate(context.Background(), GenerateRequest{Prompt: "x"}); err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
		})

		t.Run("Quota Exhausted", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Free quota exhausted"})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			_, err := svc.Generate(context.Background(), GenerateRequest{Prompt: "x"})
			if err == nil {
				t.Fatal("expected error for 402")
			}

			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected StatusError, got %T", err)
			}
			if !se.QuotaExhausted() {
				t.Error("expected QuotaExhausted() for 402")
			}
			if se.Retryable() {
				t.Error("402 should not be retryable")
			}
			if se.Detail != "Free quota exhausted" {
				t.Errorf("expected detail from body, got %s", se.Detail)
			}
		})

		t.Run("Server Error Is Retryable", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			_, err := svc.Generate(context.Background(), GenerateRequest{Prompt: "x"})

			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if !se.Retryable() {
				t.Error("5xx should be retryable")
			}
		})
	})

	t.Run("JobStatus", func(t *testing.T) {
		t.Run("Successful Poll", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/status/job-1" {
					t.Errorf("expected path /status/job-1, got %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(map[string]any{
					"job_id": "job-1",
					"status": "rendering (retry 2/3)",
				})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			status, err := svc.JobStatus(context.Background(), "job-1")
			if err != nil {
				t.Fatalf("JobStatus() error = %v", err)
			}
			if !status.Status.InProgress() {
				t.Errorf("suffixed rendering tag should still be in progress: %s", status.Status)
			}
		})

		t.Run("Legacy generated_code Alias", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"job_id":         "job-1",
					"status":         "completed",
					"generated_code": "from manim import *",
				})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			status, err := svc.JobStatus(context.Background(), "job-1")
			if err != nil {
				t.Fatalf("JobStatus() error = %v", err)
			}
			if status.Code != "from manim import *" {
				t.Errorf("expected code from alias field, got %q", status.Code)
			}
		})

		t.Run("Code Field Wins Over Alias", func(t *testing.T) {
			data := []byte(`{"job_id":"j","status":"completed","code":"new","generated_code":"old"}`)
			var status StatusResponse
			if err := json.Unmarshal(data, &status); err != nil {
				t.Fatalf("unmarshal error = %v", err)
			}
			if status.Code != "new" {
				t.Errorf("expected code field to win, got %q", status.Code)
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Job not found"})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			_, err := svc.JobStatus(context.Background(), "missing")
			if !errors.Is(err, shared.ErrJobNotFound) {
				t.Errorf("expected ErrJobNotFound, got %v", err)
			}
		})
	})

	t.Run("FailureReason", func(t *testing.T) {
		status := &StatusResponse{Status: "failed", ErrorMessage: "render crashed"}
		if status.FailureReason() != "render crashed" {
			t.Errorf("expected backend message, got %s", status.FailureReason())
		}

		status = &StatusResponse{Status: "failed"}
		if status.FailureReason() != DefaultErrorMessage {
			t.Errorf("expected default message, got %s", status.FailureReason())
		}
	})

	t.Run("VideoURL", func(t *testing.T) {
		svc := NewAnimationService("http://backend:8000", nil)
		want := "http://backend:8000/video/stream/job-1"
		if got := svc.VideoURL("job-1"); got != want {
			t.Errorf("VideoURL() = %s, want %s", got, want)
		}
	})

	t.Run("StreamVideo", func(t *testing.T) {
		t.Run("Writes Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/video/stream/job-1" {
					t.Errorf("expected stream path, got %s", r.URL.Path)
				}
				w.Write([]byte("mp4bytes"))
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			var buf bytes.Buffer
			n, err := svc.StreamVideo(context.Background(), "job-1", &buf)
			if err != nil {
				t.Fatalf("StreamVideo() error = %v", err)
			}
			if n != int64(len("mp4bytes")) {
				t.Errorf("expected %d bytes, got %d", len("mp4bytes"), n)
			}
			if buf.String() != "mp4bytes" {
				t.Errorf("unexpected body %q", buf.String())
			}
		})

		t.Run("Incomplete Job", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Job not completed"})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			var buf bytes.Buffer
			_, err := svc.StreamVideo(context.Background(), "job-1", &buf)

			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400 StatusError, got %v", err)
			}
		})
	})

	t.Run("Conversations", func(t *testing.T) {
		t.Run("List", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/conversations/" {
					t.Errorf("expected path /conversations/, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("limit") != "50" {
					t.Errorf("expected default limit 50, got %s", r.URL.Query().Get("limit"))
				}
				json.NewEncoder(w).Encode([]map[string]any{
					{"id": "c1", "title": "First"},
					{"id": "c2", "title": "Second"},
				})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			convs, err := svc.ListConversations(context.Background(), 0, 0)
			if err != nil {
				t.Fatalf("ListConversations() error = %v", err)
			}
			if len(convs) != 2 {
				t.Fatalf("expected 2 conversations, got %d", len(convs))
			}
			if convs[0].ConversationID != "c1" {
				t.Errorf("expected c1, got %s", convs[0].ConversationID)
			}
		})

		t.Run("Create Requires Title", func(t *testing.T) {
			svc := NewAnimationService("http://example.com", nil)
			_, err := svc.CreateConversation(context.Background(), "")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Rename Uses PATCH", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch {
					t.Errorf("expected PATCH, got %s", r.Method)
				}
				json.NewEncoder(w).Encode(map[string]any{"id": "c1", "title": "Renamed"})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			conv, err := svc.RenameConversation(context.Background(), "c1", "Renamed")
			if err != nil {
				t.Fatalf("RenameConversation() error = %v", err)
			}
			if conv.Title != "Renamed" {
				t.Errorf("expected renamed title, got %s", conv.Title)
			}
		})

		t.Run("Get Not Found", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			_, err := svc.GetConversation(context.Background(), "missing")
			if !errors.Is(err, shared.ErrConversationNotFound) {
				t.Errorf("expected ErrConversationNotFound, got %v", err)
			}
		})

		t.Run("Delete Not Found", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			err := svc.DeleteConversation(context.Background(), "missing")
			if !errors.Is(err, shared.ErrConversationNotFound) {
				t.Errorf("expected ErrConversationNotFound, got %v", err)
			}
		})
	})

	t.Run("Jobs", func(t *testing.T) {
		t.Run("List Clamps Limit", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/jobs/" {
					t.Errorf("expected path /jobs/, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("limit") != "100" {
					t.Errorf("expected clamped limit 100, got %s", r.URL.Query().Get("limit"))
				}
				json.NewEncoder(w).Encode(map[string]any{"jobs": []any{}, "total": 0, "limit": 100, "offset": 0})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			if _, err := svc.ListJobs(context.Background(), 500, 0, ""); err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
		})

		t.Run("Public Gallery With Search", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/jobs/public" {
					t.Errorf("expected path /jobs/public, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("search") != "circle" {
					t.Errorf("expected search=circle, got %s", r.URL.Query().Get("search"))
				}
				json.NewEncoder(w).Encode(map[string]any{
					"jobs":   []map[string]any{{"id": "j1", "prompt": "circle", "status": "completed"}},
					"total":  1,
					"limit":  20,
					"offset": 0,
				})
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			page, err := svc.PublicJobs(context.Background(), 20, 0, "circle")
			if err != nil {
				t.Fatalf("PublicJobs() error = %v", err)
			}
			if page.Total != 1 || len(page.Jobs) != 1 {
				t.Errorf("unexpected page %+v", page)
			}
		})

		t.Run("Delete Not Found", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			svc := NewAnimationService(server.URL, nil)
			err := svc.DeleteJob(context.Background(), "missing")
			if !errors.Is(err, shared.ErrJobNotFound) {
				t.Errorf("expected ErrJobNotFound, got %v", err)
			}
		})
	})

	t.Run("Health and Stats", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/health":
				json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", GeminiConfigured: true, Version: "3.0.0"})
			case "/stats":
				json.NewEncoder(w).Encode(StatsResponse{TotalJobs: 10, Completed: 8, Failed: 1, Pending: 1, SuccessRate: 80.0})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		svc := NewAnimationService(server.URL, nil)

		health, err := svc.Health(context.Background())
		if err != nil {
			t.Fatalf("Health() error = %v", err)
		}
		if health.Status != "healthy" || !health.GeminiConfigured {
			t.Errorf("unexpected health %+v", health)
		}

		stats, err := svc.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.TotalJobs != 10 || stats.SuccessRate != 80.0 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})
}
