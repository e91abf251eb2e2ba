package processdb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     string
		wantStatus  int
		wantImpacts int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"process_id": "proc-1",
				"impact_method": "EF 3.1",
				"impacts": [
					{"category": "Climate change", "amount": 2.1, "unit": "kg CO2 eq"},
					{"category": "Water use", "amount": 0.4, "unit": "m3 depriv."}
				]
			}`,
			wantImpacts: 2,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":"slow down"}`,
			wantErr:    "unexpected status 429",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       `{"error":"unknown process"}`,
			wantErr:    "unexpected status 404",
			wantStatus: http.StatusNotFound,
		},
		{
			name:    "bad json",
			status:  http.StatusOK,
			body:    `{not json`,
			wantErr: "processdb: unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/calculations", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				raw, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				var req CalculationRequest
				require.NoError(t, json.Unmarshal(raw, &req))
				assert.Equal(t, "proc-1", req.ProcessID)
				assert.Equal(t, 1.0, req.Amount)
				assert.Equal(t, "EF 3.1", req.Method)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("test-key", WithBaseURL(srv.URL))
			resp, err := c.Calculate(context.Background(), CalculationRequest{ProcessID: "proc-1"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				if tt.wantStatus != 0 {
					var se *StatusError
					require.True(t, errors.As(err, &se))
					assert.Equal(t, tt.wantStatus, se.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "proc-1", resp.ProcessID)
			assert.Len(t, resp.Impacts, tt.wantImpacts)
			assert.Equal(t, "Climate change", resp.Impacts[0].Category)
			assert.Equal(t, 2.1, resp.Impacts[0].Amount)
		})
	}
}

func TestCalculate_MethodOverride(t *testing.T) {
	var got CalculationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		// Response omits process id and method; the client fills them in.
		_, _ = w.Write([]byte(`{"impacts": []}`))
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithMethod("ReCiPe 2016"))
	resp, err := c.Calculate(context.Background(), CalculationRequest{ProcessID: "p", Amount: 3})
	require.NoError(t, err)
	assert.Equal(t, "ReCiPe 2016", got.Method)
	assert.Equal(t, 3.0, got.Amount)
	assert.Equal(t, "p", resp.ProcessID)
	assert.Equal(t, "ReCiPe 2016", resp.Method)
}

func TestCalculate_MissingProcessID(t *testing.T) {
	c := NewClient("k")
	_, err := c.Calculate(context.Background(), CalculationRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process id is required")
}

func TestCalculate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.Calculate(context.Background(), CalculationRequest{ProcessID: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processdb: send request")
}

func TestStatusError_Temporary(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, (&StatusError{StatusCode: code}).Temporary(), "code %d", code)
	}
	for _, code := range []int{400, 401, 404, 501} {
		assert.False(t, (&StatusError{StatusCode: code}).Temporary(), "code %d", code)
	}
}
