package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportJob_RoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	job := NewReportJob(7, now)
	assert.Equal(t, GenerateMonthlyReport, job.Name)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 0, job.Attempt)
	assert.Equal(t, time.UTC, job.EnqueuedAt.Location())

	body, err := job.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"user_id":7`)

	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, job.ID, decoded.ID)
	assert.True(t, now.Equal(decoded.EnqueuedAt))

	userID, err := decoded.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"name":`},
		{"missing name", `{"args":{"user_id":1}}`},
		{"negative attempt", `{"name":"generate_monthly_report","attempt":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := Decode([]byte(tt.body))
			require.ErrorIs(t, err, ErrInvalidJob)
			assert.Nil(t, job)
		})
	}
}

func TestJob_UserID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int64
		wantErr bool
	}{
		{"integer", `{"name":"x","args":{"user_id":42}}`, 42, false},
		{"missing", `{"name":"x","args":{}}`, 0, true},
		{"fractional", `{"name":"x","args":{"user_id":4.2}}`, 0, true},
		{"string", `{"name":"x","args":{"user_id":"42"}}`, 0, true},
		{"zero", `{"name":"x","args":{"user_id":0}}`, 0, true},
		{"negative", `{"name":"x","args":{"user_id":-3}}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := Decode([]byte(tt.body))
			require.NoError(t, err)

			got, err := job.UserID()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidJob)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJob_NextAttempt(t *testing.T) {
	job := NewReportJob(3, time.Now())

	next := job.NextAttempt()
	assert.Equal(t, 1, next.Attempt)
	assert.Equal(t, 0, job.Attempt)
	assert.Equal(t, job.ID, next.ID)

	next.Args["user_id"] = int64(99)
	userID, err := job.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(3), userID)
}
