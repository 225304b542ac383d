package geo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFix(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestStaticLocator(t *testing.T) {
	l := NewStaticLocator(23.81, 90.41)
	fix, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 23.81, fix.Latitude)
	assert.Equal(t, 90.41, fix.Longitude)
	assert.False(t, fix.TakenAt.IsZero())

	_, err = NewStaticLocator(100, 0).Locate(context.Background())
	assert.ErrorIs(t, err, ErrPositionUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Locate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnsupportedLocator(t *testing.T) {
	_, err := UnsupportedLocator{}.Locate(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, "unsupported", Reason(err))
}

func TestFileLocator(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 30, 0, time.UTC)

	tests := []struct {
		name    string
		content string
		wantErr error
		wantLat float64
	}{
		{
			name:    "fresh fix",
			content: "latitude: 51.5\nlongitude: -0.12\ntaken_at: 2026-10-18T09:00:00Z\n",
			wantLat: 51.5,
		},
		{
			name:    "json fix without timestamp",
			content: `{"latitude": 1.25, "longitude": 2.5}`,
			wantLat: 1.25,
		},
		{
			name:    "stale fix",
			content: "latitude: 51.5\nlongitude: -0.12\ntaken_at: 2026-10-18T08:00:00Z\n",
			wantErr: ErrPositionUnavailable,
		},
		{
			name:    "permission denied",
			content: "error: permission_denied\n",
			wantErr: ErrPermissionDenied,
		},
		{
			name:    "missing coordinates",
			content: "taken_at: 2026-10-18T09:00:00Z\n",
			wantErr: ErrPositionUnavailable,
		},
		{
			name:    "garbage",
			content: "::: not yaml",
			wantErr: ErrPositionUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewFileLocator(writeFix(t, tt.content), time.Minute)
			l.now = func() time.Time { return now }

			fix, err := l.Locate(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLat, fix.Latitude)
		})
	}
}

func TestFileLocatorMissingFile(t *testing.T) {
	l := NewFileLocator(filepath.Join(t.TempDir(), "absent.yaml"), 0)
	_, err := l.Locate(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFileLocatorRereadsEveryCall(t *testing.T) {
	path := writeFix(t, "latitude: 1\nlongitude: 1\n")
	l := NewFileLocator(path, 0)

	first, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.Latitude)

	require.NoError(t, os.WriteFile(path, []byte("latitude: 2\nlongitude: 1\n"), 0600))
	second, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, second.Latitude)
}
