package export

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{999400 * time.Microsecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{12340 * time.Millisecond, "12.34s"},
		{90 * time.Second, "1m 30s"},
		{119900 * time.Millisecond, "1m 59s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

func TestExportResultHelpers(t *testing.T) {
	r := NewSuccessResult("/tmp/x.sql.gz", 1536*1024, 2*time.Second, []string{"a", "b"}, []string{"b"}, true)

	assert.True(t, r.Success)
	assert.Equal(t, 2, r.TableCount())
	assert.Equal(t, "1.5 MB", r.HumanFileSize())
	assert.Equal(t, "2s", r.HumanDuration())
}

func TestNewFailureResult(t *testing.T) {
	r := NewFailureResult(errors.New("boom"), time.Second)

	assert.False(t, r.Success)
	assert.Equal(t, "boom", r.Error)
	assert.Zero(t, r.TableCount())
}
