package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00.00", FormatClock(0))
	assert.Equal(t, "00:00:01.50", FormatClock(1500))
	assert.Equal(t, "01:02:03.99", FormatClock(3723990))
	assert.Equal(t, "00:00:00.00", FormatClock(-5))
}

func TestFormatLap(t *testing.T) {
	assert.Equal(t, "00:00.00", FormatLap(0))
	assert.Equal(t, "01:15.25", FormatLap(75250))
	assert.Equal(t, "1:00:00.00", FormatLap(3600000))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "0s", FormatDuration(999))
	assert.Equal(t, "45s", FormatDuration(45000))
	assert.Equal(t, "2m 5s", FormatDuration(125000))
	assert.Equal(t, "5h 33m 11s", FormatDuration(5*3600000+33*60000+11000))
}
