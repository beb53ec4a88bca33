package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", d.String())

	_, err = ParseDate("10/01/2024")
	assert.Error(t, err)
}

func TestDateJSONRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-01-09")
	require.NoError(t, err)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-09"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d.String(), back.String())

	assert.Error(t, json.Unmarshal([]byte(`"not-a-date"`), &back))
}

func TestDateScan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-10", d.String())

	require.NoError(t, d.Scan("2024-02-20"))
	assert.Equal(t, "2024-02-20", d.String())

	require.NoError(t, d.Scan([]byte("2024-03-30")))
	assert.Equal(t, "2024-03-30", d.String())

	assert.Error(t, d.Scan(42))
}
