package jobrecord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var forecastNow = time.Date(2024, 5, 6, 14, 0, 0, 0, time.UTC)

func TestForecast(t *testing.T) {
	rec, err := Forecast(ForecastInput{Walltime: "01:00:00", Memory: "16gb", Cores: 4}, forecastNow)
	require.NoError(t, err)

	assert.Equal(t, forecastNow, rec.Start)
	assert.Equal(t, forecastNow.Add(time.Hour), rec.End)
	assert.Equal(t, 4, rec.Cores)
	assert.Equal(t, 0, rec.GPUs)
	assert.Equal(t, 16.0, rec.MemoryGB)
	assert.Equal(t, 1, rec.RAMSticks())
	assert.Equal(t, 14400.0, rec.CPUTimeSeconds())
	assert.Equal(t, 3600.0, rec.WalltimeSeconds())
}

func TestForecast_ZeroFloors(t *testing.T) {
	tests := []struct {
		name  string
		in    ForecastInput
		check func(t *testing.T, r Record)
	}{
		{
			name: "zero walltime becomes one second",
			in:   ForecastInput{Walltime: "0:00:00", Memory: "1gb", Cores: 1},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, time.Second, r.Walltime)
				assert.Equal(t, forecastNow.Add(time.Second), r.End)
			},
		},
		{
			name: "zero memory becomes one gigabyte",
			in:   ForecastInput{Walltime: "01:00:00", Memory: "0", Cores: 1},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, 1.0, r.MemoryGB)
			},
		},
		{
			name: "zero suffixed memory becomes one gigabyte",
			in:   ForecastInput{Walltime: "01:00:00", Memory: "0gb", Cores: 1},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, 1.0, r.MemoryGB)
			},
		},
		{
			name: "zero cores becomes one core",
			in:   ForecastInput{Walltime: "01:00:00", Memory: "1gb", Cores: 0},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, 1, r.Cores)
				assert.Equal(t, time.Hour, r.CPUTime)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Forecast(tt.in, forecastNow)
			require.NoError(t, err)
			tt.check(t, rec)
		})
	}
}

func TestForecast_Errors(t *testing.T) {
	_, err := Forecast(ForecastInput{Walltime: "1h", Memory: "1gb", Cores: 1}, forecastNow)
	assert.ErrorIs(t, err, ErrMalformedWalltime)

	_, err = Forecast(ForecastInput{Walltime: "01:00:00", Memory: "1zb", Cores: 1}, forecastNow)
	assert.ErrorIs(t, err, ErrUnknownMemoryUnit)

	_, err = Forecast(ForecastInput{Walltime: "01:00:00", Memory: "inf", Cores: 1}, forecastNow)
	assert.ErrorIs(t, err, ErrMalformedMemory)

	_, err = Forecast(ForecastInput{Walltime: "01:00:00", Memory: "1gb", Cores: -2}, forecastNow)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = Forecast(ForecastInput{Walltime: "01:00:00", Memory: "1gb", Cores: 1, GPUs: -1}, forecastNow)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
