package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/goalcast/internal/markets"
	"github.com/yourusername/goalcast/internal/service"
)

func TestRender(t *testing.T) {
	p := &service.Prediction{
		HomeTeam: "Arsenal",
		AwayTeam: "Chelsea",
		Forecast: markets.MatchForecast{
			OneXTwo: markets.OneXTwoPrediction{Home: 0.5, Draw: 0.3, Away: 0.2},
		},
		TrainedOn: 380,
	}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, p, "json"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Arsenal", decoded["home_team"])
	assert.EqualValues(t, 380, decoded["trained_on"])

	buf.Reset()
	require.NoError(t, render(&buf, p, "yaml"))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, "Chelsea", fromYAML["away_team"])
	forecast := fromYAML["forecast"].(map[string]any)
	assert.Contains(t, forecast, "1x2")

	assert.Error(t, render(&buf, p, "toml"))
}
