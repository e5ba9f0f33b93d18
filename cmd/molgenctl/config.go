package main

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	molapi "molgen/pkg/molgen"
)

func loadEvaluateRequestFromConfig(path string) (molapi.EvaluateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return molapi.EvaluateRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return molapi.EvaluateRequest{}, err
	}

	var req molapi.EvaluateRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asStringSlice(raw["vocab"]); ok {
		req.Vocab = v
	}
	if v, ok := asInt(raw["max_length"]); ok {
		req.MaxLength = v
	}
	if v, ok := asInt(raw["envs"]); ok {
		req.NumEnvs = v
	}
	if v, ok := asInt(raw["hidden_width"]); ok {
		req.HiddenWidth = v
	}
	if v, ok := asInt(raw["layers"]); ok {
		req.NumLayers = v
	}
	if v, ok := asFloat64(raw["temperature"]); ok {
		req.Temperature = v
	}
	if v, ok := asInt(raw["rnd_features"]); ok {
		req.RNDOutFeatures = v
	}
	if v, ok := asInt(raw["episodes"]); ok {
		req.EpisodeTarget = v
	}
	if v, ok := asInt(raw["unique"]); ok {
		req.UniqueTarget = v
	}
	if v, ok := asStringSlice(raw["refset"]); ok {
		req.Refset = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asStringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func sortedScoreNames(scores map[string]float64) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
