package models

import "time"

// MergeResult summarizes one merge call: how many base records gained
// annotations and how many candidates were left unresolved.
type MergeResult struct {
	Merged     int `json:"merged"`
	Unresolved int `json:"unresolved"`
}

// SourceResult summarizes processing of one annotation source across all of
// its files.
type SourceResult struct {
	Prefix     string `json:"prefix"`
	Files      int    `json:"files"`
	Parsed     int    `json:"parsed"`
	Merged     int    `json:"merged"`
	Unresolved int    `json:"unresolved"`
	Initial    bool   `json:"initial"`
}

// BuildResult accumulates per-source results for one create or update run.
type BuildResult struct {
	Sources []SourceResult `json:"sources"`
}

// Run is one catalog entry: a single create or update invocation.
type Run struct {
	ID        int64          `json:"id"`
	Command   string         `json:"command"`
	StorePath string         `json:"store_path"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Sources   []SourceResult `json:"sources"`
}
