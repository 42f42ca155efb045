package main

import "testing"

func TestStatusReportsStageCounts(t *testing.T) {
	configPath := writeCLIConfig(t)

	for _, origin := range []string{"videos/1/a.mp4", "videos/2/b.mp4"} {
		if _, _, err := runCLI(t, configPath, "session", "add", origin); err != nil {
			t.Fatalf("session add %s: %v", origin, err)
		}
	}

	out, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Sessions: 2")
	requireContains(t, out, "encoding")
	requireContains(t, out, "script")
	requireContains(t, out, "analyze")
}

func TestStatusEmptyStore(t *testing.T) {
	configPath := writeCLIConfig(t)

	out, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Sessions: 0")
}
