package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"scriptflow/internal/daemon"
	"scriptflow/internal/objectstore"
	"scriptflow/internal/scheduler"
	"scriptflow/internal/session"
	"scriptflow/internal/testsupport"
)

type idleJob struct{}

func (idleJob) Name() string              { return "idle" }
func (idleJob) Run(context.Context) error { return nil }

func startDaemon(t *testing.T) (*daemon.Daemon, *session.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sched := scheduler.New(store, []scheduler.Entry{{Job: idleJob{}, Interval: time.Hour}}, 0, nil)
	blobs, err := objectstore.NewFS(cfg)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	d, err := daemon.New(cfg, store, sched, blobs, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, store
}

func TestLivenessAndReadiness(t *testing.T) {
	d, _ := startDaemon(t)
	base := "http://" + d.MonitorAddr()

	for _, path := range []string{"/monitor/liveness", "/monitor/readiness"} {
		resp, err := http.Post(base+path, "application/json", nil)
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("POST %s status = %d", path, resp.StatusCode)
		}
	}

	// Probes reject GET.
	resp, err := http.Get(base + "/monitor/liveness")
	if err != nil {
		t.Fatalf("GET liveness failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET liveness status = %d, want 405", resp.StatusCode)
	}
}

func TestStatusReportsStageCounts(t *testing.T) {
	d, store := startDaemon(t)

	testsupport.SeedSession(t, store, "videos/1/v.mp4", nil)
	testsupport.SeedSession(t, store, "videos/2/v.mp4", map[session.Stage]session.StageState{
		session.StageEncoding: session.StateDone,
		session.StageScript:   session.StateReady,
	})

	resp, err := http.Get("http://" + d.MonitorAddr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status failed: %v", err)
	}
	defer resp.Body.Close()

	var status struct {
		Running bool                        `json:"running"`
		Total   int64                       `json:"total_sessions"`
		Stages  map[string]map[string]int64 `json:"stages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.Total != 2 {
		t.Fatalf("status = %+v", status)
	}
	if status.Stages["encoding"]["READY"] != 1 || status.Stages["script"]["READY"] != 1 {
		t.Fatalf("stage counts = %v", status.Stages)
	}
}

func TestSessionEndpoints(t *testing.T) {
	d, store := startDaemon(t)
	sess := testsupport.SeedSession(t, store, "videos/3/v.mp4", nil)
	base := "http://" + d.MonitorAddr()

	resp, err := http.Get(base + "/api/sessions")
	if err != nil {
		t.Fatalf("GET sessions failed: %v", err)
	}
	var listed []struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	resp.Body.Close()
	if len(listed) != 1 || listed[0].ID != sess.ID {
		t.Fatalf("listed = %+v", listed)
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/sessions/%d", base, sess.ID))
	if err != nil {
		t.Fatalf("GET session failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET session status = %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/sessions/99999")
	if err != nil {
		t.Fatalf("GET missing session failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing session status = %d, want 404", resp.StatusCode)
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sched := scheduler.New(store, nil, 0, nil)
	blobs, err := objectstore.NewFS(cfg)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	first, err := daemon.New(cfg, store, sched, blobs, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, scheduler.New(store, nil, 0, nil), blobs, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestCreateSessionIssuesUploadURL(t *testing.T) {
	d, store := startDaemon(t)
	base := "http://" + d.MonitorAddr()

	body := strings.NewReader(`{"origin_video_url": "videos/4/v.mp4", "content_type": "video/mp4"}`)
	resp, err := http.Post(base+"/api/sessions", "application/json", body)
	if err != nil {
		t.Fatalf("POST session failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST session status = %d, want 201", resp.StatusCode)
	}

	var created struct {
		Session struct {
			ID             int64  `json:"id"`
			OriginVideoURL string `json:"origin_video_url"`
			EncodingState  string `json:"encoding_state"`
		} `json:"session"`
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Session.OriginVideoURL != "videos/4/v.mp4" || created.Session.EncodingState != "READY" {
		t.Fatalf("created = %+v", created.Session)
	}
	if !strings.Contains(created.UploadURL, "signature=") {
		t.Fatalf("upload url not presigned: %q", created.UploadURL)
	}

	if _, err := store.GetByID(context.Background(), created.Session.ID); err != nil {
		t.Fatalf("created session missing from store: %v", err)
	}

	resp, err = http.Post(base+"/api/sessions", "application/json", strings.NewReader(`{"origin_video_url": ""}`))
	if err != nil {
		t.Fatalf("POST blank session failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank origin status = %d, want 400", resp.StatusCode)
	}
}
