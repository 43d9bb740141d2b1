package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/graph-arbitrage/internal/logger"
)

func TestHealthReportsDegradedCheck(t *testing.T) {
	s := NewServer(0, "test", logger.NewDiscard())
	s.RegisterCheck("exchange", func(context.Context) (bool, string) { return true, "" })
	s.RegisterCheck("cycle", func(context.Context) (bool, string) { return false, "no cycle for 30s" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}

	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Status != "degraded" || st.Version != "test" {
		t.Errorf("status = %+v", st)
	}
	if st.Checks["cycle"].Message != "no cycle for 30s" {
		t.Errorf("cycle check = %+v", st.Checks["cycle"])
	}
}

func TestReadyAndLive(t *testing.T) {
	s := NewServer(0, "test", logger.NewDiscard())
	s.RegisterCheck("cycle", func(context.Context) (bool, string) { return true, "" })

	for _, path := range []string{"/ready", "/live"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestStartFailsWhenPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	s := NewServer(port, "test", logger.NewDiscard())
	if err := s.Start(); err == nil {
		s.Stop(context.Background())
		t.Fatal("expected listen error on a taken port")
	}
}

func TestReportWithoutChecks(t *testing.T) {
	s := NewServer(0, "v1", logger.NewDiscard())
	st := s.Report(context.Background())
	if st.Status != "ok" || len(st.Checks) != 0 {
		t.Errorf("status = %+v", st)
	}
}
