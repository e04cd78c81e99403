package diagserver

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleStatusReportsCurrentSnapshot(t *testing.T) {
	s := New()
	s.SetStatus(Status{Phase: "InFlash", BytesTransferred: 4096})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Phase != "InFlash" || got.BytesTransferred != 4096 {
		t.Errorf("want {InFlash 4096}, got %+v", got)
	}
}

func TestProgressFuncAccumulatesBytes(t *testing.T) {
	s := New()
	fn := s.ProgressFunc("InFlash")
	fn(100)
	fn(50)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var got Status
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.BytesTransferred != 150 {
		t.Errorf("want 150, got %d", got.BytesTransferred)
	}
}

func TestHandleProbeReportsReachableListener(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	s := New()
	req := httptest.NewRequest(http.MethodGet, "/probe?addr="+ln.Addr().String(), nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var got probeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Reachable {
		t.Errorf("want reachable=true, got %+v", got)
	}
}

func TestHandleProbeMissingAddrIsBadRequest(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("want 400, got %d", rec.Code)
	}
}
