package controller_test

import (
	"net/http"
	"net/http/httptest"
	"research/pkg/controller"
	"testing"
)

func TestPprofMux_Index(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	controller.PprofMux().ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Result().StatusCode)
	}
}
