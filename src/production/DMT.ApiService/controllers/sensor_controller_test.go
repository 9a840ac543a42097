package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	logger "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Logger"
	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
)

type fakeReadingRepo struct {
	readings []dmtmodels.Reading
	err      error

	lastArea  string
	lastLimit int
}

func (f *fakeReadingRepo) UpsertReading(context.Context, dmtmodels.Reading) error { return nil }
func (f *fakeReadingRepo) InsertReading(context.Context, dmtmodels.Reading) error { return nil }

func (f *fakeReadingRepo) FindAll(context.Context) ([]dmtmodels.Reading, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.readings, nil
}

func (f *fakeReadingRepo) FindLatestByArea(_ context.Context, area string, limit int) ([]dmtmodels.Reading, error) {
	f.lastArea = area
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.readings, nil
}

func newSensorRouter(repo *fakeReadingRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewSensorController(repo, logger.GetGlobalLogger()).RegisterRoutes(router)
	return router
}

func TestGetSensors(t *testing.T) {
	repo := &fakeReadingRepo{readings: []dmtmodels.Reading{
		{DeviceID: "DEV02", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
		{DeviceID: "DEV01", CreatedAt: time.Now().UTC().Add(-time.Hour), UpdatedAt: time.Now().UTC()},
	}}
	router := newSensorRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sensors", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0]["deviceId"] != "DEV02" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetSensors_StoreError(t *testing.T) {
	router := newSensorRouter(&fakeReadingRepo{err: errors.New("connection reset")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sensors", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetSensorsByArea_Points(t *testing.T) {
	cases := []struct {
		name      string
		url       string
		wantArea  string
		wantLimit int
	}{
		{"explicit points", "/api/sensors/area/b?points=30", "Area B", 30},
		{"default points", "/api/sensors/area/A", "Area A", 7},
		{"non-numeric points", "/api/sensors/area/c?points=abc", "Area C", 7},
		{"negative points", "/api/sensors/area/a?points=-5", "Area A", 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeReadingRepo{}
			router := newSensorRouter(repo)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if repo.lastArea != tc.wantArea {
				t.Errorf("area = %q, want %q", repo.lastArea, tc.wantArea)
			}
			if repo.lastLimit != tc.wantLimit {
				t.Errorf("limit = %d, want %d", repo.lastLimit, tc.wantLimit)
			}
		})
	}
}

func TestGetSensorsByArea_EmptyAreaReturnsEmptyArray(t *testing.T) {
	repo := &fakeReadingRepo{readings: []dmtmodels.Reading{}}
	router := newSensorRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sensors/area/B?points=30", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := w.Body.String(); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}
