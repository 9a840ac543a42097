package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	logger "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Logger"
	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
)

type fakeSolutionRepo struct {
	stored []dmtmodels.SolutionApplication
	err    error
}

func (f *fakeSolutionRepo) InsertSolution(_ context.Context, sol dmtmodels.SolutionApplication) (*dmtmodels.SolutionApplication, error) {
	if f.err != nil {
		return nil, f.err
	}
	sol.ID = primitive.NewObjectID()
	f.stored = append(f.stored, sol)
	return &sol, nil
}

func (f *fakeSolutionRepo) FindAllSolutions(context.Context) ([]dmtmodels.SolutionApplication, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stored, nil
}

func newSolutionRouter(repo *fakeSolutionRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewSolutionController(repo, 1000, logger.GetGlobalLogger()).RegisterRoutes(router)
	return router
}

func postSolution(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/Solutions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCreateSolution(t *testing.T) {
	repo := &fakeSolutionRepo{}
	router := newSolutionRouter(repo)

	body := `{"area":"A","type":"General","concentration":"3 EC","quantity":10,"date":"2026-08-29T00:00:00Z"}`
	w := postSolution(router, body)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if len(repo.stored) != 1 {
		t.Fatalf("stored %d solutions, want 1", len(repo.stored))
	}
	if repo.stored[0].CreatedAt.IsZero() {
		t.Error("createdAt not set")
	}

	var resp struct {
		Data dmtmodels.SolutionApplication `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Concentration != "3 EC" || resp.Data.ID.IsZero() {
		t.Errorf("data = %+v", resp.Data)
	}

	// The saved record comes back from a subsequent GET
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/Solutions", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", w.Code)
	}
	var list []dmtmodels.SolutionApplication
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Quantity != 10 {
		t.Errorf("list = %+v", list)
	}
}

func TestCreateSolution_Rejected(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad concentration", `{"area":"A","type":"General","concentration":"abc","quantity":10,"date":"2026-08-29T00:00:00Z"}`},
		{"bad area", `{"area":"Z","type":"General","concentration":"3 EC","quantity":10,"date":"2026-08-29T00:00:00Z"}`},
		{"quantity out of range", `{"area":"A","type":"General","concentration":"3 EC","quantity":5000,"date":"2026-08-29T00:00:00Z"}`},
		{"type too short", `{"area":"A","type":"pH","concentration":"3 EC","quantity":10,"date":"2026-08-29T00:00:00Z"}`},
		{"missing date", `{"area":"A","type":"General","concentration":"3 EC","quantity":10}`},
		{"not json", `not-json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeSolutionRepo{}
			router := newSolutionRouter(repo)

			w := postSolution(router, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			if len(repo.stored) != 0 {
				t.Errorf("rejected solution was persisted: %+v", repo.stored)
			}
		})
	}
}

func TestCreateSolution_StoreError(t *testing.T) {
	router := newSolutionRouter(&fakeSolutionRepo{err: errors.New("server selection timeout")})

	body := `{"area":"A","type":"General","concentration":"3 EC","quantity":10,"date":"2026-08-29T00:00:00Z"}`
	w := postSolution(router, body)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetSolutions_Empty(t *testing.T) {
	repo := &fakeSolutionRepo{stored: []dmtmodels.SolutionApplication{}}
	router := newSolutionRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/Solutions", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := w.Body.String(); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}
