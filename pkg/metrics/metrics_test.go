package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestObserveIndex(t *testing.T) {
	idx := model.NewIndex()
	idx.Teams["t1"] = &model.TeamEntry{ID: "t1"}
	idx.Teams["t2"] = &model.TeamEntry{ID: "t2"}
	idx.Players["p1"] = &model.PlayerEntry{ID: "p1"}
	idx.Matches = append(idx.Matches, model.MatchRecord{MatchID: "m1"})
	idx.Metadata.Competitions.Add("c1")
	idx.Metadata.DroppedCollections = []string{"c2", "c3"}
	idx.Metadata.LatestMatch = 1700000000

	ObserveIndex(idx)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"teams", testutil.ToFloat64(IndexEntities.WithLabelValues("teams")), 2},
		{"players", testutil.ToFloat64(IndexEntities.WithLabelValues("players")), 1},
		{"matches", testutil.ToFloat64(IndexEntities.WithLabelValues("matches")), 1},
		{"match_stats", testutil.ToFloat64(IndexEntities.WithLabelValues("match_stats")), 0},
		{"competitions", testutil.ToFloat64(IndexEntities.WithLabelValues("competitions")), 1},
		{"dropped", testutil.ToFloat64(IndexDroppedCollections), 2},
		{"latest", testutil.ToFloat64(IndexLatestMatch), 1700000000},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestHandler(t *testing.T) {
	ObserveIndex(model.NewIndex())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "champ_index_entities") {
		t.Error("Expected champ_index_entities in exposition")
	}
}
