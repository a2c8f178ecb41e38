package traintrack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"traintrack/config"
	"traintrack/gtfs"
	"traintrack/gtfsrt"
	"traintrack/tracker"
)

func testServer(t *testing.T) (*Server, func()) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"stops.txt": `stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station
127,Times Sq-42 St,40.75529,-73.987495,1,
127N,Times Sq-42 St,40.75529,-73.987495,0,127
127S,Times Sq-42 St,40.75529,-73.987495,0,127
`,
		"routes.txt":     "route_id\n1\n",
		"stop_times.txt": "trip_id,stop_id\nAFA25GEN-1038-Weekday-00_020600_1..S03R,127S\nAFA25GEN-1038-Weekday-00_021150_1..N03R,127N\n",
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
		w.Write([]byte(content))
	}
	zw.Close()
	index, err := gtfs.NewIndexFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Failed to build index: %v", err)
	}

	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("t1"),
				TripUpdate: &gtfsrtpb.TripUpdate{
					Trip: &gtfsrtpb.TripDescriptor{RouteId: proto.String("1"), TripId: proto.String("t1")},
					StopTimeUpdate: []*gtfsrtpb.TripUpdate_StopTimeUpdate{
						{
							StopId:  proto.String("127S"),
							Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{Time: proto.Int64(time.Now().Unix() + 300)},
						},
					},
				},
			},
		},
	}
	payload, err := proto.Marshal(fm)
	if err != nil {
		t.Fatalf("Failed to marshal feed: %v", err)
	}
	feedTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))

	cfg := config.RealtimeConfig{FeedURLs: []string{feedTS.URL}, TTLSeconds: 30, TimeoutMS: 2000}
	feeds := gtfsrt.NewFeedCache(cfg)
	srv := NewServer(0, tracker.New(index, feeds), feeds)
	return srv, feedTS.Close
}

func doRequest(srv *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, closeFn := testServer(t)
	defer closeFn()

	rec := doRequest(srv, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
	if resp.Stations != 3 {
		t.Errorf("Stations = %d, want 3", resp.Stations)
	}
	if resp.LatestSnapshotEpoch == 0 {
		t.Error("LatestSnapshotEpoch should be set after the health probe's fetch")
	}
}

func TestServer_StationQuery(t *testing.T) {
	srv, closeFn := testServer(t)
	defer closeFn()

	rec := doRequest(srv, "/api/station?q=times+sq")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var data tracker.StationData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if data.Station.ID != "127" {
		t.Errorf("Station.ID = %q, want 127", data.Station.ID)
	}
	if len(data.Trains["Downtown"]) != 1 {
		t.Errorf("Trains = %v, want one Downtown train", data.Trains)
	}
}

func TestServer_StationNotFound(t *testing.T) {
	srv, closeFn := testServer(t)
	defer closeFn()

	rec := doRequest(srv, "/api/station?q=narnia")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_StationMissingQuery(t *testing.T) {
	srv, closeFn := testServer(t)
	defer closeFn()

	rec := doRequest(srv, "/api/station")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
