package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Katlearn/cablevision-form/internal/models"
)

func TestSendPostsEmailJSPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	m := NewEmailJS(Config{
		Endpoint:   srv.URL,
		ServiceID:  "service_7v9t0gf",
		TemplateID: "template_j8pi2yr",
		PublicKey:  "pub-key",
	})
	rec := models.NewRecord(map[string]string{models.FieldFirstName: "Maria"}, models.Coordinate{Lat: 10, Lng: 125})
	rec.Signature = "data:image/png;base64,AAAA"

	if err := m.Send(context.Background(), rec); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["service_id"] != "service_7v9t0gf" || got["template_id"] != "template_j8pi2yr" || got["user_id"] != "pub-key" {
		t.Fatalf("unexpected identifiers %v", got)
	}
	if _, ok := got["accessToken"]; ok {
		t.Fatal("accessToken should be omitted without a private key")
	}
	params := got["template_params"].(map[string]any)
	if params["firstName"] != "Maria" || params["markerLat"] != 10.0 || params["signature"] != rec.Signature {
		t.Fatalf("unexpected params %v", params)
	}
}

func TestSendReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("The Public Key is invalid"))
	}))
	defer srv.Close()

	err := NewEmailJS(Config{Endpoint: srv.URL}).Send(context.Background(), models.Record{})
	if err == nil || !strings.Contains(err.Error(), "The Public Key is invalid") {
		t.Fatalf("expected error with response text, got %v", err)
	}
}

func TestSendKeepsCustomerText(t *testing.T) {
	var got struct {
		Params map[string]any `json:"template_params"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	rec := models.NewRecord(map[string]string{
		models.FieldFirstName: "  Ana  ",
		models.FieldLastName:  "O'Brien & Sons",
		models.FieldAddress:   "Blk 5 <Lot 3> Phase 2",
		models.FieldHowKnow:   "Facebook, Sales Agent",
	}, models.DefaultMarker)
	rec.ValidIDURL = "https://files.example/f?token=a&b=c"

	if err := NewEmailJS(Config{Endpoint: srv.URL}).Send(context.Background(), rec); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := map[string]string{
		"firstName":  "  Ana  ",
		"lastName":   "O'Brien & Sons",
		"address":    "Blk 5 <Lot 3> Phase 2",
		"howKnow":    "Facebook, Sales Agent",
		"validIdUrl": rec.ValidIDURL,
	}
	for k, v := range want {
		if got.Params[k] != v {
			t.Errorf("%s = %q, want %q", k, got.Params[k], v)
		}
	}
}
