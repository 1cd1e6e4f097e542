package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bft-labs/svchost/pkg/lifecycle"
)

type recordingSink struct {
	got []lifecycle.Message
}

func (r *recordingSink) Send(msg lifecycle.Message) { r.got = append(r.got, msg) }

func TestNewCollector_DefaultNamespace(t *testing.T) {
	c := NewCollector("")
	c.Channel(nil).Send(lifecycle.ServiceStarting{Name: "api"})

	n, err := testutil.GatherAndCount(c.Registry(), "svchost_service_notifications_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("series = %d, want 1", n)
	}
}

func TestCollector_Channel(t *testing.T) {
	c := NewCollector("test")
	sink := &recordingSink{}
	ch := c.Channel(sink)

	ch.Send(lifecycle.ServiceStarting{Name: "api"})
	ch.Send(lifecycle.ServiceStarting{Name: "api"})
	ch.Send(lifecycle.ServiceFault{Name: "api", Err: errors.New("boom")})

	if len(sink.got) != 3 {
		t.Errorf("forwarded %d messages, want 3", len(sink.got))
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"starting", testutil.ToFloat64(c.notifications.WithLabelValues("api", "ServiceStarting")), 2},
		{"fault notifications", testutil.ToFloat64(c.notifications.WithLabelValues("api", "ServiceFault")), 1},
		{"faults", testutil.ToFloat64(c.faults.WithLabelValues("api")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestServiceObserver(t *testing.T) {
	c := NewCollector("test")
	o := c.ForService("api")

	if got := testutil.ToFloat64(c.state.WithLabelValues("api", "Initial")); got != 1 {
		t.Errorf("initial state gauge = %v, want 1", got)
	}

	o.OnStateChange(lifecycle.Initial, lifecycle.Creating, "CreateService")
	o.OnStateChange(lifecycle.Creating, lifecycle.Created, "ServiceCreated")
	o.OnUnmatched(lifecycle.Created, lifecycle.KindPauseService)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"state Initial", testutil.ToFloat64(c.state.WithLabelValues("api", "Initial")), 0},
		{"state Creating", testutil.ToFloat64(c.state.WithLabelValues("api", "Creating")), 0},
		{"state Created", testutil.ToFloat64(c.state.WithLabelValues("api", "Created")), 1},
		{"transition", testutil.ToFloat64(c.transitions.WithLabelValues("api", "Initial", "Creating")), 1},
		{"unmatched", testutil.ToFloat64(c.unmatched.WithLabelValues("api", "Created", "PauseService")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.ForService("api").OnStateChange(lifecycle.Initial, lifecycle.Creating, "CreateService")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	want := `test_service_transitions_total{from="Initial",service="api",to="Creating"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("body missing %q", want)
	}
}
