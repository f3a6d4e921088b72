package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it uses its own registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
			})
		})

		Convey("When creating two managers on separate registries", func() {
			create := func() {
				NewManager(WithRegistry(prometheus.NewRegistry()))
				NewManager(WithRegistry(prometheus.NewRegistry()))
			}

			Convey("Then registration does not collide", func() {
				So(create, ShouldNotPanic)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("engine"),
				WithLatencyBuckets([]float64{0.001, 0.01}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithRegistry(registry),
			)
			manager.FrameProcessed(time.Millisecond)

			Convey("Then metric names carry the namespace and subsystem", func() {
				count, err := testutil.GatherAndCount(registry, "test_engine_frames_processed_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})
}

func TestRecorder(t *testing.T) {
	Convey("Given a manager used as a recorder", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()))

		Convey("When frames are processed and rejected", func() {
			m.FrameProcessed(200 * time.Microsecond)
			m.FrameProcessed(300 * time.Microsecond)
			m.FrameRejected("dropped")
			m.FrameRejected("malformed")
			m.FrameRejected("dropped")

			Convey("Then the counters reflect them", func() {
				So(testutil.ToFloat64(m.framesProcessed), ShouldEqual, 2)
				So(testutil.ToFloat64(m.framesRejected.WithLabelValues("dropped")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.framesRejected.WithLabelValues("malformed")), ShouldEqual, 1)
			})
		})

		Convey("When detections and motion transitions are recorded", func() {
			m.DetectionChanged("A")
			m.DetectionChanged("")
			m.MotionTransition("J", "confirmed")

			Convey("Then they are labelled by letter", func() {
				So(testutil.ToFloat64(m.detections.WithLabelValues("A")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.detections.WithLabelValues("none")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.motionTransitions.WithLabelValues("J", "confirmed")), ShouldEqual, 1)
			})
		})

		Convey("When sessions start and end", func() {
			m.SessionStarted()
			m.SessionStarted()
			m.SessionEnded()

			Convey("Then the gauge tracks active sessions", func() {
				So(testutil.ToFloat64(m.activeSessions), ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))

		Convey("When recording", func() {
			m.FrameProcessed(time.Millisecond)
			m.DetectionChanged("A")
			m.SessionStarted()

			Convey("Then nothing is counted", func() {
				So(testutil.ToFloat64(m.framesProcessed), ShouldEqual, 0)
				So(testutil.ToFloat64(m.activeSessions), ShouldEqual, 0)
			})
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given a manager with recorded requests", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()))
		m.ObserveHTTP(http.MethodGet, "/api/letters", http.StatusOK, 5*time.Millisecond)

		Convey("When scraping the handler", func() {
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the exposition contains the request counter", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := rec.Body.String()
				So(strings.Contains(body, `fingerspell_http_requests_total{code="200",method="GET",route="/api/letters"} 1`), ShouldBeTrue)
			})
		})
	})
}
