package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorders(t *testing.T) {
	Convey("Recorders should increment their series", t, func() {
		before := testutil.ToFloat64(ContentFallbackTotal.WithLabelValues(ReasonRetryExceeded))
		RecordFallback(ReasonRetryExceeded)
		So(testutil.ToFloat64(ContentFallbackTotal.WithLabelValues(ReasonRetryExceeded)), ShouldEqual, before+1)

		before = testutil.ToFloat64(SnapbackTotal.WithLabelValues(SnapbackSeek))
		RecordSnapback(SnapbackSeek)
		So(testutil.ToFloat64(SnapbackTotal.WithLabelValues(SnapbackSeek)), ShouldEqual, before+1)

		before = testutil.ToFloat64(AdRequestRetriesTotal)
		RecordRetry()
		So(testutil.ToFloat64(AdRequestRetriesTotal), ShouldEqual, before+1)

		before = testutil.ToFloat64(StateTransitionsTotal.WithLabelValues("start", "waiting_for_prepare"))
		RecordTransition("start", "waiting_for_prepare")
		So(testutil.ToFloat64(StateTransitionsTotal.WithLabelValues("start", "waiting_for_prepare")), ShouldEqual, before+1)
	})
}
